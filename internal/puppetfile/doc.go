// Package puppetfile pins git-sourced Puppetfile modules to the branch being deployed.
package puppetfile
