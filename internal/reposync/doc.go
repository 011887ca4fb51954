// Package reposync decides what a pushed git ref means for the Puppet
// environments: deploy the matching environment, remove it, or refresh its
// modules. The Synchronizer carries the decision logic; the commands in this
// package expose it as `deploy REF` and `update REF`.
package reposync
