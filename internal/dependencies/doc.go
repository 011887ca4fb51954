// Package dependencies builds the default collaborators shared by the CLI and
// HTTP front ends: the shell executor, the branch lister, and the gateway.
package dependencies
