// Package gitremote lists the branch heads of remote repositories in the
// `git ls-remote --heads` text format, either by running git or natively through go-git.
package gitremote
