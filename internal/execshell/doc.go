// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with zap logging via ShellExecutor, exposes OSCommandRunner
// for default process execution, and defines the abstractions reposync uses to
// run git, r10k, and librarian-puppet in a testable manner.
package execshell
