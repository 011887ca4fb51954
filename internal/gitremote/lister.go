package gitremote

import (
	"context"
	"regexp"
)

const (
	// ListerKindShell runs git ls-remote.
	ListerKindShell = "shell"
	// ListerKindNative queries the remote through go-git.
	ListerKindNative = "native"

	headReferencePrefixConstant = `(?m)\srefs/heads/`
	lineEndAnchorConstant       = `$`
)

// BranchLister returns the branch heads of a repository as ls-remote text:
// one "<sha>\trefs/heads/<name>" line per branch.
type BranchLister interface {
	ListBranches(executionContext context.Context, repository string) (string, error)
}

// HasHead reports whether listing contains a line ending exactly in refs/heads/<branch>.
// A head whose name merely starts with branch ("devops" for "dev") does not count.
func HasHead(listing string, branch string) bool {
	if len(branch) == 0 || len(listing) == 0 {
		return false
	}
	headPattern, compileError := regexp.Compile(headReferencePrefixConstant + regexp.QuoteMeta(branch) + lineEndAnchorConstant)
	if compileError != nil {
		return false
	}
	return headPattern.MatchString(listing)
}
