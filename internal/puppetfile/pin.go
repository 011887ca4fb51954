package puppetfile

import (
	"fmt"
	"regexp"
)

const (
	// FileName is the dependency manifest inside every environment.
	FileName                        = "Puppetfile"
	gitSourceClausePatternConstant  = `(?m):git *=> *'([^']*)' *$`
	branchPinClauseTemplateConstant = "%s, :branch => '%s'"
)

var gitSourceClausePattern = regexp.MustCompile(gitSourceClausePatternConstant)

// BranchChecker reports whether the repository at the given location has the branch being pinned.
type BranchChecker func(repository string) bool

// Result is a rewritten Puppetfile.
type Result struct {
	Content string
	// PinnedRepositories lists the git sources that received a branch pin, in file order.
	PinnedRepositories []string
}

// Changed reports whether any line was pinned.
func (result Result) Changed() bool {
	return len(result.PinnedRepositories) > 0
}

// PinBranch appends ", :branch => '<branch>'" to every ":git => '<url>'" clause that ends a line and
// whose repository has the branch. Every other byte of content is preserved.
// A pinned line no longer ends with the git clause, so applying PinBranch twice pins nothing new.
func PinBranch(content string, branch string, hasBranch BranchChecker) Result {
	result := Result{}
	result.Content = gitSourceClausePattern.ReplaceAllStringFunc(content, func(clause string) string {
		submatches := gitSourceClausePattern.FindStringSubmatch(clause)
		if len(submatches) != 2 {
			return clause
		}
		repository := submatches[1]
		if hasBranch == nil || !hasBranch(repository) {
			return clause
		}
		result.PinnedRepositories = append(result.PinnedRepositories, repository)
		return fmt.Sprintf(branchPinClauseTemplateConstant, clause, branch)
	})
	return result
}

// GitRepositories lists the repository of every git clause that ends a line, in file order.
func GitRepositories(content string) []string {
	var repositories []string
	for _, submatches := range gitSourceClausePattern.FindAllStringSubmatch(content, -1) {
		repositories = append(repositories, submatches[1])
	}
	return repositories
}
