package refs

import (
	"regexp"
	"strings"
)

const (
	branchReferencePatternConstant = `^refs/heads/(.+)$`
	lineTerminatorConstant         = "\n"
)

const (
	// MasterBranchName is never deployed as an environment.
	MasterBranchName = "master"
	// ProductionBranchName receives library updates without a Puppetfile rewrite.
	ProductionBranchName = "production"
)

var branchReferencePattern = regexp.MustCompile(branchReferencePatternConstant)

// Reference is a parsed git ref: either a branch with a name or a non-branch ref.
type Reference struct {
	raw        string
	branchName string
	isBranch   bool
}

// Parse classifies the raw ref. Refs outside refs/heads/ (tags, notes, pull refs) are non-branch references.
// A single trailing newline, as left by hook stdin, is ignored.
func Parse(raw string) Reference {
	matches := branchReferencePattern.FindStringSubmatch(strings.TrimSuffix(raw, lineTerminatorConstant))
	if len(matches) != 2 {
		return Reference{raw: raw}
	}
	return Reference{raw: raw, branchName: matches[1], isBranch: true}
}

// Raw returns the ref exactly as received.
func (reference Reference) Raw() string {
	return reference.raw
}

// IsBranch reports whether the ref names a branch head.
func (reference Reference) IsBranch() bool {
	return reference.isBranch
}

// Branch returns the branch name and true for branch refs.
func (reference Reference) Branch() (string, bool) {
	return reference.branchName, reference.isBranch
}

// IsMaster reports whether the ref is the master branch.
func (reference Reference) IsMaster() bool {
	return reference.isBranch && reference.branchName == MasterBranchName
}

// IsProduction reports whether the ref is the production branch.
func (reference Reference) IsProduction() bool {
	return reference.isBranch && reference.branchName == ProductionBranchName
}

// String returns the raw ref.
func (reference Reference) String() string {
	return reference.raw
}
