package dependencies

import (
	"strings"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/gitremote"
)

const (
	r10kExecutableKeyConstant         = "r10k"
	librarianExecutableKeyConstant    = "librarian"
	gitExecutableKeyConstant          = "git"
	branchListerKeyConstant           = "branch_lister"
	configurationKeySeparatorConstant = "."
)

// ToolsConfiguration names the external executables and the branch listing strategy.
type ToolsConfiguration struct {
	R10k         string `mapstructure:"r10k"`
	Librarian    string `mapstructure:"librarian"`
	Git          string `mapstructure:"git"`
	BranchLister string `mapstructure:"branch_lister"`
}

// DefaultToolsConfiguration returns executables resolved through PATH and the shell branch lister.
func DefaultToolsConfiguration() ToolsConfiguration {
	return ToolsConfiguration{
		R10k:         string(execshell.CommandR10k),
		Librarian:    string(execshell.CommandLibrarian),
		Git:          string(execshell.CommandGit),
		BranchLister: gitremote.ListerKindShell,
	}
}

// Sanitize trims values and fills blanks with defaults.
func (configuration ToolsConfiguration) Sanitize() ToolsConfiguration {
	defaults := DefaultToolsConfiguration()
	sanitized := ToolsConfiguration{
		R10k:         strings.TrimSpace(configuration.R10k),
		Librarian:    strings.TrimSpace(configuration.Librarian),
		Git:          strings.TrimSpace(configuration.Git),
		BranchLister: strings.ToLower(strings.TrimSpace(configuration.BranchLister)),
	}
	if len(sanitized.R10k) == 0 {
		sanitized.R10k = defaults.R10k
	}
	if len(sanitized.Librarian) == 0 {
		sanitized.Librarian = defaults.Librarian
	}
	if len(sanitized.Git) == 0 {
		sanitized.Git = defaults.Git
	}
	if len(sanitized.BranchLister) == 0 {
		sanitized.BranchLister = defaults.BranchLister
	}
	return sanitized
}

// DefaultConfigurationValues returns viper defaults for the tools section rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultToolsConfiguration()
	return map[string]any{
		prefix + configurationKeySeparatorConstant + r10kExecutableKeyConstant:      defaults.R10k,
		prefix + configurationKeySeparatorConstant + librarianExecutableKeyConstant: defaults.Librarian,
		prefix + configurationKeySeparatorConstant + gitExecutableKeyConstant:       defaults.Git,
		prefix + configurationKeySeparatorConstant + branchListerKeyConstant:        defaults.BranchLister,
	}
}
