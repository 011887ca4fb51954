package gitremote

import (
	"context"
	"errors"

	"github.com/temirov/reposync/internal/execshell"
)

const (
	gitLSRemoteSubcommandConstant           = "ls-remote"
	gitHeadsFlagConstant                    = "--heads"
	gitTerminalPromptVariableConstant       = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant       = "0"
	gitExecutorNotConfiguredMessageConstant = "git executor not configured"
)

// ErrGitExecutorNotConfigured indicates a ShellBranchLister without an executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorNotConfiguredMessageConstant)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ShellBranchLister runs `git ls-remote --heads <repository>`.
type ShellBranchLister struct {
	executor GitExecutor
}

// NewShellBranchLister constructs a lister backed by the git executable.
func NewShellBranchLister(executor GitExecutor) (*ShellBranchLister, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &ShellBranchLister{executor: executor}, nil
}

// ListBranches returns git's standard output. Credential prompts are disabled so an unreachable
// remote fails instead of blocking.
func (lister *ShellBranchLister) ListBranches(executionContext context.Context, repository string) (string, error) {
	executionResult, executionError := lister.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitLSRemoteSubcommandConstant, gitHeadsFlagConstant, repository},
		EnvironmentVariables: map[string]string{gitTerminalPromptVariableConstant: gitTerminalPromptDisabledConstant},
	})
	if executionError != nil {
		return "", executionError
	}
	return executionResult.StandardOutput, nil
}
