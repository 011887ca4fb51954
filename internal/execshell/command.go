package execshell

import "context"

const (
	commandGitStringConstant       = "git"
	commandR10kStringConstant      = "r10k"
	commandLibrarianStringConstant = "librarian-puppet"
)

// CommandName identifies a supported external tool.
type CommandName string

// Supported external tools.
const (
	CommandGit       CommandName = CommandName(commandGitStringConstant)
	CommandR10k      CommandName = CommandName(commandR10kStringConstant)
	CommandLibrarian CommandName = CommandName(commandLibrarianStringConstant)
)

// CommandDetails describes a single tool invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines a tool name with invocation details.
// Executable overrides the binary launched for Name when non-empty.
type ShellCommand struct {
	Name       CommandName
	Executable string
	Details    CommandDetails
}

// ExecutablePath returns the binary launched for the command.
func (command ShellCommand) ExecutablePath() string {
	if len(command.Executable) > 0 {
		return command.Executable
	}
	return string(command.Name)
}

// ExecutionResult captures the observable outcome of a finished process.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner runs shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}
