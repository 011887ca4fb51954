package execshell

import "time"

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted supplies the result of a command that ran to completion, successful or not.
	CommandCompleted(command ShellCommand, result ExecutionResult, duration time.Duration)
	// CommandExecutionFailed reports failures that prevented an execution result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult, time.Duration) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
