package execshell

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	logFieldCommandConstant          = "command"
	logFieldArgumentsConstant        = "arguments"
	logFieldWorkingDirectoryConstant = "working_directory"
	logFieldExitCodeConstant         = "exit_code"
	logFieldDurationConstant         = "duration"
)

// ShellExecutorOption customizes a ShellExecutor.
type ShellExecutorOption func(executor *ShellExecutor)

// WithCommandEventObserver registers an observer notified about every command.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if observer != nil {
			executor.observer = observer
		}
	}
}

// WithExecutable overrides the binary launched for a tool, e.g. a path outside PATH.
func WithExecutable(name CommandName, executable string) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		trimmedExecutable := strings.TrimSpace(executable)
		if len(trimmedExecutable) == 0 {
			return
		}
		executor.executables[name] = trimmedExecutable
	}
}

// ShellExecutor runs external tools through a CommandRunner and logs every invocation.
type ShellExecutor struct {
	logger      *zap.Logger
	runner      CommandRunner
	formatter   CommandMessageFormatter
	observer    CommandEventObserver
	executables map[CommandName]string
}

// NewShellExecutor validates dependencies and constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:      logger,
		runner:      runner,
		formatter:   CommandMessageFormatter{},
		observer:    noopCommandEventObserver{},
		executables: map[CommandName]string{},
	}
	for _, option := range options {
		option(executor)
	}

	return executor, nil
}

// Execute runs the command. A non-zero exit is returned as CommandFailedError, a failure to run as CommandExecutionError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(command.Executable) == 0 {
		command.Executable = executor.executables[command.Name]
	}

	commandFields := []zap.Field{
		zap.String(logFieldCommandConstant, command.ExecutablePath()),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	}

	executor.logger.Debug(executor.formatter.BuildStartedMessage(command), commandFields...)
	executor.observer.CommandStarted(command)

	startTime := time.Now()
	executionResult, runError := executor.runner.Run(executionContext, command)
	duration := time.Since(startTime)

	if runError != nil {
		executor.logger.Error(executor.formatter.BuildExecutionFailureMessage(command, runError), append(commandFields, zap.Error(runError))...)
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult, duration)
	resultFields := append(commandFields, zap.Int(logFieldExitCodeConstant, executionResult.ExitCode), zap.Duration(logFieldDurationConstant, duration))

	if executionResult.ExitCode != 0 {
		executor.logger.Warn(executor.formatter.BuildFailureMessage(command, executionResult), resultFields...)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Info(executor.formatter.BuildSuccessMessage(command), resultFields...)
	return executionResult, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteR10k runs r10k with the provided details.
func (executor *ShellExecutor) ExecuteR10k(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandR10k, Details: details})
}

// ExecuteLibrarian runs librarian-puppet with the provided details.
func (executor *ShellExecutor) ExecuteLibrarian(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandLibrarian, Details: details})
}
