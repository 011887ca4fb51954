package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	gitLSRemoteSubcommandNameConstant     = "ls-remote"
	gitHeadsFlagConstant                  = "--heads"
	r10kDeploySubcommandNameConstant      = "deploy"
	r10kEnvironmentSubcommandConstant     = "environment"
	r10kConfigurationFlagConstant         = "-c"
	librarianUpdateSubcommandNameConstant = "update"
)

const (
	gitLSRemoteHeadsStartTemplateConstant            = "Listing branches on %s"
	gitLSRemoteHeadsSuccessTemplateConstant          = "Listed branches on %s"
	gitLSRemoteHeadsFailureTemplateConstant          = "Failed to list branches on %s (exit code %d%s)"
	gitLSRemoteHeadsExecutionFailureTemplateConstant = "Unable to list branches on %s: %s"
	r10kEnvironmentStartTemplateConstant             = "Running r10k for environment %s%s"
	r10kEnvironmentSuccessTemplateConstant           = "r10k completed for environment %s%s"
	r10kEnvironmentFailureTemplateConstant           = "r10k exited with code %d for environment %s%s%s"
	r10kEnvironmentExecutionFailureTemplateConstant  = "Unable to run r10k for environment %s: %s"
	r10kConfigurationSuffixTemplateConstant          = " using %s"
	librarianUpdateStartTemplateConstant             = "Updating libraries in %s"
	librarianUpdateSuccessTemplateConstant           = "Updated libraries in %s"
	librarianUpdateFailureTemplateConstant           = "Failed to update libraries in %s (exit code %d%s)"
	librarianUpdateExecutionFailureTemplateConstant  = "Unable to update libraries in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	switch {
	case command.Name == CommandGit && containsArgument(arguments, gitLSRemoteSubcommandNameConstant) && containsArgument(arguments, gitHeadsFlagConstant):
		return formatter.describeGitLSRemoteHeadsMessage(command, result, failure, stage)
	case command.Name == CommandR10k && formatter.argumentAtIndex(arguments, 0) == r10kDeploySubcommandNameConstant:
		return formatter.describeR10kMessage(command, result, failure, stage)
	case command.Name == CommandLibrarian && formatter.argumentAtIndex(arguments, 0) == librarianUpdateSubcommandNameConstant:
		return formatter.describeLibrarianMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitLSRemoteHeadsMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	repository := formatter.ensureValue(formatter.lastArgument(command.Details.Arguments))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitLSRemoteHeadsStartTemplateConstant, repository)
	case messageStageSuccess:
		return fmt.Sprintf(gitLSRemoteHeadsSuccessTemplateConstant, repository)
	case messageStageFailure:
		return fmt.Sprintf(gitLSRemoteHeadsFailureTemplateConstant, repository, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitLSRemoteHeadsExecutionFailureTemplateConstant, repository, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeR10kMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	environment := formatter.ensureValue(findFlagValue(arguments, r10kEnvironmentSubcommandConstant))
	configurationSuffix := emptyStringConstant
	if configurationPath := findFlagValue(arguments, r10kConfigurationFlagConstant); len(configurationPath) > 0 {
		configurationSuffix = fmt.Sprintf(r10kConfigurationSuffixTemplateConstant, configurationPath)
	}

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(r10kEnvironmentStartTemplateConstant, environment, configurationSuffix)
	case messageStageSuccess:
		return fmt.Sprintf(r10kEnvironmentSuccessTemplateConstant, environment, configurationSuffix)
	case messageStageFailure:
		return fmt.Sprintf(r10kEnvironmentFailureTemplateConstant, result.ExitCode, environment, configurationSuffix, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(r10kEnvironmentExecutionFailureTemplateConstant, environment, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeLibrarianMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(librarianUpdateStartTemplateConstant, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(librarianUpdateSuccessTemplateConstant, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(librarianUpdateFailureTemplateConstant, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(librarianUpdateExecutionFailureTemplateConstant, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	commandLabel := strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index < 0 || index >= len(arguments) {
		return emptyStringConstant
	}
	return strings.TrimSpace(arguments[index])
}

func (formatter CommandMessageFormatter) lastArgument(arguments []string) string {
	return formatter.argumentAtIndex(arguments, len(arguments)-1)
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmedValue
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for argumentIndex := 0; argumentIndex < len(arguments)-1; argumentIndex++ {
		if strings.TrimSpace(arguments[argumentIndex]) == flag {
			return strings.TrimSpace(arguments[argumentIndex+1])
		}
	}
	return emptyStringConstant
}
