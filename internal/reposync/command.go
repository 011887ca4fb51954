package reposync

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/dependencies"
	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/metrics"
	"github.com/temirov/reposync/internal/r10k"
)

const (
	commandUsageTemplateConstant      = "%s REF"
	deployShortDescriptionConstant    = "Deploy or remove the environment of a pushed control repository branch"
	updateShortDescriptionConstant    = "Refresh environment modules after a module repository push"
	deployLongDescriptionConstant     = "deploy runs r10k for the pushed branch when the control repository still has it and removes the environment otherwise. Branches other than production then get their Puppetfile pinned and their modules updated."
	updateLongDescriptionConstant     = "update redeploys the environment matching the pushed branch, pins its Puppetfile to the branch and runs librarian-puppet. A master push only refreshes the production modules."
	deployExampleConstant             = "reposync deploy refs/heads/feature-login"
	updateExampleConstant             = "reposync update refs/heads/master"
	expectedArgumentsMessageConstant  = "expected exactly 2 arguments"
	unknownActionTemplateConstant     = "unknown action: %s"
	referenceArgumentCountConstant    = 1
	gatewayResolvedMessageConstant    = "Gateway resolved"
	logFieldR10kConfigurationConstant = "r10k_config"
	logFieldBranchListerConstant      = "branch_lister"
	unsupportedActionTemplateConstant = "unsupported action %q"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the deploy and update commands.
type CommandBuilder struct {
	Action                     string
	LoggerProvider             LoggerProvider
	ToolsConfigurationProvider func() dependencies.ToolsConfiguration
	Locator                    r10k.Locator
	Recorder                   metrics.WorkflowRecorder
	CommandObserver            execshell.CommandEventObserver

	// Gateway replaces the gateway wired from configuration.
	Gateway Gateway
}

// NewArgumentCountError reports a command line without exactly an action and a ref.
func NewArgumentCountError() UsageError {
	return UsageError{Message: expectedArgumentsMessageConstant}
}

// NewUnknownActionError reports an action other than deploy or update.
func NewUnknownActionError(action string) UsageError {
	return UsageError{Message: unknownActionMessage(action)}
}

func unknownActionMessage(action string) string {
	return fmt.Sprintf(unknownActionTemplateConstant, action)
}

// Build constructs the command for the builder's action.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	var shortDescription, longDescription, example string
	switch builder.Action {
	case ActionDeploy:
		shortDescription, longDescription, example = deployShortDescriptionConstant, deployLongDescriptionConstant, deployExampleConstant
	case ActionUpdate:
		shortDescription, longDescription, example = updateShortDescriptionConstant, updateLongDescriptionConstant, updateExampleConstant
	default:
		return nil, fmt.Errorf(unsupportedActionTemplateConstant, builder.Action)
	}

	command := &cobra.Command{
		Use:     fmt.Sprintf(commandUsageTemplateConstant, builder.Action),
		Short:   shortDescription,
		Long:    longDescription,
		Example: example,
		Args:    validateReferenceArguments,
		RunE:    builder.run,
	}
	return command, nil
}

func validateReferenceArguments(_ *cobra.Command, arguments []string) error {
	if len(arguments) != referenceArgumentCountConstant {
		return NewArgumentCountError()
	}
	return nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()

	environmentGateway, gatewayError := builder.resolveGateway(logger)
	if gatewayError != nil {
		return gatewayError
	}

	synchronizer, synchronizerError := NewSynchronizer(arguments[0], Dependencies{
		Gateway:  environmentGateway,
		Logger:   logger,
		Recorder: builder.Recorder,
	})
	if synchronizerError != nil {
		return synchronizerError
	}

	return synchronizer.Run(command.Context(), builder.Action)
}

func (builder *CommandBuilder) resolveGateway(logger *zap.Logger) (Gateway, error) {
	if builder.Gateway != nil {
		return builder.Gateway, nil
	}

	tools := builder.resolveToolsConfiguration()
	environmentGateway, resolveError := dependencies.ResolveGateway(dependencies.GatewayOptions{
		Logger:          logger,
		Tools:           tools,
		Locator:         builder.Locator,
		CommandObserver: builder.CommandObserver,
	})
	if resolveError != nil {
		return nil, resolveError
	}

	logger.Debug(gatewayResolvedMessageConstant,
		zap.String(logFieldActionConstant, builder.Action),
		zap.String(logFieldR10kConfigurationConstant, builder.Locator.ConfigurationPath()),
		zap.String(logFieldBranchListerConstant, tools.BranchLister),
	)
	return environmentGateway, nil
}

func (builder *CommandBuilder) resolveToolsConfiguration() dependencies.ToolsConfiguration {
	if builder.ToolsConfigurationProvider == nil {
		return dependencies.DefaultToolsConfiguration()
	}
	return builder.ToolsConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
