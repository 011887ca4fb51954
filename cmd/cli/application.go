package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/dependencies"
	"github.com/temirov/reposync/internal/r10k"
	"github.com/temirov/reposync/internal/reposync"
	"github.com/temirov/reposync/internal/server"
	"github.com/temirov/reposync/internal/utils"
)

const (
	applicationNameConstant                 = "reposync"
	applicationUseConstant                  = applicationNameConstant + " (deploy|update) REF"
	applicationShortDescriptionConstant     = "Sync puppet's environments with any modules under our control"
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level (debug, info, warn or error)."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	toolsConfigurationKeyConstant           = "tools"
	serverConfigurationKeyConstant          = "server"
	environmentPrefixConstant               = "REPOSYNC"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	workingDirectorySearchPathConstant      = "."
	homeDirectorySearchPathConstant         = "$HOME/.reposync"
	systemSearchPathConstant                = "/etc/reposync"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationR10kFieldConstant          = "r10k_config"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	usageLineConstant                       = "usage: " + applicationNameConstant + " [-h] (deploy|update) REF"
	usageErrorTemplateConstant              = "%s\n" + applicationNameConstant + ": error: %s\n"
	errorOutputTemplateConstant             = "%v\n"
	rootArgumentCountConstant               = 2
)

const applicationLongDescriptionConstant = `Sync puppet's environments with any modules under our control. When the
control repository itself has been updated, this should be run with
` + "`deploy`" + `; when one of our modules has been updated, this should be run
with ` + "`update`" + `.

If this isn't working, it's probably because you haven't set
PUPPET_R10K_CONFIG in your environment, and your r10k config is located
somewhere other than /etc/puppetlabs/r10k/r10k.yaml`

const rootHelpArgumentsConstant = `positional arguments:
 ACTION      whether we're to deploy an environment or update modules
 REF         the git ref that's just been pushed

optional arguments:
 -h, --help  show this help message and exit`

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration  `mapstructure:"common"`
	Tools  dependencies.ToolsConfiguration `mapstructure:"tools"`
	Server server.Configuration            `mapstructure:"server"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationOption customizes an Application.
type ApplicationOption func(application *Application)

// WithOutput redirects command output and logs.
func WithOutput(standardOutput io.Writer, standardError io.Writer) ApplicationOption {
	return func(application *Application) {
		if standardOutput != nil {
			application.standardOutput = standardOutput
		}
		if standardError != nil {
			application.standardError = standardError
		}
	}
}

// WithLocator replaces the r10k configuration locator read from PUPPET_R10K_CONFIG.
func WithLocator(locator r10k.Locator) ApplicationOption {
	return func(application *Application) {
		application.locator = locator
	}
}

// WithGateway replaces the gateway wired from configuration in every command.
func WithGateway(gateway reposync.Gateway) ApplicationOption {
	return func(application *Application) {
		application.gateway = gateway
	}
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	locator               r10k.Locator
	gateway               reposync.Gateway
	standardOutput        io.Writer
	standardError         io.Writer
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication(options ...ApplicationOption) *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{workingDirectorySearchPathConstant, homeDirectorySearchPathConstant, systemSearchPathConstant},
	)
	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfiguration, embeddedConfigurationType)

	application := &Application{
		configurationLoader: configurationLoader,
		logger:              zap.NewNop(),
		locator:             r10k.NewLocatorFromEnvironment(),
		standardOutput:      os.Stdout,
		standardError:       os.Stderr,
	}
	for _, option := range options {
		option(application)
	}

	cobraCommand := &cobra.Command{
		Use:           applicationUseConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetOut(application.standardOutput)
	cobraCommand.SetErr(application.standardError)
	cobraCommand.CompletionOptions.DisableDefaultCmd = true
	cobraCommand.SetFlagErrorFunc(func(_ *cobra.Command, flagError error) error {
		return reposync.UsageError{Message: flagError.Error()}
	})
	defaultHelpFunction := cobraCommand.HelpFunc()
	cobraCommand.SetHelpFunc(func(command *cobra.Command, arguments []string) {
		if command != cobraCommand {
			defaultHelpFunction(command, arguments)
			return
		}
		application.printRootHelp(command.OutOrStdout())
	})

	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	for _, action := range []string{reposync.ActionDeploy, reposync.ActionUpdate} {
		workflowBuilder := reposync.CommandBuilder{
			Action: action,
			LoggerProvider: func() *zap.Logger {
				return application.logger
			},
			ToolsConfigurationProvider: func() dependencies.ToolsConfiguration {
				return application.configuration.Tools
			},
			Locator: application.locator,
			Gateway: application.gateway,
		}
		workflowCommand, workflowBuildError := workflowBuilder.Build()
		if workflowBuildError == nil {
			cobraCommand.AddCommand(workflowCommand)
		}
	}

	serveBuilder := server.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() server.Configuration {
			return application.configuration.Server
		},
		ToolsConfigurationProvider: func() dependencies.ToolsConfiguration {
			return application.configuration.Tools
		},
		Locator: application.locator,
		Gateway: application.gateway,
	}
	serveCommand, serveBuildError := serveBuilder.Build()
	if serveBuildError == nil {
		cobraCommand.AddCommand(serveCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// ExecuteWithArguments runs the command hierarchy against arguments instead of os.Args.
func (application *Application) ExecuteWithArguments(arguments []string) error {
	application.rootCommand.SetArgs(arguments)
	return application.Execute()
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

// ReportError writes executionError to writer; usage errors are preceded by the usage line.
func ReportError(writer io.Writer, executionError error) {
	var usageError reposync.UsageError
	if errors.As(executionError, &usageError) {
		fmt.Fprintf(writer, usageErrorTemplateConstant, usageLineConstant, usageError.Message)
		return
	}
	fmt.Fprintf(writer, errorOutputTemplateConstant, executionError)
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range dependencies.DefaultConfigurationValues(toolsConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range server.DefaultConfigurationValues(serverConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logLevel, logLevelError := utils.ParseLogLevel(application.configuration.Common.LogLevel)
	if logLevelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logLevelError)
	}
	logFormat, logFormatError := utils.ParseLogFormat(application.configuration.Common.LogFormat)
	if logFormatError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logFormatError)
	}

	logger, loggerCreationError := utils.NewLoggerFactoryForWriter(application.standardError).CreateLogger(logLevel, logFormat)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, string(logLevel)),
		zap.String(configurationLogFormatFieldConstant, string(logFormat)),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(configurationR10kFieldConstant, application.locator.ConfigurationPath()),
	)

	return nil
}

// runRootCommand only sees arguments that name no subcommand, so it reports them the way a
// `(deploy|update) REF` parser would.
func (application *Application) runRootCommand(_ *cobra.Command, arguments []string) error {
	if len(arguments) != rootArgumentCountConstant {
		return reposync.NewArgumentCountError()
	}
	return reposync.NewUnknownActionError(arguments[0])
}

func (application *Application) printRootHelp(writer io.Writer) {
	helpSections := []string{
		usageLineConstant,
		applicationLongDescriptionConstant,
		rootHelpArgumentsConstant,
	}
	fmt.Fprintln(writer, strings.Join(helpSections, "\n\n"))
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
