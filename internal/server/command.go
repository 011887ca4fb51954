package server

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/dependencies"
	"github.com/temirov/reposync/internal/metrics"
	"github.com/temirov/reposync/internal/r10k"
	"github.com/temirov/reposync/internal/reposync"
)

const (
	commandUseConstant              = "serve"
	commandShortDescriptionConstant = "Serve the deploy and update workflows over HTTP"
	commandLongDescriptionConstant  = "serve listens for post-receive callbacks on /deploy/REF and /update/REF, GitHub push webhooks on /webhook/deploy and /webhook/update, and exposes Prometheus metrics on /metrics."
	commandExampleConstant          = "reposync serve --config /etc/reposync/config.yaml"
	serverStartingMessageConstant   = "Starting HTTP server"
	logFieldListenAddressConstant   = "listen_address"
	logFieldMetricsEnabledConstant  = "metrics_enabled"
	logFieldWebhookSignedConstant   = "webhook_signature_required"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the serve command.
type CommandBuilder struct {
	LoggerProvider             LoggerProvider
	ConfigurationProvider      func() Configuration
	ToolsConfigurationProvider func() dependencies.ToolsConfiguration
	Locator                    r10k.Locator

	// Gateway replaces the gateway wired from configuration.
	Gateway reposync.Gateway
}

// Build constructs the serve command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := builder.resolveLogger()
	configuration := builder.resolveConfiguration()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, recorderError := metrics.NewRecorder(registry)
	if recorderError != nil {
		return recorderError
	}

	environmentGateway, gatewayError := builder.resolveGateway(logger, recorder)
	if gatewayError != nil {
		return gatewayError
	}

	handler, handlerError := NewHandler(HandlerDependencies{
		Gateway:       environmentGateway,
		Logger:        logger,
		Recorder:      recorder,
		Gatherer:      registry,
		Configuration: configuration,
	})
	if handlerError != nil {
		return handlerError
	}

	logger.Info(serverStartingMessageConstant,
		zap.String(logFieldListenAddressConstant, configuration.ListenAddress),
		zap.Bool(logFieldMetricsEnabledConstant, configuration.MetricsEnabled),
		zap.Bool(logFieldWebhookSignedConstant, len(configuration.WebhookSecret) > 0),
	)

	signalContext, stopSignals := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	return NewServer(configuration, handler, logger).ListenAndServe(signalContext)
}

func (builder *CommandBuilder) resolveGateway(logger *zap.Logger, recorder *metrics.Recorder) (reposync.Gateway, error) {
	if builder.Gateway != nil {
		return builder.Gateway, nil
	}
	tools := dependencies.DefaultToolsConfiguration()
	if builder.ToolsConfigurationProvider != nil {
		tools = builder.ToolsConfigurationProvider()
	}
	environmentGateway, resolveError := dependencies.ResolveGateway(dependencies.GatewayOptions{
		Logger:          logger,
		Tools:           tools,
		Locator:         builder.Locator,
		CommandObserver: recorder,
	})
	if resolveError != nil {
		return nil, resolveError
	}
	return environmentGateway, nil
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
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
