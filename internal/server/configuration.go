package server

import "strings"

const (
	defaultListenAddressConstant      = ":4567"
	listenAddressKeyConstant          = "listen_address"
	metricsEnabledKeyConstant         = "metrics_enabled"
	webhookSecretKeyConstant          = "webhook_secret"
	configurationKeySeparatorConstant = "."
)

// Configuration describes the HTTP front end.
type Configuration struct {
	ListenAddress  string `mapstructure:"listen_address"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
}

// DefaultConfiguration listens on :4567 with metrics enabled and unsigned webhooks.
func DefaultConfiguration() Configuration {
	return Configuration{
		ListenAddress:  defaultListenAddressConstant,
		MetricsEnabled: true,
	}
}

// Sanitize trims values and restores the default listen address when blank.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.ListenAddress = strings.TrimSpace(configuration.ListenAddress)
	sanitized.WebhookSecret = strings.TrimSpace(configuration.WebhookSecret)
	if len(sanitized.ListenAddress) == 0 {
		sanitized.ListenAddress = defaultListenAddressConstant
	}
	return sanitized
}

// DefaultConfigurationValues returns viper defaults for the server section rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		prefix + configurationKeySeparatorConstant + listenAddressKeyConstant:  defaults.ListenAddress,
		prefix + configurationKeySeparatorConstant + metricsEnabledKeyConstant: defaults.MetricsEnabled,
		prefix + configurationKeySeparatorConstant + webhookSecretKeyConstant:  defaults.WebhookSecret,
	}
}
