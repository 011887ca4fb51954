package r10k

import "os"

const (
	// DefaultConfigurationPath is where r10k looks for its configuration without an override.
	DefaultConfigurationPath = "/etc/puppetlabs/r10k/r10k.yaml"
	// ConfigurationEnvironmentVariable names the variable holding an alternative configuration path.
	ConfigurationEnvironmentVariable = "PUPPET_R10K_CONFIG"
)

// Locator resolves the r10k configuration path. It is built once at startup and never changes.
type Locator struct {
	override string
}

// NewLocator builds a Locator from a raw override value. Empty values and the default path mean no override.
func NewLocator(overrideValue string) Locator {
	if len(overrideValue) == 0 || overrideValue == DefaultConfigurationPath {
		return Locator{}
	}
	return Locator{override: overrideValue}
}

// NewLocatorFromEnvironment reads PUPPET_R10K_CONFIG from the process environment.
func NewLocatorFromEnvironment() Locator {
	return NewLocator(os.Getenv(ConfigurationEnvironmentVariable))
}

// ConfigurationOverride returns the override passed to r10k with -c, if any.
func (locator Locator) ConfigurationOverride() (string, bool) {
	return locator.override, len(locator.override) > 0
}

// ConfigurationPath returns the file r10k reads: the override or the default path.
func (locator Locator) ConfigurationPath() string {
	if overridePath, hasOverride := locator.ConfigurationOverride(); hasOverride {
		return overridePath
	}
	return DefaultConfigurationPath
}

// String describes the resolved path for logging.
func (locator Locator) String() string {
	return locator.ConfigurationPath()
}
