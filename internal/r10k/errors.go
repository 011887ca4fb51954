package r10k

import "fmt"

const configurationParseErrorTemplateConstant = "couldn't parse r10k config %s"

// ConfigurationParseError reports an r10k configuration that is unreadable or has no unprefixed source.
type ConfigurationParseError struct {
	Path  string
	Cause error
}

// Error describes the configuration failure.
func (parseError ConfigurationParseError) Error() string {
	return fmt.Sprintf(configurationParseErrorTemplateConstant, parseError.Path)
}

// Unwrap exposes the underlying read or decode failure, if any.
func (parseError ConfigurationParseError) Unwrap() error {
	return parseError.Cause
}
