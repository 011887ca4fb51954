package reposync

const masterEnvironmentMessageConstant = "you cannot have a master environment"

// ConfigurationError reports a ref that can never be deployed.
type ConfigurationError struct {
	Branch  string
	Message string
}

// Error returns the message.
func (configurationError ConfigurationError) Error() string {
	return configurationError.Message
}

// UsageError reports command-line arguments that do not match `(deploy|update) REF`.
type UsageError struct {
	Message string
}

// Error returns the message.
func (usageError UsageError) Error() string {
	return usageError.Message
}
