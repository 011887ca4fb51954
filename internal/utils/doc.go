// Package utils houses the configuration loader and logger factory shared by the CLI commands.
//
// ConfigurationLoader layers embedded defaults, an optional YAML file and REPOSYNC_ environment
// overrides through Viper. LoggerFactory builds zap loggers writing to standard error.
package utils
