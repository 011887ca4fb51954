// Package cli constructs the reposync command-line interface.
//
// The root command accepts `(deploy|update) REF` and also exposes a serve command. Configuration
// comes from the embedded defaults, an optional config.yaml and REPOSYNC_ environment variables;
// the r10k configuration path stays driven by PUPPET_R10K_CONFIG.
package cli
