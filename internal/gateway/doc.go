// Package gateway runs the r10k and librarian-puppet operations behind a
// deployment and answers questions about environments, Puppetfiles, and
// remote branches.
//
// Environment locations come from the main source of the r10k configuration.
// Commands run through an injected executor, and Puppetfiles are read and
// written through an injected afero file system.
package gateway
