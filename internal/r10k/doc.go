// Package r10k locates and parses the r10k configuration that names the control
// repository and the directory holding deployed environments.
package r10k
