// Package refs classifies git reference names pushed to the control repository.
package refs
