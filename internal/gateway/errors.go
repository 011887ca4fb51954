package gateway

import "fmt"

const (
	deployErrorTemplateConstant        = "r10k failed to deploy environment %s"
	removeErrorTemplateConstant        = "r10k didn't remove environment %s"
	libraryUpdateErrorTemplateConstant = "librarian-puppet failed to update %s"
)

// DeployError reports an r10k deploy that exited non-zero or could not start.
type DeployError struct {
	Environment string
	Cause       error
}

// Error describes the failed deploy.
func (deployError DeployError) Error() string {
	return fmt.Sprintf(deployErrorTemplateConstant, deployError.Environment)
}

// Unwrap exposes the command failure.
func (deployError DeployError) Unwrap() error {
	return deployError.Cause
}

// RemoveError reports a removal that r10k did not perform: r10k exited zero, or could not start.
type RemoveError struct {
	Environment string
	Cause       error
}

// Error describes the failed removal.
func (removeError RemoveError) Error() string {
	return fmt.Sprintf(removeErrorTemplateConstant, removeError.Environment)
}

// Unwrap exposes the start failure, if any.
func (removeError RemoveError) Unwrap() error {
	return removeError.Cause
}

// LibraryUpdateError reports a librarian-puppet update that exited non-zero or could not start.
type LibraryUpdateError struct {
	Environment string
	Cause       error
}

// Error describes the failed update.
func (updateError LibraryUpdateError) Error() string {
	return fmt.Sprintf(libraryUpdateErrorTemplateConstant, updateError.Environment)
}

// Unwrap exposes the command failure.
func (updateError LibraryUpdateError) Unwrap() error {
	return updateError.Cause
}
