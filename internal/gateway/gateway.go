package gateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/gitremote"
	"github.com/temirov/reposync/internal/puppetfile"
	"github.com/temirov/reposync/internal/r10k"
)

const (
	r10kDeploySubcommandConstant          = "deploy"
	r10kConfigurationFlagConstant         = "-c"
	r10kEnvironmentSubcommandConstant     = "environment"
	librarianUpdateSubcommandConstant     = "update"
	environmentNameSeparatorConstant      = "-"
	environmentDirectorySeparatorConstant = "_"
	toolExecutorMissingMessageConstant    = "tool executor not configured"
	branchListerMissingMessageConstant    = "branch lister not configured"
	readPuppetfileErrorTemplateConstant   = "read %s: %w"
	statPuppetfileErrorTemplateConstant   = "stat %s: %w"
	writePuppetfileErrorTemplateConstant  = "write %s: %w"
	logFieldEnvironmentConstant           = "environment"
	logFieldBranchConstant                = "branch"
	logFieldRepositoryConstant            = "repository"
	logFieldPathConstant                  = "path"
	logFieldPinnedRepositoriesConstant    = "pinned_repositories"
	branchListingFailedMessageConstant    = "Branch listing failed; treating branch as absent"
	puppetfileGeneratedMessageConstant    = "Generated Puppetfile"
	puppetfileWrittenMessageConstant      = "Wrote Puppetfile"
	environmentRemovedMessageConstant     = "r10k removed environment"
)

// ErrToolExecutorNotConfigured indicates the gateway was built without a tool executor.
var ErrToolExecutorNotConfigured = errors.New(toolExecutorMissingMessageConstant)

// ErrBranchListerNotConfigured indicates the gateway was built without a branch lister.
var ErrBranchListerNotConfigured = errors.New(branchListerMissingMessageConstant)

// ToolExecutor runs r10k and librarian-puppet.
type ToolExecutor interface {
	ExecuteR10k(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteLibrarian(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// SourceProvider returns the main r10k source.
type SourceProvider interface {
	MainSource() (r10k.Source, error)
}

// Dependencies enumerates the collaborators of a Gateway.
type Dependencies struct {
	ToolExecutor ToolExecutor
	BranchLister gitremote.BranchLister
	Locator      r10k.Locator
	Logger       *zap.Logger

	// SourceProvider defaults to an r10k.SourceLoader reading Locator's path from FileSystem.
	SourceProvider SourceProvider

	// FileSystem defaults to the OS file system.
	FileSystem afero.Fs
}

// Gateway performs environment operations. It keeps no state between calls.
type Gateway struct {
	toolExecutor   ToolExecutor
	branchLister   gitremote.BranchLister
	locator        r10k.Locator
	sourceProvider SourceProvider
	fileSystem     afero.Fs
	logger         *zap.Logger
}

// NewGateway validates dependencies and constructs a Gateway.
func NewGateway(dependencies Dependencies) (*Gateway, error) {
	if dependencies.ToolExecutor == nil {
		return nil, ErrToolExecutorNotConfigured
	}
	if dependencies.BranchLister == nil {
		return nil, ErrBranchListerNotConfigured
	}

	fileSystem := dependencies.FileSystem
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	sourceProvider := dependencies.SourceProvider
	if sourceProvider == nil {
		sourceProvider = r10k.NewSourceLoader(dependencies.Locator, fileSystem)
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway{
		toolExecutor:   dependencies.ToolExecutor,
		branchLister:   dependencies.BranchLister,
		locator:        dependencies.Locator,
		sourceProvider: sourceProvider,
		fileSystem:     fileSystem,
		logger:         logger,
	}, nil
}

// R10kArguments returns the r10k arguments deploying environment, with -c after deploy when an override is active.
func (gateway *Gateway) R10kArguments(environment string) []string {
	arguments := []string{r10kDeploySubcommandConstant}
	if configurationPath, hasOverride := gateway.locator.ConfigurationOverride(); hasOverride {
		arguments = append(arguments, r10kConfigurationFlagConstant, configurationPath)
	}
	return append(arguments, r10kEnvironmentSubcommandConstant, environment)
}

// Deploy runs r10k for environment.
func (gateway *Gateway) Deploy(executionContext context.Context, environment string) error {
	if _, executionError := gateway.runR10k(executionContext, environment); executionError != nil {
		return DeployError{Environment: environment, Cause: executionError}
	}
	return nil
}

// Remove runs the same r10k command as Deploy for a branch that no longer exists upstream.
// A non-zero exit means r10k removed the environment; a zero exit is reported as RemoveError.
func (gateway *Gateway) Remove(executionContext context.Context, environment string) error {
	_, executionError := gateway.runR10k(executionContext, environment)
	if executionError == nil {
		return RemoveError{Environment: environment}
	}

	var failedError execshell.CommandFailedError
	if !errors.As(executionError, &failedError) {
		return RemoveError{Environment: environment, Cause: executionError}
	}

	gateway.logger.Info(environmentRemovedMessageConstant, zap.String(logFieldEnvironmentConstant, environment))
	return nil
}

// UpdateLibraries runs librarian-puppet update inside the environment directory.
func (gateway *Gateway) UpdateLibraries(executionContext context.Context, environment string) error {
	environmentPath, pathError := gateway.EnvironmentPath(environment)
	if pathError != nil {
		return pathError
	}

	_, executionError := gateway.toolExecutor.ExecuteLibrarian(executionContext, execshell.CommandDetails{
		Arguments:        []string{librarianUpdateSubcommandConstant},
		WorkingDirectory: environmentPath,
	})
	if executionError != nil {
		return LibraryUpdateError{Environment: environment, Cause: executionError}
	}
	return nil
}

// BranchExistsInRepo reports whether repository has a head named exactly branch.
// Listing failures are logged and reported as absent.
func (gateway *Gateway) BranchExistsInRepo(executionContext context.Context, branch string, repository string) bool {
	listing, listError := gateway.branchLister.ListBranches(executionContext, repository)
	if listError != nil {
		gateway.logger.Warn(branchListingFailedMessageConstant,
			zap.String(logFieldBranchConstant, branch),
			zap.String(logFieldRepositoryConstant, repository),
			zap.Error(listError),
		)
		return false
	}
	return gitremote.HasHead(listing, branch)
}

// ControlRepoHasBranch checks branch against the main source remote. Only configuration problems return an error.
func (gateway *Gateway) ControlRepoHasBranch(executionContext context.Context, branch string) (bool, error) {
	controlRepository, repositoryError := gateway.ControlRepository()
	if repositoryError != nil {
		return false, repositoryError
	}
	return gateway.BranchExistsInRepo(executionContext, branch, controlRepository), nil
}

// GenerateNewPuppetfile returns the environment's Puppetfile with branch pinned on every git source that has it.
// The file is not modified.
func (gateway *Gateway) GenerateNewPuppetfile(executionContext context.Context, environment string, branch string) (string, error) {
	puppetfilePath, pathError := gateway.PuppetfilePath(environment)
	if pathError != nil {
		return "", pathError
	}

	content, readError := afero.ReadFile(gateway.fileSystem, puppetfilePath)
	if readError != nil {
		return "", fmt.Errorf(readPuppetfileErrorTemplateConstant, puppetfilePath, readError)
	}

	result := puppetfile.PinBranch(string(content), branch, func(repository string) bool {
		return gateway.BranchExistsInRepo(executionContext, branch, repository)
	})
	gateway.logger.Debug(puppetfileGeneratedMessageConstant,
		zap.String(logFieldPathConstant, puppetfilePath),
		zap.String(logFieldBranchConstant, branch),
		zap.Strings(logFieldPinnedRepositoriesConstant, result.PinnedRepositories),
	)
	return result.Content, nil
}

// WriteNewPuppetfile rewrites the environment's Puppetfile in place, keeping its file mode.
func (gateway *Gateway) WriteNewPuppetfile(executionContext context.Context, environment string, branch string) error {
	puppetfilePath, pathError := gateway.PuppetfilePath(environment)
	if pathError != nil {
		return pathError
	}

	fileInfo, statError := gateway.fileSystem.Stat(puppetfilePath)
	if statError != nil {
		return fmt.Errorf(statPuppetfileErrorTemplateConstant, puppetfilePath, statError)
	}

	content, generateError := gateway.GenerateNewPuppetfile(executionContext, environment, branch)
	if generateError != nil {
		return generateError
	}

	if writeError := afero.WriteFile(gateway.fileSystem, puppetfilePath, []byte(content), fileInfo.Mode().Perm()); writeError != nil {
		return fmt.Errorf(writePuppetfileErrorTemplateConstant, puppetfilePath, writeError)
	}
	gateway.logger.Info(puppetfileWrittenMessageConstant,
		zap.String(logFieldPathConstant, puppetfilePath),
		zap.String(logFieldBranchConstant, branch),
	)
	return nil
}

// EnvironmentPath joins the environments directory with environment, every "-" replaced by "_".
func (gateway *Gateway) EnvironmentPath(environment string) (string, error) {
	environmentsDirectory, directoryError := gateway.EnvironmentsDirectory()
	if directoryError != nil {
		return "", directoryError
	}
	return filepath.Join(environmentsDirectory, EnvironmentDirectoryName(environment)), nil
}

// PuppetfilePath returns the Puppetfile inside the environment directory.
func (gateway *Gateway) PuppetfilePath(environment string) (string, error) {
	environmentPath, pathError := gateway.EnvironmentPath(environment)
	if pathError != nil {
		return "", pathError
	}
	return filepath.Join(environmentPath, puppetfile.FileName), nil
}

// ControlRepository returns the remote of the main source.
func (gateway *Gateway) ControlRepository() (string, error) {
	source, sourceError := gateway.sourceProvider.MainSource()
	if sourceError != nil {
		return "", sourceError
	}
	return source.Remote, nil
}

// EnvironmentsDirectory returns the basedir of the main source.
func (gateway *Gateway) EnvironmentsDirectory() (string, error) {
	source, sourceError := gateway.sourceProvider.MainSource()
	if sourceError != nil {
		return "", sourceError
	}
	return source.Basedir, nil
}

// EnvironmentDirectoryName maps an environment name to its directory name.
func EnvironmentDirectoryName(environment string) string {
	return strings.ReplaceAll(environment, environmentNameSeparatorConstant, environmentDirectorySeparatorConstant)
}

func (gateway *Gateway) runR10k(executionContext context.Context, environment string) (execshell.ExecutionResult, error) {
	return gateway.toolExecutor.ExecuteR10k(executionContext, execshell.CommandDetails{
		Arguments: gateway.R10kArguments(environment),
	})
}
