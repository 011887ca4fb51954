package dependencies

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/execshell"
	"github.com/temirov/reposync/internal/gateway"
	"github.com/temirov/reposync/internal/gitremote"
	"github.com/temirov/reposync/internal/r10k"
)

const unsupportedBranchListerTemplateConstant = "unsupported branch lister %q (expected %s or %s)"

// GatewayOptions configures ResolveGateway.
type GatewayOptions struct {
	Logger          *zap.Logger
	Tools           ToolsConfiguration
	Locator         r10k.Locator
	CommandObserver execshell.CommandEventObserver
	FileSystem      afero.Fs
	CommandRunner   execshell.CommandRunner
	BranchLister    gitremote.BranchLister
}

// ResolveShellExecutor builds a shell executor launching the configured executables.
// A nil runner falls back to the OS runner.
func ResolveShellExecutor(logger *zap.Logger, runner execshell.CommandRunner, tools ToolsConfiguration, observer execshell.CommandEventObserver) (*execshell.ShellExecutor, error) {
	if runner == nil {
		runner = execshell.NewOSCommandRunner()
	}
	sanitizedTools := tools.Sanitize()
	return execshell.NewShellExecutor(
		logger,
		runner,
		execshell.WithCommandEventObserver(observer),
		execshell.WithExecutable(execshell.CommandR10k, sanitizedTools.R10k),
		execshell.WithExecutable(execshell.CommandLibrarian, sanitizedTools.Librarian),
		execshell.WithExecutable(execshell.CommandGit, sanitizedTools.Git),
	)
}

// ResolveBranchLister returns the provided lister or builds the one named by kind.
func ResolveBranchLister(existing gitremote.BranchLister, kind string, executor gitremote.GitExecutor) (gitremote.BranchLister, error) {
	if existing != nil {
		return existing, nil
	}
	switch kind {
	case gitremote.ListerKindShell:
		return gitremote.NewShellBranchLister(executor)
	case gitremote.ListerKindNative:
		return gitremote.NewNativeBranchLister(), nil
	default:
		return nil, fmt.Errorf(unsupportedBranchListerTemplateConstant, kind, gitremote.ListerKindShell, gitremote.ListerKindNative)
	}
}

// ResolveFileSystem returns the provided file system or the OS file system.
func ResolveFileSystem(existing afero.Fs) afero.Fs {
	if existing != nil {
		return existing
	}
	return afero.NewOsFs()
}

// ResolveGateway wires a gateway from configuration.
func ResolveGateway(options GatewayOptions) (*gateway.Gateway, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sanitizedTools := options.Tools.Sanitize()

	shellExecutor, executorError := ResolveShellExecutor(logger, options.CommandRunner, sanitizedTools, options.CommandObserver)
	if executorError != nil {
		return nil, executorError
	}

	branchLister, listerError := ResolveBranchLister(options.BranchLister, sanitizedTools.BranchLister, shellExecutor)
	if listerError != nil {
		return nil, listerError
	}

	return gateway.NewGateway(gateway.Dependencies{
		ToolExecutor: shellExecutor,
		BranchLister: branchLister,
		Locator:      options.Locator,
		Logger:       logger,
		FileSystem:   ResolveFileSystem(options.FileSystem),
	})
}
