package reposync

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/metrics"
	"github.com/temirov/reposync/internal/refs"
)

const (
	// ActionDeploy deploys or removes the environment of a pushed control repository branch.
	ActionDeploy = "deploy"
	// ActionUpdate refreshes the modules of an environment after a module repository push.
	ActionUpdate = "update"
)

const (
	gatewayMissingMessageConstant        = "gateway not configured"
	logFieldReferenceConstant            = "ref"
	logFieldBranchConstant               = "branch"
	logFieldActionConstant               = "action"
	logFieldOutcomeConstant              = "outcome"
	logFieldEnvironmentConstant          = "environment"
	skippedNonBranchMessageConstant      = "Ref is not a branch; nothing to do"
	skippedAbsentBranchMessageConstant   = "Control repository has no such branch; nothing to update"
	deployingEnvironmentMessageConstant  = "Deploying environment"
	removingEnvironmentMessageConstant   = "Removing environment"
	updatingLibrariesMessageConstant     = "Updating libraries"
	workflowCompletedMessageConstant     = "Workflow completed"
	workflowFailedMessageConstant        = "Workflow failed"
	pinningPuppetfileMessageConstant     = "Pinning Puppetfile to branch"
	checkingControlBranchMessageConstant = "Checking control repository for branch"
)

// ErrGatewayNotConfigured indicates a Synchronizer without a Gateway.
var ErrGatewayNotConfigured = errors.New(gatewayMissingMessageConstant)

// Gateway performs the environment operations the workflows compose.
type Gateway interface {
	Deploy(executionContext context.Context, environment string) error
	Remove(executionContext context.Context, environment string) error
	UpdateLibraries(executionContext context.Context, environment string) error
	ControlRepoHasBranch(executionContext context.Context, branch string) (bool, error)
	WriteNewPuppetfile(executionContext context.Context, environment string, branch string) error
}

// Dependencies enumerates the collaborators of a Synchronizer.
type Dependencies struct {
	Gateway  Gateway
	Logger   *zap.Logger
	Recorder metrics.WorkflowRecorder
}

// Synchronizer runs the deploy and update workflows for one ref.
type Synchronizer struct {
	reference refs.Reference
	gateway   Gateway
	logger    *zap.Logger
	recorder  metrics.WorkflowRecorder
}

type noopWorkflowRecorder struct{}

func (noopWorkflowRecorder) RecordWorkflow(string, string) {}

// NewSynchronizer parses rawReference and binds it to the dependencies.
func NewSynchronizer(rawReference string, dependencies Dependencies) (*Synchronizer, error) {
	if dependencies.Gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var recorder metrics.WorkflowRecorder = noopWorkflowRecorder{}
	if dependencies.Recorder != nil {
		recorder = dependencies.Recorder
	}

	return &Synchronizer{
		reference: refs.Parse(rawReference),
		gateway:   dependencies.Gateway,
		logger:    logger,
		recorder:  recorder,
	}, nil
}

// Reference returns the parsed ref.
func (synchronizer *Synchronizer) Reference() refs.Reference {
	return synchronizer.reference
}

// Run dispatches to Deploy or UpdateLibraries by action name.
func (synchronizer *Synchronizer) Run(executionContext context.Context, action string) error {
	switch action {
	case ActionDeploy:
		return synchronizer.Deploy(executionContext)
	case ActionUpdate:
		return synchronizer.UpdateLibraries(executionContext)
	default:
		return UsageError{Message: unknownActionMessage(action)}
	}
}

// Deploy handles a push to the control repository.
//
// Non-branch refs do nothing. master is rejected with ConfigurationError before any gateway call.
// A branch present in the control repository is deployed and, unless it is production, gets its
// libraries updated. A branch missing from the control repository has its environment removed.
func (synchronizer *Synchronizer) Deploy(executionContext context.Context) error {
	outcome, deployError := synchronizer.deploy(executionContext)
	synchronizer.finish(ActionDeploy, outcome, deployError)
	return deployError
}

// UpdateLibraries handles a push to a module repository.
//
// Non-branch refs and branches missing from the control repository do nothing. Other branches are
// redeployed first, except master, which only updates the production environment.
func (synchronizer *Synchronizer) UpdateLibraries(executionContext context.Context) error {
	outcome, updateError := synchronizer.updateLibraries(executionContext)
	synchronizer.finish(ActionUpdate, outcome, updateError)
	return updateError
}

func (synchronizer *Synchronizer) deploy(executionContext context.Context) (string, error) {
	branch, isBranch := synchronizer.reference.Branch()
	if !isBranch {
		synchronizer.logSkip(ActionDeploy, skippedNonBranchMessageConstant)
		return metrics.OutcomeSkipped, nil
	}

	if branch == refs.MasterBranchName {
		return metrics.OutcomeFailed, ConfigurationError{Branch: branch, Message: masterEnvironmentMessageConstant}
	}

	hasBranch, branchError := synchronizer.controlRepoHasBranch(executionContext, ActionDeploy, branch)
	if branchError != nil {
		return metrics.OutcomeFailed, branchError
	}

	if !hasBranch {
		synchronizer.logger.Info(removingEnvironmentMessageConstant, synchronizer.fields(ActionDeploy, zap.String(logFieldEnvironmentConstant, branch))...)
		if removeError := synchronizer.gateway.Remove(executionContext, branch); removeError != nil {
			return metrics.OutcomeFailed, removeError
		}
		return metrics.OutcomeSucceeded, nil
	}

	if deployError := synchronizer.deployEnvironment(executionContext, ActionDeploy, branch); deployError != nil {
		return metrics.OutcomeFailed, deployError
	}
	if branch != refs.ProductionBranchName {
		if updateError := synchronizer.updateEnvironmentLibraries(executionContext, ActionDeploy, branch); updateError != nil {
			return metrics.OutcomeFailed, updateError
		}
	}
	return metrics.OutcomeSucceeded, nil
}

func (synchronizer *Synchronizer) updateLibraries(executionContext context.Context) (string, error) {
	branch, isBranch := synchronizer.reference.Branch()
	if !isBranch {
		synchronizer.logSkip(ActionUpdate, skippedNonBranchMessageConstant)
		return metrics.OutcomeSkipped, nil
	}

	hasBranch, branchError := synchronizer.controlRepoHasBranch(executionContext, ActionUpdate, branch)
	if branchError != nil {
		return metrics.OutcomeFailed, branchError
	}
	if !hasBranch {
		synchronizer.logSkip(ActionUpdate, skippedAbsentBranchMessageConstant)
		return metrics.OutcomeSkipped, nil
	}

	if branch != refs.MasterBranchName {
		if deployError := synchronizer.deployEnvironment(executionContext, ActionUpdate, branch); deployError != nil {
			return metrics.OutcomeFailed, deployError
		}
	}
	if updateError := synchronizer.updateEnvironmentLibraries(executionContext, ActionUpdate, branch); updateError != nil {
		return metrics.OutcomeFailed, updateError
	}
	return metrics.OutcomeSucceeded, nil
}

// controlRepoHasBranch treats master as present without asking the control repository.
func (synchronizer *Synchronizer) controlRepoHasBranch(executionContext context.Context, action string, branch string) (bool, error) {
	if branch == refs.MasterBranchName {
		return true, nil
	}
	synchronizer.logger.Debug(checkingControlBranchMessageConstant, synchronizer.fields(action)...)
	return synchronizer.gateway.ControlRepoHasBranch(executionContext, branch)
}

func (synchronizer *Synchronizer) deployEnvironment(executionContext context.Context, action string, branch string) error {
	synchronizer.logger.Info(deployingEnvironmentMessageConstant, synchronizer.fields(action, zap.String(logFieldEnvironmentConstant, branch))...)
	return synchronizer.gateway.Deploy(executionContext, branch)
}

// updateEnvironmentLibraries routes master and production to the production environment without
// touching its Puppetfile; other branches get their Puppetfile pinned first.
func (synchronizer *Synchronizer) updateEnvironmentLibraries(executionContext context.Context, action string, branch string) error {
	if branch == refs.MasterBranchName || branch == refs.ProductionBranchName {
		synchronizer.logger.Info(updatingLibrariesMessageConstant, synchronizer.fields(action, zap.String(logFieldEnvironmentConstant, refs.ProductionBranchName))...)
		return synchronizer.gateway.UpdateLibraries(executionContext, refs.ProductionBranchName)
	}

	synchronizer.logger.Info(pinningPuppetfileMessageConstant, synchronizer.fields(action, zap.String(logFieldEnvironmentConstant, branch))...)
	if writeError := synchronizer.gateway.WriteNewPuppetfile(executionContext, branch, branch); writeError != nil {
		return writeError
	}
	synchronizer.logger.Info(updatingLibrariesMessageConstant, synchronizer.fields(action, zap.String(logFieldEnvironmentConstant, branch))...)
	return synchronizer.gateway.UpdateLibraries(executionContext, branch)
}

func (synchronizer *Synchronizer) finish(action string, outcome string, workflowError error) {
	synchronizer.recorder.RecordWorkflow(action, outcome)
	if workflowError != nil {
		synchronizer.logger.Error(workflowFailedMessageConstant, synchronizer.fields(action, zap.String(logFieldOutcomeConstant, outcome), zap.Error(workflowError))...)
		return
	}
	synchronizer.logger.Info(workflowCompletedMessageConstant, synchronizer.fields(action, zap.String(logFieldOutcomeConstant, outcome))...)
}

func (synchronizer *Synchronizer) logSkip(action string, message string) {
	synchronizer.logger.Debug(message, synchronizer.fields(action)...)
}

func (synchronizer *Synchronizer) fields(action string, extra ...zap.Field) []zap.Field {
	branch, _ := synchronizer.reference.Branch()
	fields := []zap.Field{
		zap.String(logFieldReferenceConstant, synchronizer.reference.Raw()),
		zap.String(logFieldBranchConstant, branch),
		zap.String(logFieldActionConstant, action),
	}
	return append(fields, extra...)
}
