package reposync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/reposync/internal/gateway"
	"github.com/temirov/reposync/internal/metrics"
	"github.com/temirov/reposync/internal/reposync"
)

const (
	gatewayDeployMethodConstant          = "Deploy"
	gatewayRemoveMethodConstant          = "Remove"
	gatewayUpdateLibrariesMethodConstant = "UpdateLibraries"
	gatewayHasBranchMethodConstant       = "ControlRepoHasBranch"
	gatewayWritePuppetfileMethodConstant = "WriteNewPuppetfile"
	featureReferenceConstant             = "refs/heads/feature-login"
	featureBranchConstant                = "feature-login"
	masterReferenceConstant              = "refs/heads/master"
	productionReferenceConstant          = "refs/heads/production"
	tagReferenceConstant                 = "refs/tags/v1.2.0"
	productionEnvironmentConstant        = "production"
)

type mockGateway struct {
	mock.Mock
	calls []string
}

func (gatewayDouble *mockGateway) Deploy(executionContext context.Context, environment string) error {
	gatewayDouble.calls = append(gatewayDouble.calls, gatewayDeployMethodConstant+" "+environment)
	return gatewayDouble.Called(executionContext, environment).Error(0)
}

func (gatewayDouble *mockGateway) Remove(executionContext context.Context, environment string) error {
	gatewayDouble.calls = append(gatewayDouble.calls, gatewayRemoveMethodConstant+" "+environment)
	return gatewayDouble.Called(executionContext, environment).Error(0)
}

func (gatewayDouble *mockGateway) UpdateLibraries(executionContext context.Context, environment string) error {
	gatewayDouble.calls = append(gatewayDouble.calls, gatewayUpdateLibrariesMethodConstant+" "+environment)
	return gatewayDouble.Called(executionContext, environment).Error(0)
}

func (gatewayDouble *mockGateway) ControlRepoHasBranch(executionContext context.Context, branch string) (bool, error) {
	gatewayDouble.calls = append(gatewayDouble.calls, gatewayHasBranchMethodConstant+" "+branch)
	arguments := gatewayDouble.Called(executionContext, branch)
	return arguments.Bool(0), arguments.Error(1)
}

func (gatewayDouble *mockGateway) WriteNewPuppetfile(executionContext context.Context, environment string, branch string) error {
	gatewayDouble.calls = append(gatewayDouble.calls, gatewayWritePuppetfileMethodConstant+" "+environment+" "+branch)
	return gatewayDouble.Called(executionContext, environment, branch).Error(0)
}

type recordedWorkflow struct {
	action  string
	outcome string
}

type recordingWorkflowRecorder struct {
	workflows []recordedWorkflow
}

func (recorder *recordingWorkflowRecorder) RecordWorkflow(action string, outcome string) {
	recorder.workflows = append(recorder.workflows, recordedWorkflow{action: action, outcome: outcome})
}

func TestSynchronizerDeploy(testInstance *testing.T) {
	testCases := []struct {
		name            string
		reference       string
		configure       func(gatewayDouble *mockGateway)
		expectedCalls   []string
		expectedOutcome string
		expectError     bool
	}{
		{
			name:            "tag is a no-op",
			reference:       tagReferenceConstant,
			configure:       func(*mockGateway) {},
			expectedOutcome: metrics.OutcomeSkipped,
		},
		{
			name:            "master is rejected before any gateway call",
			reference:       masterReferenceConstant,
			configure:       func(*mockGateway) {},
			expectedOutcome: metrics.OutcomeFailed,
			expectError:     true,
		},
		{
			name:      "existing branch is deployed and pinned",
			reference: featureReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(true, nil)
				gatewayDouble.On(gatewayDeployMethodConstant, mock.Anything, featureBranchConstant).Return(nil)
				gatewayDouble.On(gatewayWritePuppetfileMethodConstant, mock.Anything, featureBranchConstant, featureBranchConstant).Return(nil)
				gatewayDouble.On(gatewayUpdateLibrariesMethodConstant, mock.Anything, featureBranchConstant).Return(nil)
			},
			expectedCalls: []string{
				"ControlRepoHasBranch feature-login",
				"Deploy feature-login",
				"WriteNewPuppetfile feature-login feature-login",
				"UpdateLibraries feature-login",
			},
			expectedOutcome: metrics.OutcomeSucceeded,
		},
		{
			name:      "production is deployed without library update",
			reference: productionReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, productionEnvironmentConstant).Return(true, nil)
				gatewayDouble.On(gatewayDeployMethodConstant, mock.Anything, productionEnvironmentConstant).Return(nil)
			},
			expectedCalls: []string{
				"ControlRepoHasBranch production",
				"Deploy production",
			},
			expectedOutcome: metrics.OutcomeSucceeded,
		},
		{
			name:      "absent branch is removed",
			reference: featureReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(false, nil)
				gatewayDouble.On(gatewayRemoveMethodConstant, mock.Anything, featureBranchConstant).Return(nil)
			},
			expectedCalls: []string{
				"ControlRepoHasBranch feature-login",
				"Remove feature-login",
			},
			expectedOutcome: metrics.OutcomeSucceeded,
		},
		{
			name:      "deploy failure stops the workflow",
			reference: featureReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(true, nil)
				gatewayDouble.On(gatewayDeployMethodConstant, mock.Anything, featureBranchConstant).Return(gateway.DeployError{Environment: featureBranchConstant})
			},
			expectedCalls: []string{
				"ControlRepoHasBranch feature-login",
				"Deploy feature-login",
			},
			expectedOutcome: metrics.OutcomeFailed,
			expectError:     true,
		},
		{
			name:      "remove failure is returned",
			reference: featureReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(false, nil)
				gatewayDouble.On(gatewayRemoveMethodConstant, mock.Anything, featureBranchConstant).Return(gateway.RemoveError{Environment: featureBranchConstant})
			},
			expectedCalls: []string{
				"ControlRepoHasBranch feature-login",
				"Remove feature-login",
			},
			expectedOutcome: metrics.OutcomeFailed,
			expectError:     true,
		},
		{
			name:      "puppetfile failure skips library update",
			reference: featureReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(true, nil)
				gatewayDouble.On(gatewayDeployMethodConstant, mock.Anything, featureBranchConstant).Return(nil)
				gatewayDouble.On(gatewayWritePuppetfileMethodConstant, mock.Anything, featureBranchConstant, featureBranchConstant).Return(errors.New("read failed"))
			},
			expectedCalls: []string{
				"ControlRepoHasBranch feature-login",
				"Deploy feature-login",
				"WriteNewPuppetfile feature-login feature-login",
			},
			expectedOutcome: metrics.OutcomeFailed,
			expectError:     true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			gatewayDouble := &mockGateway{}
			testCase.configure(gatewayDouble)
			recorder := &recordingWorkflowRecorder{}

			synchronizer, synchronizerError := reposync.NewSynchronizer(testCase.reference, reposync.Dependencies{
				Gateway:  gatewayDouble,
				Recorder: recorder,
			})
			require.NoError(subTest, synchronizerError)

			deployError := synchronizer.Deploy(context.Background())
			if testCase.expectError {
				require.Error(subTest, deployError)
			} else {
				require.NoError(subTest, deployError)
			}

			require.Equal(subTest, testCase.expectedCalls, gatewayDouble.calls)
			require.Equal(subTest, []recordedWorkflow{{action: reposync.ActionDeploy, outcome: testCase.expectedOutcome}}, recorder.workflows)
			gatewayDouble.AssertExpectations(subTest)
		})
	}
}

func TestSynchronizerDeployRejectsMaster(testInstance *testing.T) {
	gatewayDouble := &mockGateway{}
	synchronizer, synchronizerError := reposync.NewSynchronizer(masterReferenceConstant, reposync.Dependencies{Gateway: gatewayDouble})
	require.NoError(testInstance, synchronizerError)

	deployError := synchronizer.Deploy(context.Background())

	var configurationError reposync.ConfigurationError
	require.ErrorAs(testInstance, deployError, &configurationError)
	require.Equal(testInstance, "master", configurationError.Branch)
	require.EqualError(testInstance, deployError, "you cannot have a master environment")
	gatewayDouble.AssertNotCalled(testInstance, gatewayHasBranchMethodConstant, mock.Anything, mock.Anything)
	require.Empty(testInstance, gatewayDouble.calls)
}

func TestSynchronizerUpdateLibraries(testInstance *testing.T) {
	testCases := []struct {
		name            string
		reference       string
		configure       func(gatewayDouble *mockGateway)
		expectedCalls   []string
		expectedOutcome string
		expectError     bool
	}{
		{
			name:            "tag is a no-op",
			reference:       tagReferenceConstant,
			configure:       func(*mockGateway) {},
			expectedOutcome: metrics.OutcomeSkipped,
		},
		{
			name:      "master updates production without a branch query",
			reference: masterReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayUpdateLibrariesMethodConstant, mock.Anything, productionEnvironmentConstant).Return(nil)
			},
			expectedCalls:   []string{"UpdateLibraries production"},
			expectedOutcome: metrics.OutcomeSucceeded,
		},
		{
			name:      "production is redeployed and updated unpinned",
			reference: productionReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, productionEnvironmentConstant).Return(true, nil)
				gatewayDouble.On(gatewayDeployMethodConstant, mock.Anything, productionEnvironmentConstant).Return(nil)
				gatewayDouble.On(gatewayUpdateLibrariesMethodConstant, mock.Anything, productionEnvironmentConstant).Return(nil)
			},
			expectedCalls: []string{
				"ControlRepoHasBranch production",
				"Deploy production",
				"UpdateLibraries production",
			},
			expectedOutcome: metrics.OutcomeSucceeded,
		},
		{
			name:      "existing branch is redeployed pinned and updated",
			reference: featureReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(true, nil)
				gatewayDouble.On(gatewayDeployMethodConstant, mock.Anything, featureBranchConstant).Return(nil)
				gatewayDouble.On(gatewayWritePuppetfileMethodConstant, mock.Anything, featureBranchConstant, featureBranchConstant).Return(nil)
				gatewayDouble.On(gatewayUpdateLibrariesMethodConstant, mock.Anything, featureBranchConstant).Return(nil)
			},
			expectedCalls: []string{
				"ControlRepoHasBranch feature-login",
				"Deploy feature-login",
				"WriteNewPuppetfile feature-login feature-login",
				"UpdateLibraries feature-login",
			},
			expectedOutcome: metrics.OutcomeSucceeded,
		},
		{
			name:      "branch absent from control repository is a no-op",
			reference: featureReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(false, nil)
			},
			expectedCalls:   []string{"ControlRepoHasBranch feature-login"},
			expectedOutcome: metrics.OutcomeSkipped,
		},
		{
			name:      "configuration failure is returned",
			reference: featureReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(false, errors.New("couldn't parse r10k config /etc/puppetlabs/r10k/r10k.yaml"))
			},
			expectedCalls:   []string{"ControlRepoHasBranch feature-login"},
			expectedOutcome: metrics.OutcomeFailed,
			expectError:     true,
		},
		{
			name:      "library update failure is returned",
			reference: masterReferenceConstant,
			configure: func(gatewayDouble *mockGateway) {
				gatewayDouble.On(gatewayUpdateLibrariesMethodConstant, mock.Anything, productionEnvironmentConstant).Return(gateway.LibraryUpdateError{Environment: productionEnvironmentConstant})
			},
			expectedCalls:   []string{"UpdateLibraries production"},
			expectedOutcome: metrics.OutcomeFailed,
			expectError:     true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			gatewayDouble := &mockGateway{}
			testCase.configure(gatewayDouble)
			recorder := &recordingWorkflowRecorder{}

			synchronizer, synchronizerError := reposync.NewSynchronizer(testCase.reference, reposync.Dependencies{
				Gateway:  gatewayDouble,
				Recorder: recorder,
			})
			require.NoError(subTest, synchronizerError)

			updateError := synchronizer.UpdateLibraries(context.Background())
			if testCase.expectError {
				require.Error(subTest, updateError)
			} else {
				require.NoError(subTest, updateError)
			}

			require.Equal(subTest, testCase.expectedCalls, gatewayDouble.calls)
			require.Equal(subTest, []recordedWorkflow{{action: reposync.ActionUpdate, outcome: testCase.expectedOutcome}}, recorder.workflows)
			gatewayDouble.AssertExpectations(subTest)
		})
	}
}

func TestSynchronizerPropagatesGatewayErrorsUnchanged(testInstance *testing.T) {
	gatewayDouble := &mockGateway{}
	deployFailure := gateway.DeployError{Environment: featureBranchConstant, Cause: errors.New("exit status 1")}
	gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(true, nil)
	gatewayDouble.On(gatewayDeployMethodConstant, mock.Anything, featureBranchConstant).Return(deployFailure)

	synchronizer, synchronizerError := reposync.NewSynchronizer(featureReferenceConstant, reposync.Dependencies{Gateway: gatewayDouble})
	require.NoError(testInstance, synchronizerError)

	updateError := synchronizer.UpdateLibraries(context.Background())

	var deployError gateway.DeployError
	require.ErrorAs(testInstance, updateError, &deployError)
	require.Equal(testInstance, featureBranchConstant, deployError.Environment)
}

func TestSynchronizerRun(testInstance *testing.T) {
	gatewayDouble := &mockGateway{}
	synchronizer, synchronizerError := reposync.NewSynchronizer(tagReferenceConstant, reposync.Dependencies{Gateway: gatewayDouble})
	require.NoError(testInstance, synchronizerError)

	require.NoError(testInstance, synchronizer.Run(context.Background(), reposync.ActionDeploy))
	require.NoError(testInstance, synchronizer.Run(context.Background(), reposync.ActionUpdate))

	runError := synchronizer.Run(context.Background(), "rollback")
	var usageError reposync.UsageError
	require.ErrorAs(testInstance, runError, &usageError)
	require.EqualError(testInstance, runError, "unknown action: rollback")
}

func TestNewSynchronizerRequiresGateway(testInstance *testing.T) {
	_, synchronizerError := reposync.NewSynchronizer(featureReferenceConstant, reposync.Dependencies{})
	require.ErrorIs(testInstance, synchronizerError, reposync.ErrGatewayNotConfigured)
}

func TestSynchronizerLogsDecision(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zap.DebugLevel)
	gatewayDouble := &mockGateway{}
	gatewayDouble.On(gatewayHasBranchMethodConstant, mock.Anything, featureBranchConstant).Return(false, nil)
	gatewayDouble.On(gatewayRemoveMethodConstant, mock.Anything, featureBranchConstant).Return(nil)

	synchronizer, synchronizerError := reposync.NewSynchronizer(featureReferenceConstant, reposync.Dependencies{
		Gateway: gatewayDouble,
		Logger:  zap.New(observedCore),
	})
	require.NoError(testInstance, synchronizerError)
	require.NoError(testInstance, synchronizer.Deploy(context.Background()))

	removalEntries := observedLogs.FilterMessage("Removing environment").All()
	require.Len(testInstance, removalEntries, 1)
	contextMap := removalEntries[0].ContextMap()
	require.Equal(testInstance, featureReferenceConstant, contextMap["ref"])
	require.Equal(testInstance, featureBranchConstant, contextMap["branch"])
	require.Equal(testInstance, reposync.ActionDeploy, contextMap["action"])
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Workflow completed").Len())
}
