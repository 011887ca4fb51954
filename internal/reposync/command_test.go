package reposync_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/reposync"
)

func TestCommandBuilderRunsWorkflow(testInstance *testing.T) {
	gatewayDouble := &mockGateway{}
	gatewayDouble.On(gatewayUpdateLibrariesMethodConstant, mock.Anything, productionEnvironmentConstant).Return(nil)
	recorder := &recordingWorkflowRecorder{}

	builder := reposync.CommandBuilder{
		Action:   reposync.ActionUpdate,
		Gateway:  gatewayDouble,
		Recorder: recorder,
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, "update REF", command.Use)

	command.SetContext(context.Background())
	command.SetArgs([]string{masterReferenceConstant})
	require.NoError(testInstance, command.Execute())

	require.Equal(testInstance, []string{"UpdateLibraries production"}, gatewayDouble.calls)
	require.Equal(testInstance, []recordedWorkflow{{action: reposync.ActionUpdate, outcome: "succeeded"}}, recorder.workflows)
}

func TestCommandBuilderRejectsWrongArgumentCount(testInstance *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
	}{
		{name: "missing ref", arguments: []string{}},
		{name: "extra argument", arguments: []string{featureReferenceConstant, "surplus"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			gatewayDouble := &mockGateway{}
			builder := reposync.CommandBuilder{Action: reposync.ActionDeploy, Gateway: gatewayDouble}
			command, buildError := builder.Build()
			require.NoError(subTest, buildError)
			command.SilenceUsage = true
			command.SilenceErrors = true

			command.SetArgs(testCase.arguments)
			executeError := command.Execute()

			var usageError reposync.UsageError
			require.ErrorAs(subTest, executeError, &usageError)
			require.Equal(subTest, "expected exactly 2 arguments", usageError.Message)
			require.Empty(subTest, gatewayDouble.calls)
		})
	}
}

func TestCommandBuilderRejectsUnknownAction(testInstance *testing.T) {
	builder := reposync.CommandBuilder{Action: "rollback"}
	_, buildError := builder.Build()
	require.EqualError(testInstance, buildError, `unsupported action "rollback"`)
}

func TestCommandBuilderReturnsWorkflowErrors(testInstance *testing.T) {
	builder := reposync.CommandBuilder{Action: reposync.ActionDeploy, Gateway: &mockGateway{}}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SilenceUsage = true
	command.SilenceErrors = true

	command.SetArgs([]string{masterReferenceConstant})
	executeError := command.Execute()

	var configurationError reposync.ConfigurationError
	require.ErrorAs(testInstance, executeError, &configurationError)
}

func TestUsageErrorConstructors(testInstance *testing.T) {
	require.EqualError(testInstance, reposync.NewArgumentCountError(), "expected exactly 2 arguments")
	require.EqualError(testInstance, reposync.NewUnknownActionError("rollback"), "unknown action: rollback")
}
