package refs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/refs"
)

func TestParseClassifiesReferences(testInstance *testing.T) {
	testCases := []struct {
		name               string
		rawReference       string
		expectBranch       bool
		expectedBranchName string
		expectMaster       bool
		expectProduction   bool
	}{
		{name: "simple_branch", rawReference: "refs/heads/feature", expectBranch: true, expectedBranchName: "feature"},
		{name: "nested_branch", rawReference: "refs/heads/team/feature-x", expectBranch: true, expectedBranchName: "team/feature-x"},
		{name: "master_branch", rawReference: "refs/heads/master", expectBranch: true, expectedBranchName: "master", expectMaster: true},
		{name: "production_branch", rawReference: "refs/heads/production", expectBranch: true, expectedBranchName: "production", expectProduction: true},
		{name: "tag", rawReference: "refs/tags/v1.0.0"},
		{name: "pull_request", rawReference: "refs/pull/12/head"},
		{name: "empty_branch_name", rawReference: "refs/heads/"},
		{name: "bare_name", rawReference: "master"},
		{name: "prefixed_garbage", rawReference: "xrefs/heads/feature"},
		{name: "empty", rawReference: ""},
		{name: "trailing_newline", rawReference: "refs/heads/feature\n", expectBranch: true, expectedBranchName: "feature"},
		{name: "production_with_trailing_newline", rawReference: "refs/heads/production\n", expectBranch: true, expectedBranchName: "production", expectProduction: true},
		{name: "embedded_newline", rawReference: "refs/heads/feature\nrefs/heads/other"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			reference := refs.Parse(testCase.rawReference)

			branchName, isBranch := reference.Branch()
			require.Equal(testInstance, testCase.expectBranch, isBranch)
			require.Equal(testInstance, testCase.expectBranch, reference.IsBranch())
			require.Equal(testInstance, testCase.expectedBranchName, branchName)
			require.Equal(testInstance, testCase.expectMaster, reference.IsMaster())
			require.Equal(testInstance, testCase.expectProduction, reference.IsProduction())
			require.Equal(testInstance, testCase.rawReference, reference.Raw())
		})
	}
}
