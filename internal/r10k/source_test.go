package r10k_test

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/temirov/reposync/internal/r10k"
)

const (
	testCustomConfigurationPathConstant = "/usr/local/etc/r10k.yaml"
	testControlRepositoryConstant       = "/r/ctrl.git"
	testEnvironmentsDirectoryConstant   = "/env"
)

func TestLocatorResolvesOverride(testInstance *testing.T) {
	testCases := []struct {
		name             string
		overrideValue    string
		expectOverride   bool
		expectedOverride string
		expectedPath     string
	}{
		{name: "unset", overrideValue: "", expectedPath: r10k.DefaultConfigurationPath},
		{name: "default_path", overrideValue: r10k.DefaultConfigurationPath, expectedPath: r10k.DefaultConfigurationPath},
		{
			name:             "custom_path",
			overrideValue:    testCustomConfigurationPathConstant,
			expectOverride:   true,
			expectedOverride: testCustomConfigurationPathConstant,
			expectedPath:     testCustomConfigurationPathConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			locator := r10k.NewLocator(testCase.overrideValue)

			overridePath, hasOverride := locator.ConfigurationOverride()
			require.Equal(testInstance, testCase.expectOverride, hasOverride)
			require.Equal(testInstance, testCase.expectedOverride, overridePath)
			require.Equal(testInstance, testCase.expectedPath, locator.ConfigurationPath())
		})
	}
}

func TestLocatorReadsEnvironment(testInstance *testing.T) {
	testInstance.Setenv(r10k.ConfigurationEnvironmentVariable, testCustomConfigurationPathConstant)

	locator := r10k.NewLocatorFromEnvironment()
	require.Equal(testInstance, testCustomConfigurationPathConstant, locator.ConfigurationPath())
}

func TestParseMainSourceSelectsUnprefixedEntry(testInstance *testing.T) {
	testCases := []struct {
		name             string
		content          string
		expectedName     string
		expectedRemote   string
		expectedBasedir  string
		expectedSettings map[string]any
	}{
		{
			name:             "single_string_key_source",
			content:          "sources:\n  main:\n    remote: /r/ctrl.git\n    basedir: /env\n",
			expectedName:     "main",
			expectedRemote:   testControlRepositoryConstant,
			expectedBasedir:  testEnvironmentsDirectoryConstant,
			expectedSettings: map[string]any{"remote": testControlRepositoryConstant, "basedir": testEnvironmentsDirectoryConstant},
		},
		{
			name: "symbol_keys",
			content: ":cachedir: /var/cache/r10k\n:sources:\n  :hiera:\n    remote: git@example.com:hiera.git\n    basedir: /etc/hiera\n    prefix: true\n" +
				"  :puppet:\n    :remote: git@example.com:control.git\n    :basedir: /etc/puppetlabs/code/environments\n",
			expectedName:    "puppet",
			expectedRemote:  "git@example.com:control.git",
			expectedBasedir: "/etc/puppetlabs/code/environments",
			expectedSettings: map[string]any{
				"remote":  "git@example.com:control.git",
				"basedir": "/etc/puppetlabs/code/environments",
			},
		},
		{
			name: "first_unprefixed_in_file_order",
			content: "sources:\n  zeta:\n    remote: /r/zeta.git\n    basedir: /zeta\n    prefix: false\n" +
				"  alpha:\n    remote: /r/alpha.git\n    basedir: /alpha\n",
			expectedName:    "zeta",
			expectedRemote:  "/r/zeta.git",
			expectedBasedir: "/zeta",
			expectedSettings: map[string]any{
				"remote":  "/r/zeta.git",
				"basedir": "/zeta",
				"prefix":  false,
			},
		},
		{
			name: "null_prefix",
			content: "sources:\n  modules:\n    remote: /r/modules.git\n    basedir: /modules\n    prefix: modules\n" +
				"  control:\n    remote: /r/ctrl.git\n    basedir: /env\n    prefix: ~\n",
			expectedName:    "control",
			expectedRemote:  testControlRepositoryConstant,
			expectedBasedir: testEnvironmentsDirectoryConstant,
			expectedSettings: map[string]any{
				"remote":  testControlRepositoryConstant,
				"basedir": testEnvironmentsDirectoryConstant,
				"prefix":  nil,
			},
		},
		{
			name:            "symbol_sources_preferred",
			content:         "sources:\n  ignored:\n    remote: /r/ignored.git\n    basedir: /ignored\n:sources:\n  main:\n    remote: /r/ctrl.git\n    basedir: /env\n",
			expectedName:    "main",
			expectedRemote:  testControlRepositoryConstant,
			expectedBasedir: testEnvironmentsDirectoryConstant,
			expectedSettings: map[string]any{
				"remote":  testControlRepositoryConstant,
				"basedir": testEnvironmentsDirectoryConstant,
			},
		},
		{
			name: "aliased_source",
			content: "defaults: &defaults\n  remote: /r/ctrl.git\n  basedir: /env\n" +
				"sources:\n  modules:\n    remote: /r/modules.git\n    prefix: true\n  main: *defaults\n",
			expectedName:    "main",
			expectedRemote:  testControlRepositoryConstant,
			expectedBasedir: testEnvironmentsDirectoryConstant,
			expectedSettings: map[string]any{
				"remote":  testControlRepositoryConstant,
				"basedir": testEnvironmentsDirectoryConstant,
			},
		},
		{
			name:            "aliased_sources_mapping",
			content:         "shared: &shared\n  main:\n    remote: /r/ctrl.git\n    basedir: /env\nsources: *shared\n",
			expectedName:    "main",
			expectedRemote:  testControlRepositoryConstant,
			expectedBasedir: testEnvironmentsDirectoryConstant,
			expectedSettings: map[string]any{
				"remote":  testControlRepositoryConstant,
				"basedir": testEnvironmentsDirectoryConstant,
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			source, parseError := r10k.ParseMainSource([]byte(testCase.content), r10k.DefaultConfigurationPath)
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedName, source.Name)
			require.Equal(testInstance, testCase.expectedRemote, source.Remote)
			require.Equal(testInstance, testCase.expectedBasedir, source.Basedir)
			require.Equal(testInstance, testCase.expectedSettings, source.Settings)
		})
	}
}

func TestParseMainSourceFailures(testInstance *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "all_prefixed", content: "sources:\n  a:\n    remote: /r/a.git\n    prefix: true\n  b:\n    remote: /r/b.git\n    prefix: b\n"},
		{name: "empty_prefix_string_counts_as_set", content: "sources:\n  a:\n    remote: /r/a.git\n    prefix: ''\n"},
		{name: "no_sources", content: "cachedir: /var/cache/r10k\n"},
		{name: "sources_not_mapping", content: "sources:\n  - /r/a.git\n"},
		{name: "empty_document", content: ""},
		{name: "scalar_document", content: "just a string\n"},
		{name: "invalid_yaml", content: "sources: [\n"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, parseError := r10k.ParseMainSource([]byte(testCase.content), testCustomConfigurationPathConstant)
			require.Error(testInstance, parseError)

			var configurationError r10k.ConfigurationParseError
			require.ErrorAs(testInstance, parseError, &configurationError)
			require.Equal(testInstance, "couldn't parse r10k config "+testCustomConfigurationPathConstant, parseError.Error())
		})
	}
}

func TestSourceLoaderReadsResolvedPath(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, afero.WriteFile(fileSystem, r10k.DefaultConfigurationPath, []byte("sources:\n  main:\n    remote: /r/ctrl.git\n    basedir: /env\n"), 0o644))

	loader := r10k.NewSourceLoader(r10k.NewLocator(""), fileSystem)
	source, loadError := loader.MainSource()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testControlRepositoryConstant, source.Remote)
	require.Equal(testInstance, testEnvironmentsDirectoryConstant, source.Basedir)
}

func TestSourceLoaderReportsMissingFile(testInstance *testing.T) {
	loader := r10k.NewSourceLoader(r10k.NewLocator(testCustomConfigurationPathConstant), afero.NewMemMapFs())

	_, loadError := loader.MainSource()
	require.Error(testInstance, loadError)
	require.True(testInstance, errors.Is(loadError, os.ErrNotExist))
	require.Equal(testInstance, "couldn't parse r10k config "+testCustomConfigurationPathConstant, loadError.Error())
}
