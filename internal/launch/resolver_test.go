/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package launch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineBaseLaunchProfile(t *testing.T) {
	t.Parallel()

	settings := &Settings{
		Profiles: map[string]Profile{
			"Development": {ApplicationUrl: "https://localhost:5001"},
			"Staging":     {ApplicationUrl: "https://localhost:5002"},
		},
	}

	t.Run("disabled profile resolution yields no profile", func(t *testing.T) {
		profile, name := DetermineBaseLaunchProfile(&Configuration{
			Type:                 KindProject,
			DisableLaunchProfile: true,
			LaunchProfile:        "Development",
		}, settings)
		assert.Nil(t, profile)
		assert.Empty(t, name)
	})

	t.Run("no settings yields no profile", func(t *testing.T) {
		profile, name := DetermineBaseLaunchProfile(&Configuration{
			Type:          KindProject,
			LaunchProfile: "Development",
		}, nil)
		assert.Nil(t, profile)
		assert.Empty(t, name)
	})

	t.Run("explicit name found", func(t *testing.T) {
		profile, name := DetermineBaseLaunchProfile(&Configuration{
			Type:          KindProject,
			LaunchProfile: "Development",
		}, settings)
		require.NotNil(t, profile)
		assert.Equal(t, "Development", name)
		assert.Equal(t, "https://localhost:5001", profile.ApplicationUrl)
	})

	t.Run("explicit miss never falls back", func(t *testing.T) {
		profile, name := DetermineBaseLaunchProfile(&Configuration{
			Type:          KindProject,
			LaunchProfile: "Production",
		}, settings)
		assert.Nil(t, profile)
		assert.Empty(t, name)
	})

	t.Run("no explicit name yields no profile", func(t *testing.T) {
		profile, name := DetermineBaseLaunchProfile(&Configuration{
			Type: KindProject,
		}, settings)
		assert.Nil(t, profile)
		assert.Empty(t, name)
	})
}

func TestMergeEnvironmentVariables(t *testing.T) {
	t.Parallel()

	t.Run("union of keys with override winning", func(t *testing.T) {
		base := map[string]string{
			"ASPNETCORE_ENVIRONMENT": "Development",
			"LOG_LEVEL":              "info",
		}
		overrides := []EnvVar{
			{Name: "LOG_LEVEL", Value: "debug"},
			{Name: "EXTRA", Value: "1"},
		}

		merged := MergeEnvironmentVariables(base, overrides)

		byName := make(map[string]string, len(merged))
		for _, e := range merged {
			_, duplicate := byName[e.Name]
			require.False(t, duplicate, "key %q appears more than once", e.Name)
			byName[e.Name] = e.Value
		}

		assert.Equal(t, map[string]string{
			"ASPNETCORE_ENVIRONMENT": "Development",
			"LOG_LEVEL":              "debug",
			"EXTRA":                  "1",
		}, byName)
	})

	t.Run("override replaces in place", func(t *testing.T) {
		merged := MergeEnvironmentVariables(
			map[string]string{"A": "1", "B": "2"},
			[]EnvVar{{Name: "A", Value: "10"}},
		)
		require.Len(t, merged, 2)
		assert.Equal(t, EnvVar{Name: "A", Value: "10"}, merged[0])
		assert.Equal(t, EnvVar{Name: "B", Value: "2"}, merged[1])
	})

	t.Run("nil base", func(t *testing.T) {
		merged := MergeEnvironmentVariables(nil, []EnvVar{{Name: "X", Value: "y"}})
		assert.Equal(t, []EnvVar{{Name: "X", Value: "y"}}, merged)
	})

	t.Run("appended overrides keep their order", func(t *testing.T) {
		merged := MergeEnvironmentVariables(nil, []EnvVar{
			{Name: "C", Value: "3"},
			{Name: "A", Value: "1"},
			{Name: "B", Value: "2"},
		})
		assert.Equal(t, []EnvVar{
			{Name: "C", Value: "3"},
			{Name: "A", Value: "1"},
			{Name: "B", Value: "2"},
		}, merged)
	})
}

func TestDetermineArguments(t *testing.T) {
	t.Parallel()

	base := "run --no-build"

	t.Run("empty override yields empty string", func(t *testing.T) {
		result := DetermineArguments(&base, []string{})
		require.NotNil(t, result)
		assert.Equal(t, "", *result)
	})

	t.Run("nil override keeps base", func(t *testing.T) {
		result := DetermineArguments(&base, nil)
		require.NotNil(t, result)
		assert.Equal(t, base, *result)
	})

	t.Run("nil override with nil base stays nil", func(t *testing.T) {
		assert.Nil(t, DetermineArguments(nil, nil))
	})

	t.Run("override joined with single spaces", func(t *testing.T) {
		result := DetermineArguments(&base, []string{"a", "b"})
		require.NotNil(t, result)
		assert.Equal(t, "a b", *result)
	})
}

func TestDetermineWorkingDirectory(t *testing.T) {
	t.Parallel()

	projectPath := filepath.Join(string(filepath.Separator), "src", "app", "app.csproj")
	projectDir := filepath.Dir(projectPath)

	t.Run("no profile uses project directory", func(t *testing.T) {
		assert.Equal(t, projectDir, DetermineWorkingDirectory(projectPath, nil))
	})

	t.Run("profile without working directory uses project directory", func(t *testing.T) {
		assert.Equal(t, projectDir, DetermineWorkingDirectory(projectPath, &Profile{}))
	})

	t.Run("absolute working directory used verbatim", func(t *testing.T) {
		abs := filepath.Join(string(filepath.Separator), "var", "run")
		assert.Equal(t, abs, DetermineWorkingDirectory(projectPath, &Profile{WorkingDirectory: abs}))
	})

	t.Run("relative working directory resolved against project directory", func(t *testing.T) {
		got := DetermineWorkingDirectory(projectPath, &Profile{WorkingDirectory: "bin"})
		assert.Equal(t, filepath.Join(projectDir, "bin"), got)
	})
}

func TestDetermineServerReadyAction(t *testing.T) {
	t.Parallel()

	t.Run("no browser launch yields nothing", func(t *testing.T) {
		assert.Nil(t, DetermineServerReadyAction(false, "https://x"))
	})

	t.Run("no application url yields nothing", func(t *testing.T) {
		assert.Nil(t, DetermineServerReadyAction(true, ""))
	})

	t.Run("browser launch with url", func(t *testing.T) {
		action := DetermineServerReadyAction(true, "https://x")
		require.NotNil(t, action)
		assert.Equal(t, ServerReadyActionOpenExternally, action.Action)
		assert.Equal(t, "https://x", action.UriFormat)

		re, compileErr := action.ServerReadyRegexp()
		require.NoError(t, compileErr)
		assert.True(t, re.MatchString("Now listening on: https://x"))
		assert.False(t, re.MatchString("Application started"))
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	projectDir := t.TempDir()
	projectPath := filepath.Join(projectDir, "web.csproj")
	writeLaunchSettings(t, projectPath, `{
		"profiles": {
			"Development": {
				"commandLineArgs": "--urls https://localhost:5001",
				"environmentVariables": {"ASPNETCORE_ENVIRONMENT": "Development"},
				"launchBrowser": true,
				"applicationUrl": "https://localhost:5001"
			}
		}
	}`)

	settings, readErr := ReadLaunchSettings(projectPath)
	require.NoError(t, readErr)
	require.NotNil(t, settings)

	t.Run("profile contributes env args and server-ready action", func(t *testing.T) {
		resolved, resolveErr := Resolve(&Configuration{
			Type:          KindProject,
			ProjectPath:   projectPath,
			LaunchProfile: "Development",
			Env:           []EnvVar{{Name: "EXTRA", Value: "1"}},
		}, settings)
		require.NoError(t, resolveErr)

		assert.Equal(t, projectPath, resolved.ProgramPath)
		assert.Equal(t, "Development", resolved.ProfileName)
		assert.Equal(t, "--urls https://localhost:5001", resolved.Args)
		assert.Equal(t, projectDir, resolved.WorkingDirectory)
		assert.Contains(t, resolved.Env, EnvVar{Name: "ASPNETCORE_ENVIRONMENT", Value: "Development"})
		assert.Contains(t, resolved.Env, EnvVar{Name: "EXTRA", Value: "1"})
		require.NotNil(t, resolved.ServerReady)
		assert.Equal(t, "https://localhost:5001", resolved.ServerReady.UriFormat)
	})

	t.Run("explicit args override profile args", func(t *testing.T) {
		resolved, resolveErr := Resolve(&Configuration{
			Type:          KindProject,
			ProjectPath:   projectPath,
			LaunchProfile: "Development",
			Args:          []string{},
		}, settings)
		require.NoError(t, resolveErr)
		assert.Equal(t, "", resolved.Args)
	})

	t.Run("disabled profile resolution", func(t *testing.T) {
		resolved, resolveErr := Resolve(&Configuration{
			Type:                 KindProject,
			ProjectPath:          projectPath,
			LaunchProfile:        "Development",
			DisableLaunchProfile: true,
		}, settings)
		require.NoError(t, resolveErr)
		assert.Empty(t, resolved.ProfileName)
		assert.Empty(t, resolved.Args)
		assert.Nil(t, resolved.ServerReady)
	})

	t.Run("missing required field", func(t *testing.T) {
		_, resolveErr := Resolve(&Configuration{Type: KindProject}, settings)
		var configErr *ConfigurationError
		require.ErrorAs(t, resolveErr, &configErr)
		assert.Equal(t, "project_path", configErr.Field)
	})
}
