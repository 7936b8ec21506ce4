/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package launch

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// serverReadyPattern matches the "now listening on" line written by a child
// service once it has begun accepting requests.
const serverReadyPattern = `\bNow listening on:\s+(https?://\S+)`

// DetermineBaseLaunchProfile selects the active profile for a launch request.
// At most one profile is active, selected only by an exact name match:
//   - profile resolution disabled, or no settings available: no profile;
//   - explicit name found: that profile;
//   - explicit name absent from settings: no profile — an explicit miss never
//     falls back to another profile;
//   - no explicit name: no profile.
func DetermineBaseLaunchProfile(config *Configuration, settings *Settings) (*Profile, string) {
	if config.DisableLaunchProfile || settings == nil {
		return nil, ""
	}

	if config.LaunchProfile == "" {
		return nil, ""
	}

	profile, found := settings.Profiles[config.LaunchProfile]
	if !found {
		return nil, ""
	}

	return &profile, config.LaunchProfile
}

// MergeEnvironmentVariables merges a base environment map with an ordered
// override list. The result's key set is exactly the union of both; an
// override for an existing key replaces its value in place, a new key is
// appended. Base entries enter in sorted key order so the result is
// deterministic.
func MergeEnvironmentVariables(base map[string]string, overrides []EnvVar) []EnvVar {
	result := make([]EnvVar, 0, len(base)+len(overrides))

	baseKeys := make([]string, 0, len(base))
	for k := range base {
		baseKeys = append(baseKeys, k)
	}
	sort.Strings(baseKeys)

	for _, k := range baseKeys {
		result = append(result, EnvVar{Name: k, Value: base[k]})
	}

	for _, override := range overrides {
		replaced := false
		for i := range result {
			if result[i].Name == override.Name {
				result[i].Value = override.Value
				replaced = true
				break
			}
		}
		if !replaced {
			result = append(result, override)
		}
	}

	return result
}

// DetermineArguments computes the final argument string. A non-nil override
// list (including an empty one) wins: its elements are joined with single
// spaces, so an empty list yields an empty string that overrides the base.
// A nil override keeps the base unchanged, including when the base itself is
// absent.
func DetermineArguments(baseArgs *string, overrideArgs []string) *string {
	if overrideArgs == nil {
		return baseArgs
	}
	joined := strings.Join(overrideArgs, " ")
	return &joined
}

// DetermineWorkingDirectory computes the working directory for a launch.
// An absolute profile working directory is used verbatim; a relative one is
// resolved against the directory containing the project; with no profile (or
// no working directory in it) the project's directory is used.
func DetermineWorkingDirectory(projectPath string, profile *Profile) string {
	projectDir := filepath.Dir(projectPath)

	if profile == nil || profile.WorkingDirectory == "" {
		return projectDir
	}

	if filepath.IsAbs(profile.WorkingDirectory) {
		return profile.WorkingDirectory
	}

	return filepath.Join(projectDir, profile.WorkingDirectory)
}

// DetermineServerReadyAction returns the action that watches child output for
// the listening announcement and opens the application URL externally exactly
// once. It returns nil unless the profile both asks for a browser launch and
// names an application URL.
func DetermineServerReadyAction(launchBrowser bool, applicationUrl string) *ServerReadyAction {
	if !launchBrowser || applicationUrl == "" {
		return nil
	}

	return &ServerReadyAction{
		Action:    ServerReadyActionOpenExternally,
		Pattern:   serverReadyPattern,
		UriFormat: applicationUrl,
	}
}

// ServerReadyRegexp compiles the action's pattern.
func (a *ServerReadyAction) ServerReadyRegexp() (*regexp.Regexp, error) {
	return regexp.Compile(a.Pattern)
}

// Resolve turns an abstract launch request plus optional settings into the
// concrete debug configuration. The environment is layered profile, then env
// files, then explicit overrides, later write wins on key collision.
func Resolve(config *Configuration, settings *Settings) (*ResolvedDebugConfig, error) {
	resolver, resolverErr := ResolverFor(config.Type)
	if resolverErr != nil {
		return nil, resolverErr
	}

	programPath, programErr := resolver.ProjectFile(config)
	if programErr != nil {
		return nil, programErr
	}

	profile, profileName := DetermineBaseLaunchProfile(config, settings)

	var baseEnv map[string]string
	var baseArgs *string
	launchBrowser := false
	applicationUrl := ""
	if profile != nil {
		baseEnv = profile.EnvironmentVariables
		baseArgs = profile.CommandLineArgs
		launchBrowser = profile.LaunchBrowser
		applicationUrl = profile.ApplicationUrl
	}

	envFileVars, envFileErr := LoadEnvFiles(config.EnvFiles)
	if envFileErr != nil {
		return nil, envFileErr
	}

	overrides := make([]EnvVar, 0, len(envFileVars)+len(config.Env))
	overrides = append(overrides, envFileVars...)
	overrides = append(overrides, config.Env...)
	env := MergeEnvironmentVariables(baseEnv, overrides)

	args := DetermineArguments(baseArgs, config.Args)
	argString := ""
	if args != nil {
		argString = *args
	}

	workingDir := config.WorkingDirectory
	if workingDir == "" {
		workingDir = DetermineWorkingDirectory(programPath, profile)
	}

	return &ResolvedDebugConfig{
		Type:             config.Type,
		ProgramPath:      programPath,
		Env:              env,
		Args:             argString,
		WorkingDirectory: workingDir,
		ServerReady:      DetermineServerReadyAction(launchBrowser, applicationUrl),
		ProfileName:      profileName,
	}, nil
}
