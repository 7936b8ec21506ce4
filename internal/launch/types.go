/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package launch

// Kind is the discriminator of the launch configuration tagged union. The set
// of variants is closed: adding a language means adding a constant here and a
// case to every exhaustive switch over Kind.
type Kind string

const (
	KindProject    Kind = "project"
	KindExecutable Kind = "executable"
	KindJava       Kind = "java"
	KindPython     Kind = "python"
)

// EnvVar is one environment variable entry. Ordered lists of EnvVar preserve
// the relative ordering that plain maps would lose.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
}

// Configuration is the abstract launch request sent by the orchestrator.
type Configuration struct {
	// Type selects the per-language resolver variant.
	Type Kind `json:"type"`

	// ProjectPath is the path to the runnable unit for most variants.
	ProjectPath string `json:"project_path,omitempty"`

	// MainClassPath is the runnable unit for the java variant; falls back to
	// ProjectPath when absent.
	MainClassPath string `json:"main_class_path,omitempty"`

	// DisableLaunchProfile suppresses launch-profile resolution entirely.
	DisableLaunchProfile bool `json:"disable_launch_profile,omitempty"`

	// LaunchProfile names the profile to use. Selection is by exact name
	// match only; an explicit miss never falls back to another profile.
	LaunchProfile string `json:"launch_profile,omitempty"`

	// Args overrides the profile's argument string when non-nil. An empty
	// array is an explicit override yielding an empty argument string.
	Args []string `json:"args,omitempty"`

	// Env entries override profile and env-file values, later write wins.
	Env []EnvVar `json:"env,omitempty"`

	// EnvFiles are dotenv files folded into the environment ahead of Env.
	EnvFiles []string `json:"env_files,omitempty"`

	// WorkingDirectory, when set, overrides all other working directory
	// resolution.
	WorkingDirectory string `json:"working_directory,omitempty"`
}

// Profile is a named bundle loaded from the per-project launch settings
// resource.
type Profile struct {
	CommandName          string            `json:"commandName,omitempty"`
	CommandLineArgs      *string           `json:"commandLineArgs,omitempty"`
	WorkingDirectory     string            `json:"workingDirectory,omitempty"`
	EnvironmentVariables map[string]string `json:"environmentVariables,omitempty"`
	LaunchBrowser        bool              `json:"launchBrowser,omitempty"`
	ApplicationUrl       string            `json:"applicationUrl,omitempty"`
}

// Settings is the parsed per-project launch settings resource.
type Settings struct {
	Profiles map[string]Profile `json:"profiles"`
}

// ServerReadyActionOpenExternally asks the editor to open the matched URL in
// the external browser.
const ServerReadyActionOpenExternally = "openExternally"

// ServerReadyAction tells the editor to watch child-process output for the
// pattern and trigger exactly one automatic external open.
type ServerReadyAction struct {
	Action    string `json:"action"`
	Pattern   string `json:"pattern"`
	UriFormat string `json:"uriFormat"`
}

// ResolvedDebugConfig is the resolver's output: the concrete, per-language
// debug configuration handed to the editor's native debug machinery.
type ResolvedDebugConfig struct {
	// Type is the discriminator of the configuration this was resolved from.
	Type Kind `json:"type"`

	// ProgramPath is the path to the runnable unit.
	ProgramPath string `json:"programPath"`

	// Env is the final ordered environment list; keys are unique, later
	// write wins.
	Env []EnvVar `json:"env,omitempty"`

	// Args is the final argument string.
	Args string `json:"args,omitempty"`

	// WorkingDirectory is the final working directory.
	WorkingDirectory string `json:"workingDirectory"`

	// ServerReady is set only when the active profile asks for a browser
	// launch and names an application URL.
	ServerReady *ServerReadyAction `json:"serverReady,omitempty"`

	// ProfileName is the name of the active launch profile, if any.
	ProfileName string `json:"profileName,omitempty"`
}
