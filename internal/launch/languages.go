/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package launch

import "fmt"

// Resolver is the per-language variant resolving the runnable unit of a
// launch configuration. The known variants form a closed set; each registered
// resolver accepts only configurations carrying its own discriminator tag.
type Resolver struct {
	kind        Kind
	projectFile func(*Configuration) (string, error)
}

// Kind returns the discriminator tag this resolver accepts.
func (r Resolver) Kind() Kind {
	return r.kind
}

// ProjectFile returns the path of the runnable unit for the configuration.
// A configuration carrying a different discriminator is a type error; a
// missing required field is a configuration error naming the field.
func (r Resolver) ProjectFile(config *Configuration) (string, error) {
	if config.Type != r.kind {
		return "", &TypeMismatchError{Expected: r.kind, Actual: config.Type}
	}
	return r.projectFile(config)
}

// ResolverFor selects the resolver variant for a discriminator tag.
func ResolverFor(kind Kind) (Resolver, error) {
	switch kind {
	case KindProject:
		return projectResolver, nil
	case KindExecutable:
		return executableResolver, nil
	case KindJava:
		return javaResolver, nil
	case KindPython:
		return pythonResolver, nil
	default:
		return Resolver{}, fmt.Errorf("unknown launch configuration type %q", kind)
	}
}

var projectResolver = Resolver{
	kind: KindProject,
	projectFile: func(config *Configuration) (string, error) {
		if config.ProjectPath == "" {
			return "", &ConfigurationError{Field: "project_path"}
		}
		return config.ProjectPath, nil
	},
}

var executableResolver = Resolver{
	kind: KindExecutable,
	projectFile: func(config *Configuration) (string, error) {
		if config.ProjectPath == "" {
			return "", &ConfigurationError{Field: "project_path"}
		}
		return config.ProjectPath, nil
	},
}

// javaResolver prefers the main class path, falling back to the project path.
var javaResolver = Resolver{
	kind: KindJava,
	projectFile: func(config *Configuration) (string, error) {
		if config.MainClassPath != "" {
			return config.MainClassPath, nil
		}
		if config.ProjectPath != "" {
			return config.ProjectPath, nil
		}
		return "", &ConfigurationError{Field: "main_class_path"}
	},
}

var pythonResolver = Resolver{
	kind: KindPython,
	projectFile: func(config *Configuration) (string, error) {
		if config.ProjectPath == "" {
			return "", &ConfigurationError{Field: "project_path"}
		}
		return config.ProjectPath, nil
	},
}
