/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package launch

import "fmt"

// ConfigurationError indicates a required launch configuration field is
// missing. It is raised synchronously to the resolver's caller.
type ConfigurationError struct {
	// Field names the missing wire-shape field.
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("launch configuration is missing required field %q", e.Field)
}

// TypeMismatchError indicates a launch configuration was handed to a resolver
// for a different language variant.
type TypeMismatchError struct {
	Expected Kind
	Actual   Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("launch configuration type is %q, expected %q", e.Actual, e.Expected)
}
