/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package launch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
)

// launchSettingsRelativePath is the fixed location of the launch settings
// resource under the project's directory.
var launchSettingsRelativePath = filepath.Join("Properties", "launchSettings.json")

// LaunchSettingsPath returns the location of the launch settings resource for
// the project.
func LaunchSettingsPath(projectPath string) string {
	return filepath.Join(filepath.Dir(projectPath), launchSettingsRelativePath)
}

// ReadLaunchSettings reads and parses the launch settings resource for the
// project. A missing file or malformed JSON yields no settings, not an error;
// any other read failure propagates.
func ReadLaunchSettings(projectPath string) (*Settings, error) {
	data, readErr := os.ReadFile(LaunchSettingsPath(projectPath))
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read launch settings: %w", readErr)
	}

	var settings Settings
	if unmarshalErr := json.Unmarshal(data, &settings); unmarshalErr != nil {
		// Malformed settings behave the same as absent settings.
		return nil, nil
	}

	return &settings, nil
}

// LoadEnvFiles reads dotenv files in order and returns their variables as an
// ordered override list. Within a file, keys are emitted in sorted order;
// across files, later files override earlier ones via the usual merge rules.
func LoadEnvFiles(paths []string) ([]EnvVar, error) {
	var result []EnvVar

	for _, path := range paths {
		vars, readErr := godotenv.Read(path)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read env file %q: %w", path, readErr)
		}

		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			result = append(result, EnvVar{Name: k, Value: vars[k]})
		}
	}

	return result, nil
}
