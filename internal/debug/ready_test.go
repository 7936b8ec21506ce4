/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotnet/aspire-sub011/internal/launch"
)

func TestServerReadyWatcher(t *testing.T) {
	t.Parallel()

	action := launch.DetermineServerReadyAction(true, "https://localhost:5001")
	require.NotNil(t, action)

	t.Run("opens exactly once", func(t *testing.T) {
		var opened []string
		watcher, watchErr := NewServerReadyWatcher(action, func(url string) {
			opened = append(opened, url)
		})
		require.NoError(t, watchErr)

		watcher.Scan("info: Microsoft.Hosting.Lifetime[14]")
		watcher.Scan("      Now listening on: https://localhost:5001")
		watcher.Scan("      Now listening on: http://localhost:5000")
		watcher.Scan("Now listening on: https://localhost:5001")

		assert.Equal(t, []string{"https://localhost:5001"}, opened)
	})

	t.Run("non-matching output never opens", func(t *testing.T) {
		opened := false
		watcher, watchErr := NewServerReadyWatcher(action, func(string) { opened = true })
		require.NoError(t, watchErr)

		watcher.Scan("Application started. Press Ctrl+C to shut down.")
		watcher.Scan("listening on: nothing")

		assert.False(t, opened)
	})

	t.Run("nil open callback is harmless", func(t *testing.T) {
		watcher, watchErr := NewServerReadyWatcher(action, nil)
		require.NoError(t, watchErr)
		watcher.Scan("Now listening on: https://localhost:5001")
	})

	t.Run("invalid pattern is rejected", func(t *testing.T) {
		_, watchErr := NewServerReadyWatcher(&launch.ServerReadyAction{Pattern: "("}, nil)
		require.Error(t, watchErr)
	})
}
