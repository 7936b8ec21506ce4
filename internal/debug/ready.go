/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package debug

import (
	"regexp"
	"sync"

	"github.com/dotnet/aspire-sub011/internal/launch"
)

// ServerReadyWatcher matches child-process output against a server-ready
// pattern and triggers the external open exactly once, no matter how many
// lines match afterwards.
type ServerReadyWatcher struct {
	re   *regexp.Regexp
	url  string
	open func(url string)
	once sync.Once
}

// NewServerReadyWatcher creates a watcher for the given action. The open
// callback receives the action's URI when the pattern first matches.
func NewServerReadyWatcher(action *launch.ServerReadyAction, open func(url string)) (*ServerReadyWatcher, error) {
	re, compileErr := action.ServerReadyRegexp()
	if compileErr != nil {
		return nil, compileErr
	}

	return &ServerReadyWatcher{
		re:   re,
		url:  action.UriFormat,
		open: open,
	}, nil
}

// Scan inspects one output line. The first matching line fires the open
// callback; all subsequent lines are ignored by the watcher.
func (w *ServerReadyWatcher) Scan(line string) {
	if !w.re.MatchString(line) {
		return
	}
	w.once.Do(func() {
		if w.open != nil {
			w.open(w.url)
		}
	})
}
