/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package launch

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// SettingsCache caches parsed launch settings per project and invalidates an
// entry when its settings file changes on disk.
type SettingsCache struct {
	log     logr.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	entries map[string]*Settings // keyed by settings file path
	closed  bool
}

// NewSettingsCache creates a cache backed by a filesystem watcher.
func NewSettingsCache(log logr.Logger) (*SettingsCache, error) {
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	watcher, watchErr := fsnotify.NewWatcher()
	if watchErr != nil {
		return nil, watchErr
	}

	c := &SettingsCache{
		log:     log,
		watcher: watcher,
		entries: make(map[string]*Settings),
	}

	go c.watchLoop()

	return c, nil
}

// Get returns the launch settings for the project, reading and caching them
// on first use. Absent or malformed settings yield nil, matching
// ReadLaunchSettings semantics; a value is only cached when the settings
// directory can be watched for changes.
func (c *SettingsCache) Get(projectPath string) (*Settings, error) {
	settingsPath := LaunchSettingsPath(projectPath)

	c.mu.Lock()
	if settings, found := c.entries[settingsPath]; found {
		c.mu.Unlock()
		return settings, nil
	}
	c.mu.Unlock()

	settings, readErr := ReadLaunchSettings(projectPath)
	if readErr != nil {
		return nil, readErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return settings, nil
	}

	// Watch the containing directory rather than the file itself, so that a
	// settings file created after the first lookup still invalidates the
	// cached entry. Without a watch there is no invalidation path, so the
	// value is served but not cached.
	if watchErr := c.watcher.Add(filepath.Dir(settingsPath)); watchErr != nil {
		c.log.V(1).Info("Not watching launch settings directory", "path", settingsPath, "error", watchErr.Error())
		return settings, nil
	}

	c.entries[settingsPath] = settings

	return settings, nil
}

// Invalidate drops the cached entry for the project.
func (c *SettingsCache) Invalidate(projectPath string) {
	settingsPath := LaunchSettingsPath(projectPath)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, settingsPath)
}

// Close stops the watcher and drops all cached entries.
func (c *SettingsCache) Close() error {
	c.mu.Lock()
	c.closed = true
	c.entries = make(map[string]*Settings)
	c.mu.Unlock()
	return c.watcher.Close()
}

func (c *SettingsCache) watchLoop() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				c.mu.Lock()
				delete(c.entries, event.Name)
				c.mu.Unlock()
				c.log.V(1).Info("Launch settings changed, cache invalidated", "path", event.Name)
			}
		case watchErr, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.V(1).Info("Launch settings watcher error", "error", watchErr.Error())
		}
	}
}
