/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/dotnet/aspire-sub011/internal/launch"
	"github.com/dotnet/aspire-sub011/internal/rpc"
	"github.com/dotnet/aspire-sub011/pkg/syncmap"
)

// Method names of the server-exposed debug surface.
const (
	MethodStartDebugSession = "startDebugSession"
	MethodStopDebugSession  = "stopDebugSession"
)

// Session correlates one launch request with a native debug session. Its
// lifecycle is independent of the RPC connection that requested it.
type Session struct {
	ID        string
	Config    *launch.ResolvedDebugConfig
	StartedAt time.Time

	adapter *LaunchedAdapter
	ready   *ServerReadyWatcher
	output  func(stream, text string)
}

// HandleOutputLine feeds one child-process output line into the session:
// the server-ready watcher sees it first, then it is forwarded to the
// durable output sink, preserving stream tag and order.
func (s *Session) HandleOutputLine(stream, text string) {
	if s.ready != nil {
		s.ready.Scan(text)
	}
	if s.output != nil {
		s.output(stream, text)
	}
}

// Adapter returns the launched debug adapter, if any.
func (s *Session) Adapter() *LaunchedAdapter {
	return s.adapter
}

// ManagerConfig contains configuration for the debug session manager.
type ManagerConfig struct {
	// Settings caches per-project launch settings. Required.
	Settings *launch.SettingsCache

	// Adapters maps launch configuration types to debug adapter commands.
	// Types with no entry get a session without an adapter process.
	Adapters map[launch.Kind]*AdapterConfig

	// OpenURL is called when a session's server-ready pattern first matches.
	OpenURL func(url string)

	// OutputSink receives child-process output lines forwarded by sessions.
	OutputSink func(stream, text string)

	// Logger is the logger for the manager.
	Logger logr.Logger
}

// Manager owns the registry of debug sessions. Sessions run on the manager's
// base context, not the requesting connection's, so closing a connection
// never terminates an already-started session.
type Manager struct {
	config   ManagerConfig
	log      logr.Logger
	baseCtx  context.Context
	sessions syncmap.Map[string, *Session]
}

// NewManager creates a debug session manager. Sessions started by the manager
// live until stopped or until baseCtx is cancelled.
func NewManager(baseCtx context.Context, config ManagerConfig) *Manager {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Manager{
		config:  config,
		log:     log,
		baseCtx: baseCtx,
	}
}

// Start resolves the launch configuration and creates a debug session for it.
func (m *Manager) Start(config *launch.Configuration) (*Session, error) {
	settings, settingsErr := m.config.Settings.Get(config.ProjectPath)
	if settingsErr != nil {
		return nil, settingsErr
	}

	resolved, resolveErr := launch.Resolve(config, settings)
	if resolveErr != nil {
		return nil, resolveErr
	}

	session := &Session{
		ID:        uuid.New().String(),
		Config:    resolved,
		StartedAt: time.Now(),
		output:    m.config.OutputSink,
	}

	if resolved.ServerReady != nil {
		watcher, watchErr := NewServerReadyWatcher(resolved.ServerReady, m.config.OpenURL)
		if watchErr != nil {
			return nil, fmt.Errorf("invalid server-ready pattern: %w", watchErr)
		}
		session.ready = watcher
	}

	if adapterConfig := m.config.Adapters[config.Type]; adapterConfig != nil {
		adapter, launchErr := LaunchAdapter(m.baseCtx, adapterConfig, m.log)
		if launchErr != nil {
			return nil, fmt.Errorf("failed to launch debug adapter: %w", launchErr)
		}
		session.adapter = adapter
	}

	m.sessions.Store(session.ID, session)

	m.log.Info("Debug session started",
		"sessionId", session.ID,
		"type", string(resolved.Type),
		"profile", resolved.ProfileName)

	return session, nil
}

// Stop terminates the session with the given id.
func (m *Manager) Stop(sessionID string) error {
	session, found := m.sessions.LoadAndDelete(sessionID)
	if !found {
		return fmt.Errorf("no debug session with id %q", sessionID)
	}

	if session.adapter != nil {
		if closeErr := session.adapter.Close(); closeErr != nil {
			m.log.V(1).Info("Error closing debug adapter", "sessionId", sessionID, "error", closeErr.Error())
		}
	}

	m.log.Info("Debug session stopped", "sessionId", sessionID)
	return nil
}

// Get returns the session with the given id.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	return m.sessions.Load(sessionID)
}

// StopAll terminates every session. Used at host shutdown only.
func (m *Manager) StopAll() {
	m.sessions.Range(func(id string, _ *Session) bool {
		_ = m.Stop(id)
		return true
	})
}

// RegisterMethods registers the server-exposed debug surface on the router.
func (m *Manager) RegisterMethods(router *rpc.Router) {
	router.Register(MethodStartDebugSession, m.handleStart)
	router.Register(MethodStopDebugSession, m.handleStop)
}

type startDebugSessionParams struct {
	LaunchConfiguration launch.Configuration `json:"launch_configuration"`
}

type startDebugSessionResult struct {
	SessionID     string                      `json:"session_id"`
	Configuration *launch.ResolvedDebugConfig `json:"configuration"`
}

func (m *Manager) handleStart(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	var p startDebugSessionParams
	if err := rpc.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	session, startErr := m.Start(&p.LaunchConfiguration)
	if startErr != nil {
		return nil, startErr
	}

	return startDebugSessionResult{
		SessionID:     session.ID,
		Configuration: session.Config,
	}, nil
}

type stopDebugSessionParams struct {
	SessionID string `json:"session_id"`
}

func (m *Manager) handleStop(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	var p stopDebugSessionParams
	if err := rpc.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	if stopErr := m.Stop(p.SessionID); stopErr != nil {
		return nil, stopErr
	}
	return nil, nil
}
