/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package interaction

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotnet/aspire-sub011/internal/rpc"
	"github.com/dotnet/aspire-sub011/pkg/testutil"
)

// recordingSurface captures every interaction request on buffered channels so
// tests can observe prompts and resolve them via the service callbacks.
type recordingSurface struct {
	statuses         chan *string
	inputs           chan InputPrompt
	confirmations    chan ConfirmationPrompt
	selections       chan SelectionPrompt
	notifications    chan Notification
	urlNotifications chan UrlNotification
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{
		statuses:         make(chan *string, 8),
		inputs:           make(chan InputPrompt, 8),
		confirmations:    make(chan ConfirmationPrompt, 8),
		selections:       make(chan SelectionPrompt, 8),
		notifications:    make(chan Notification, 8),
		urlNotifications: make(chan UrlNotification, 8),
	}
}

func (s *recordingSurface) ShowStatus(text *string)               { s.statuses <- text }
func (s *recordingSurface) ShowInputPrompt(p InputPrompt)         { s.inputs <- p }
func (s *recordingSurface) ShowConfirmation(p ConfirmationPrompt) { s.confirmations <- p }
func (s *recordingSurface) ShowSelection(p SelectionPrompt)       { s.selections <- p }
func (s *recordingSurface) ShowNotification(n Notification)       { s.notifications <- n }
func (s *recordingSurface) ShowUrlNotification(n UrlNotification) { s.urlNotifications <- n }

var _ Surface = (*recordingSurface)(nil)

// syncBuffer is a bytes.Buffer safe for concurrent appends from handler
// goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// serviceFixture is a service wired to a live connection pair: the peer conn
// plays the orchestrator and carries the validation callback.
type serviceFixture struct {
	service *Service
	surface *recordingSurface
	output  *syncBuffer
	peer    *rpc.Conn

	mu        sync.Mutex
	validator func(input string) *ValidationResult
}

func (f *serviceFixture) setValidator(v func(input string) *ValidationResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validator = v
}

func (f *serviceFixture) validate(input string) *ValidationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.validator == nil {
		return nil
	}
	return f.validator(input)
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	t.Cleanup(cancel)

	log := testutil.NewLogForTesting(t.Name())

	f := &serviceFixture{
		surface: newRecordingSurface(),
		output:  &syncBuffer{},
	}

	f.service = NewService(Config{
		Context: NewSessionContext(f.output),
		Surface: f.surface,
		Logger:  log,
	})

	router := rpc.NewRouter()
	f.service.RegisterMethods(router)

	peerRouter := rpc.NewRouter()
	peerRouter.Register(MethodValidatePromptInput, func(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
		var p struct {
			Input string `json:"input"`
		}
		if err := rpc.UnmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return f.validate(p.Input), nil
	})

	peerStream, serverStream := net.Pipe()
	f.peer = rpc.NewConn(peerStream, rpc.ConnConfig{Router: peerRouter, Logger: log})
	serverConn := rpc.NewConn(serverStream, rpc.ConnConfig{Router: router, Logger: log})
	f.service.BindConnection(serverConn)

	go func() { _ = f.peer.Serve(ctx) }()
	go func() { _ = serverConn.Serve(ctx) }()

	t.Cleanup(func() {
		_ = f.peer.Close()
		_ = serverConn.Close()
	})

	return f
}

func TestShowStatus(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	require.NoError(t, f.peer.Call(ctx, MethodShowStatus, map[string]any{"status": "Deploying"}, nil))

	shown := <-f.surface.statuses
	require.NotNil(t, shown)
	assert.Equal(t, "Deploying", *shown)

	status := f.service.Status()
	require.NotNil(t, status)
	assert.Equal(t, "Deploying", *status)

	// A null status hides the indicator; last write wins.
	require.NoError(t, f.peer.Call(ctx, MethodShowStatus, map[string]any{"status": nil}, nil))
	assert.Nil(t, <-f.surface.statuses)
	assert.Nil(t, f.service.Status())
}

func TestPromptForString(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	t.Run("submitted value is returned", func(t *testing.T) {
		callDone := make(chan error, 1)
		var result *string
		go func() {
			callDone <- f.peer.Call(ctx, MethodPromptForString, map[string]any{
				"text":         "Project name",
				"defaultValue": "app",
			}, &result)
		}()

		prompt := <-f.surface.inputs
		assert.Equal(t, "Project name", prompt.Text)
		assert.Equal(t, "app", prompt.Default)
		assert.False(t, prompt.Secret)
		assert.False(t, prompt.HasValidator)

		validation, submitErr := f.service.Submit(ctx, prompt.ID, "my-app")
		require.NoError(t, submitErr)
		assert.Nil(t, validation)

		require.NoError(t, <-callDone)
		require.NotNil(t, result)
		assert.Equal(t, "my-app", *result)
	})

	t.Run("dismissal yields the cancellation sentinel", func(t *testing.T) {
		callDone := make(chan error, 1)
		var result *string
		go func() {
			callDone <- f.peer.Call(ctx, MethodPromptForString, map[string]any{"text": "Name"}, &result)
		}()

		prompt := <-f.surface.inputs
		require.NoError(t, f.service.Dismiss(prompt.ID))

		require.NoError(t, <-callDone)
		assert.Nil(t, result)
	})

	t.Run("secret prompt masks input", func(t *testing.T) {
		callDone := make(chan error, 1)
		var result *string
		go func() {
			callDone <- f.peer.Call(ctx, MethodPromptForSecretString, map[string]any{"text": "API key"}, &result)
		}()

		prompt := <-f.surface.inputs
		assert.True(t, prompt.Secret)

		_, submitErr := f.service.Submit(ctx, prompt.ID, "s3cret")
		require.NoError(t, submitErr)

		require.NoError(t, <-callDone)
		require.NotNil(t, result)
		assert.Equal(t, "s3cret", *result)
	})
}

func TestPromptValidationLoop(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.setValidator(func(input string) *ValidationResult {
		if input == "invalid" {
			return &ValidationResult{Message: "that name is taken", Successful: false}
		}
		return &ValidationResult{Successful: true}
	})

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	callDone := make(chan error, 1)
	var result *string
	go func() {
		callDone <- f.peer.Call(ctx, MethodPromptForString, map[string]any{
			"text":         "Name",
			"hasValidator": true,
		}, &result)
	}()

	prompt := <-f.surface.inputs
	require.True(t, prompt.HasValidator)

	// A failed validation is a value, not an error, and the prompt stays open.
	validation, submitErr := f.service.Submit(ctx, prompt.ID, "invalid")
	require.NoError(t, submitErr)
	require.NotNil(t, validation)
	assert.False(t, validation.Successful)
	assert.Equal(t, "that name is taken", validation.Message)

	select {
	case <-callDone:
		t.Fatal("prompt completed despite failed validation")
	default:
	}

	validation, submitErr = f.service.Submit(ctx, prompt.ID, "valid")
	require.NoError(t, submitErr)
	assert.Nil(t, validation)

	require.NoError(t, <-callDone)
	require.NotNil(t, result)
	assert.Equal(t, "valid", *result)
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	t.Run("explicit false is not a dismissal", func(t *testing.T) {
		callDone := make(chan error, 1)
		var result *bool
		go func() {
			callDone <- f.peer.Call(ctx, MethodConfirm, map[string]any{
				"text":          "Delete everything?",
				"defaultChoice": false,
			}, &result)
		}()

		prompt := <-f.surface.confirmations
		assert.Equal(t, "Delete everything?", prompt.Text)
		require.NoError(t, f.service.Choose(prompt.ID, false))

		require.NoError(t, <-callDone)
		require.NotNil(t, result)
		assert.False(t, *result)
	})

	t.Run("dismissal yields the cancellation sentinel", func(t *testing.T) {
		callDone := make(chan error, 1)
		var result *bool
		go func() {
			callDone <- f.peer.Call(ctx, MethodConfirm, map[string]any{"text": "Continue?"}, &result)
		}()

		prompt := <-f.surface.confirmations
		require.NoError(t, f.service.Dismiss(prompt.ID))

		require.NoError(t, <-callDone)
		assert.Nil(t, result)
	})
}

func TestPromptForSelection(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	callDone := make(chan error, 1)
	var result *string
	go func() {
		callDone <- f.peer.Call(ctx, MethodPromptForSelection, map[string]any{
			"text":    "Pick a template",
			"choices": []string{"web", "worker", "console"},
		}, &result)
	}()

	prompt := <-f.surface.selections
	assert.Equal(t, []string{"web", "worker", "console"}, prompt.Choices)

	// A value outside the listed choices is rejected and the prompt stays open.
	require.Error(t, f.service.Select(prompt.ID, "desktop"))

	require.NoError(t, f.service.Select(prompt.ID, "worker"))
	require.NoError(t, <-callDone)
	require.NotNil(t, result)
	assert.Equal(t, "worker", *result)
}

func TestNotifications(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	expected := []struct {
		method   string
		severity NotificationSeverity
	}{
		{MethodDisplayError, SeverityError},
		{MethodDisplayMessage, SeverityInfo},
		{MethodDisplaySuccess, SeveritySuccess},
		{MethodDisplaySubtleMessage, SeveritySubtle},
	}

	for _, tc := range expected {
		require.NoError(t, f.peer.Call(ctx, tc.method, map[string]any{"message": "hello"}, nil))
		n := <-f.surface.notifications
		assert.Equal(t, tc.severity, n.Severity)
		assert.Equal(t, "hello", n.Text)
	}
}

func TestDisplayLines(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	require.NoError(t, f.peer.Call(ctx, MethodDisplayLines, map[string]any{
		"lines": []OutputLine{
			{Stream: "stdout", Text: "first"},
			{Stream: "stderr", Text: "second"},
			{Stream: "stdout", Text: "third"},
		},
	}, nil))
	require.NoError(t, f.peer.Call(ctx, MethodDisplayEmptyLine, nil, nil))

	// Order and stream tags are both preserved in the durable output.
	assert.Equal(t, "stdout: first\nstderr: second\nstdout: third\n\n", f.output.String())
}

func TestDisplayLinesKeepsStreamsDistinguishable(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	require.NoError(t, f.peer.Call(ctx, MethodDisplayLines, map[string]any{
		"lines": []OutputLine{
			{Stream: "stdout", Text: "out-line"},
			{Stream: "stderr", Text: "err-line"},
		},
	}, nil))

	// Identical text on different streams must not collapse into the same
	// durable record.
	out := f.output.String()
	assert.Contains(t, out, "stdout: out-line")
	assert.Contains(t, out, "stderr: err-line")
}

func TestDisplayDashboardUrls(t *testing.T) {
	t.Parallel()

	t.Run("both urls", func(t *testing.T) {
		f := newServiceFixture(t)

		ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
		defer cancel()

		require.NoError(t, f.peer.Call(ctx, MethodDisplayDashboardUrls, map[string]any{
			"dashboardUrls": DashboardUrls{
				Primary:   "https://localhost:18888/login?t=abc",
				Alternate: "http://localhost:18889",
			},
		}, nil))

		// Exactly one notification regardless of URL count.
		n := <-f.surface.urlNotifications
		assert.Equal(t, "https://localhost:18888/login?t=abc", n.PrimaryUrl)
		assert.Equal(t, "http://localhost:18889", n.AlternateUrl)
		select {
		case extra := <-f.surface.urlNotifications:
			t.Fatalf("unexpected second notification: %+v", extra)
		default:
		}

		assert.Equal(t,
			"Dashboard: https://localhost:18888/login?t=abc\nDashboard (alternate): http://localhost:18889\n",
			f.output.String())
	})

	t.Run("primary only", func(t *testing.T) {
		f := newServiceFixture(t)

		ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
		defer cancel()

		require.NoError(t, f.peer.Call(ctx, MethodDisplayDashboardUrls, map[string]any{
			"dashboardUrls": DashboardUrls{Primary: "https://localhost:18888"},
		}, nil))

		n := <-f.surface.urlNotifications
		assert.Empty(t, n.AlternateUrl)
		assert.Equal(t, "Dashboard: https://localhost:18888\n", f.output.String())
	})
}

func TestTeardownCancelsPendingPrompts(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	callDone := make(chan error, 1)
	go func() {
		var result *string
		callDone <- f.peer.Call(ctx, MethodPromptForString, map[string]any{"text": "Name"}, &result)
	}()

	prompt := <-f.surface.inputs

	// Tearing the peer down resolves the pending prompt with the cancellation
	// sentinel and removes it from the table.
	require.NoError(t, f.peer.Close())
	require.Error(t, <-callDone)

	require.Eventually(t, func() bool {
		return f.service.Dismiss(prompt.ID) != nil
	}, 5*time.Second, 10*time.Millisecond, "prompt was not cancelled by teardown")
}

func TestSubmitUnknownPrompt(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)

	ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
	defer cancel()

	_, submitErr := f.service.Submit(ctx, "no-such-prompt", "value")
	require.Error(t, submitErr)
	require.Error(t, f.service.Choose("no-such-prompt", true))
	require.Error(t, f.service.Select("no-such-prompt", "a"))
	require.Error(t, f.service.Dismiss("no-such-prompt"))
}
