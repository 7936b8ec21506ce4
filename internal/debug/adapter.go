/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package debug

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/dotnet/aspire-sub011/internal/launch"
)

// PortPlaceholder is the placeholder in adapter args that is replaced with the
// listener port in TCP mode.
const PortPlaceholder = "{{port}}"

// DefaultAdapterConnectionTimeout is the default timeout for the adapter to
// connect back in TCP mode.
const DefaultAdapterConnectionTimeout = 10 * time.Second

// ErrInvalidAdapterConfig is returned when the debug adapter configuration is invalid.
var ErrInvalidAdapterConfig = errors.New("invalid debug adapter configuration: args must have at least one element")

// ErrAdapterConnectionTimeout is returned when the adapter fails to connect within the timeout.
var ErrAdapterConnectionTimeout = errors.New("debug adapter connection timeout")

// AdapterMode specifies how the debug adapter communicates.
type AdapterMode string

const (
	// AdapterModeStdio indicates the adapter uses stdin/stdout for DAP communication.
	AdapterModeStdio AdapterMode = "stdio"

	// AdapterModeTCPCallback indicates we start a listener and the adapter
	// connects to us. Use the {{port}} placeholder in args.
	AdapterModeTCPCallback AdapterMode = "tcp-callback"
)

// AdapterConfig holds the configuration for launching a debug adapter process
// for one language/runtime.
type AdapterConfig struct {
	// Args contains the command and arguments to launch the debug adapter.
	// The first element is the executable path.
	Args []string `json:"args"`

	// Mode specifies how the adapter communicates. An empty string is
	// treated as "stdio".
	Mode AdapterMode `json:"mode,omitempty"`

	// Env contains environment variables to set for the adapter process.
	Env []launch.EnvVar `json:"env,omitempty"`

	// ConnectionTimeoutSeconds is the timeout for connecting to the adapter
	// in TCP mode. If zero, DefaultAdapterConnectionTimeout is used.
	ConnectionTimeoutSeconds int `json:"connectionTimeoutSeconds,omitempty"`
}

// GetConnectionTimeout returns the connection timeout as a time.Duration.
func (c *AdapterConfig) GetConnectionTimeout() time.Duration {
	if c.ConnectionTimeoutSeconds > 0 {
		return time.Duration(c.ConnectionTimeoutSeconds) * time.Second
	}
	return DefaultAdapterConnectionTimeout
}

// EffectiveMode returns the adapter mode, defaulting to stdio.
func (c *AdapterConfig) EffectiveMode() AdapterMode {
	switch c.Mode {
	case AdapterModeStdio, AdapterModeTCPCallback:
		return c.Mode
	default:
		return AdapterModeStdio
	}
}

// LaunchedAdapter represents a running debug adapter process with its transport.
type LaunchedAdapter struct {
	// Transport provides DAP message I/O with the debug adapter.
	Transport Transport

	cmd      *exec.Cmd
	listener net.Listener

	// done signals when the process has exited.
	done chan struct{}

	mu      sync.Mutex
	exitErr error
}

// Wait blocks until the debug adapter process exits.
func (la *LaunchedAdapter) Wait() error {
	<-la.done
	la.mu.Lock()
	defer la.mu.Unlock()
	return la.exitErr
}

// Done returns a channel that is closed when the debug adapter process exits.
func (la *LaunchedAdapter) Done() <-chan struct{} {
	return la.done
}

// Close closes the transport and listener and stops the adapter process.
func (la *LaunchedAdapter) Close() error {
	var errs []error
	if la.Transport != nil {
		if closeErr := la.Transport.Close(); closeErr != nil {
			errs = append(errs, closeErr)
		}
	}
	if la.listener != nil {
		if closeErr := la.listener.Close(); closeErr != nil {
			errs = append(errs, closeErr)
		}
	}
	if la.cmd != nil && la.cmd.Process != nil {
		select {
		case <-la.done:
		default:
			_ = la.cmd.Process.Kill()
		}
	}
	return errors.Join(errs...)
}

// LaunchAdapter launches a debug adapter process using the provided
// configuration. The process lifetime is tied to the context.
func LaunchAdapter(ctx context.Context, config *AdapterConfig, log logr.Logger) (*LaunchedAdapter, error) {
	if config == nil || len(config.Args) == 0 {
		return nil, ErrInvalidAdapterConfig
	}

	switch config.EffectiveMode() {
	case AdapterModeTCPCallback:
		return launchTCPCallbackAdapter(ctx, config, log)
	default:
		return launchStdioAdapter(ctx, config, log)
	}
}

func launchStdioAdapter(ctx context.Context, config *AdapterConfig, log logr.Logger) (*LaunchedAdapter, error) {
	cmd := exec.CommandContext(ctx, config.Args[0], config.Args[1:]...)
	cmd.Env = buildEnv(config)

	stdin, stdinErr := cmd.StdinPipe()
	if stdinErr != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", stdinErr)
	}

	stdout, stdoutErr := cmd.StdoutPipe()
	if stdoutErr != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", stdoutErr)
	}

	if startErr := cmd.Start(); startErr != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("failed to start debug adapter: %w", startErr)
	}

	adapter := &LaunchedAdapter{
		Transport: NewStdioTransport(stdout, stdin),
		cmd:       cmd,
		done:      make(chan struct{}),
	}
	go adapter.waitForExit(log)

	log.Info("Launched debug adapter process (stdio mode)",
		"command", config.Args[0],
		"pid", cmd.Process.Pid)

	return adapter, nil
}

func launchTCPCallbackAdapter(ctx context.Context, config *AdapterConfig, log logr.Logger) (*LaunchedAdapter, error) {
	listener, listenErr := net.Listen("tcp", "127.0.0.1:0")
	if listenErr != nil {
		return nil, fmt.Errorf("failed to create listener: %w", listenErr)
	}

	_, portStr, _ := net.SplitHostPort(listener.Addr().String())
	args := substitutePort(config.Args, portStr)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = buildEnv(config)

	if startErr := cmd.Start(); startErr != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to start debug adapter: %w", startErr)
	}

	adapter := &LaunchedAdapter{
		cmd:      cmd,
		listener: listener,
		done:     make(chan struct{}),
	}
	go adapter.waitForExit(log)

	log.Info("Launched debug adapter process (tcp-callback mode)",
		"command", args[0],
		"pid", cmd.Process.Pid,
		"listenAddress", listener.Addr().String())

	connCh := make(chan net.Conn, 1)
	errCh := make(chan error, 1)
	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			errCh <- acceptErr
			return
		}
		connCh <- conn
	}()

	select {
	case conn := <-connCh:
		log.Info("Debug adapter connected", "remoteAddr", conn.RemoteAddr().String())
		adapter.Transport = NewTCPTransport(conn)
		return adapter, nil
	case acceptErr := <-errCh:
		_ = adapter.Close()
		return nil, fmt.Errorf("failed to accept adapter connection: %w", acceptErr)
	case <-time.After(config.GetConnectionTimeout()):
		_ = adapter.Close()
		return nil, ErrAdapterConnectionTimeout
	case <-ctx.Done():
		_ = adapter.Close()
		return nil, ctx.Err()
	}
}

func (la *LaunchedAdapter) waitForExit(log logr.Logger) {
	waitErr := la.cmd.Wait()

	la.mu.Lock()
	la.exitErr = waitErr
	la.mu.Unlock()
	close(la.done)

	if waitErr != nil {
		log.V(1).Info("Debug adapter process exited with error", "error", waitErr.Error())
	} else {
		log.V(1).Info("Debug adapter process exited")
	}
}

// substitutePort replaces the {{port}} placeholder in args with the actual port.
func substitutePort(args []string, port string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = strings.ReplaceAll(arg, PortPlaceholder, port)
	}
	return result
}

// buildEnv builds the environment for the adapter process.
func buildEnv(config *AdapterConfig) []string {
	env := os.Environ()
	for _, e := range config.Env {
		env = append(env, e.Name+"="+e.Value)
	}
	return env
}
