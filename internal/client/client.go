/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"

	"github.com/dotnet/aspire-sub011/internal/interaction"
	"github.com/dotnet/aspire-sub011/internal/rpc"
	"github.com/dotnet/aspire-sub011/pkg/resiliency"
)

// Config contains configuration for the orchestrator-side RPC peer.
type Config struct {
	// Address is the published "host:port" address of the host server.
	Address string

	// Token is the published connection token, attached to every call.
	Token string

	// TLSConfig is the TLS configuration used to dial. If nil, certificate
	// verification is skipped: the connection is loopback-only and every
	// call is authenticated by the token.
	TLSConfig *tls.Config

	// Version is reported to the host via the getCliVersion method.
	Version string

	// OnStopRequested is called when the host asks the orchestrator to stop.
	OnStopRequested func()

	// Validator validates candidate prompt input on behalf of the host.
	// A nil validator reports "no validation configured" for every prompt.
	Validator func(ctx context.Context, input string) *interaction.ValidationResult

	// Logger is the logger for the client.
	Logger logr.Logger
}

// Client is the orchestrator side of the RPC channel: it dials the published
// address, attaches the token to every outgoing call, and serves the
// client-exposed method surface.
type Client struct {
	config Config
	log    logr.Logger
	conn   *rpc.Conn
}

// Connect dials the host with exponential back-off and starts serving the
// connection. The returned client is ready for calls.
func Connect(ctx context.Context, config Config) (*Client, error) {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	tlsConfig := config.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // loopback peer, token-authenticated calls
			MinVersion:         tls.VersionTLS12,
		}
	}

	c := &Client{
		config: config,
		log:    log,
	}

	router := rpc.NewRouter()
	c.registerMethods(router)

	netConn, dialErr := resiliency.RetryGet(ctx, backoff.NewExponentialBackOff(), func() (net.Conn, error) {
		dialer := &tls.Dialer{Config: tlsConfig}
		return dialer.DialContext(ctx, "tcp", config.Address)
	})
	if dialErr != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Address, dialErr)
	}

	c.conn = rpc.NewConn(netConn, rpc.ConnConfig{
		Router: router,
		Logger: log,
	})

	go func() {
		if serveErr := c.conn.Serve(ctx); serveErr != nil {
			log.V(1).Info("Connection terminated", "error", serveErr.Error())
		}
	}()

	return c, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Done returns a channel closed when the connection is torn down.
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

// registerMethods registers the client-exposed method surface.
func (c *Client) registerMethods(router *rpc.Router) {
	router.Register("getCliVersion", func(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
		return map[string]string{"version": c.config.Version}, nil
	})

	router.Register("stopCli", func(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
		if c.config.OnStopRequested != nil {
			c.config.OnStopRequested()
		}
		return nil, nil
	})

	router.Register(interaction.MethodValidatePromptInput, func(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
		var p struct {
			Input string `json:"input"`
		}
		if err := rpc.UnmarshalParams(params, &p); err != nil {
			return nil, err
		}
		if c.config.Validator == nil {
			// No validation configured: a null result keeps the host from
			// blocking submission.
			return nil, nil
		}
		return c.config.Validator(ctx, p.Input), nil
	})
}

// call invokes a server-exposed method with the token attached.
func (c *Client) call(ctx context.Context, method string, params map[string]any, result any) error {
	if params == nil {
		params = make(map[string]any)
	}
	params["token"] = c.config.Token
	return c.conn.Call(ctx, method, params, result)
}
