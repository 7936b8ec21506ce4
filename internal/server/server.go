/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/go-logr/logr"

	"github.com/dotnet/aspire-sub011/internal/rpc"
	"github.com/dotnet/aspire-sub011/pkg/security"
)

// loopbackHost is the only interface the server ever binds to.
const loopbackHost = "127.0.0.1"

// ConnectionInfo is the address and token pair published once at startup so
// the peer process can locate and authenticate against this server instance.
// Both fields are immutable for the lifetime of the instance.
type ConnectionInfo struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

// Config contains configuration for an RPC server instance.
type Config struct {
	// Listener is the network listener for the server. If nil, the server
	// binds a TLS listener on loopback with an OS-assigned port.
	Listener net.Listener

	// Router dispatches the server-exposed method surface. The server adds
	// its own ping method to it.
	Router *rpc.Router

	// OnConnection is called for every accepted connection before serving
	// begins, letting callers attach per-connection state and close hooks.
	OnConnection func(conn *rpc.Conn)

	// Logger is the logger for the server.
	Logger logr.Logger
}

// Server is the transport and authentication layer: an encrypted loopback
// listener plus a per-instance token checked on every inbound call.
type Server struct {
	config Config
	log    logr.Logger

	token    string
	certData security.ServerCertificateData

	mu       sync.Mutex
	listener net.Listener
	started  bool
}

// New creates a new server instance.
func New(config Config) *Server {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Server{
		config: config,
		log:    log,
	}
}

// Start binds the listener, mints the instance token, and begins accepting
// connections. It returns the connection info to publish. A bind failure is
// fatal to this instance only. The server runs until the context is cancelled
// or Stop is called.
func (s *Server) Start(ctx context.Context) (ConnectionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ConnectionInfo{}, fmt.Errorf("server already started")
	}

	token, tokenErr := security.MakeBearerToken()
	if tokenErr != nil {
		return ConnectionInfo{}, fmt.Errorf("failed to generate connection token: %w", tokenErr)
	}
	s.token = token

	listener := s.config.Listener
	if listener == nil {
		certData, certErr := security.GenerateServerCertificate(net.ParseIP(loopbackHost))
		if certErr != nil {
			return ConnectionInfo{}, fmt.Errorf("failed to generate server certificate: %w", certErr)
		}
		s.certData = certData

		tlsConfig, tlsErr := certData.TLSConfig()
		if tlsErr != nil {
			return ConnectionInfo{}, fmt.Errorf("failed to build TLS configuration: %w", tlsErr)
		}

		var listenErr error
		listener, listenErr = tls.Listen("tcp", net.JoinHostPort(loopbackHost, "0"), tlsConfig)
		if listenErr != nil {
			return ConnectionInfo{}, fmt.Errorf("failed to listen: %w", listenErr)
		}
	}

	s.listener = listener
	s.started = true

	s.registerPing()

	go s.acceptLoop(ctx)
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.Info("RPC server started", "address", listener.Addr().String())

	return ConnectionInfo{
		Address: listener.Addr().String(),
		Token:   token,
	}, nil
}

// Stop closes the listener. Connections already accepted keep running until
// their streams close.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// CertificateData returns the certificate material generated for this
// instance, so a local peer can trust the server's CA.
func (s *Server) CertificateData() security.ServerCertificateData {
	return s.certData
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		netConn, acceptErr := s.listener.Accept()
		if acceptErr != nil {
			if errors.Is(acceptErr, net.ErrClosed) {
				return
			}
			// Handshake or record-layer failures drop the offending
			// connection without affecting others.
			s.log.V(1).Info("Failed to accept connection", "error", acceptErr.Error())
			continue
		}

		conn := rpc.NewConn(netConn, rpc.ConnConfig{
			Router:      s.config.Router,
			Interceptor: s.authenticate,
			Logger:      s.log,
		})

		if s.config.OnConnection != nil {
			s.config.OnConnection(conn)
		}

		go func() {
			if serveErr := conn.Serve(ctx); serveErr != nil {
				s.log.V(1).Info("Connection terminated", "error", serveErr.Error())
			}
		}()
	}
}

// authedParams is the token envelope present in every request's parameters.
type authedParams struct {
	Token string `json:"token"`
}

// authenticate verifies the token attached to a call. A mismatch rejects that
// call; the connection remains open for subsequent, correctly authenticated
// calls. The token value itself is never logged.
func (s *Server) authenticate(method string, params json.RawMessage) error {
	var ap authedParams
	if len(params) > 0 {
		// Ignore parse errors here; a missing token fails the comparison below.
		_ = json.Unmarshal(params, &ap)
	}

	if ap.Token != s.token {
		return rpc.ErrAuthenticationFailed
	}

	return nil
}

// PingResult is the response payload of the ping method.
type PingResult struct {
	Message string `json:"message"`
}

func (s *Server) registerPing() {
	if s.config.Router == nil {
		return
	}
	s.config.Router.Register("ping", func(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
		return PingResult{Message: "pong"}, nil
	})
}
