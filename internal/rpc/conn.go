/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/dotnet/aspire-sub011/pkg/syncmap"
)

// Handler processes one inbound request. The returned value is marshalled as
// the result; returning a nil value with a nil error produces a null result,
// which typed callers interpret as the cancellation sentinel.
type Handler func(ctx context.Context, conn *Conn, params json.RawMessage) (any, error)

// Router maps method names to handlers. Registration is not synchronized and
// must complete before the router is attached to a serving connection.
type Router struct {
	handlers map[string]Handler
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]Handler),
	}
}

func (r *Router) Register(method string, handler Handler) {
	r.handlers[method] = handler
}

func (r *Router) lookup(method string) (Handler, bool) {
	h, found := r.handlers[method]
	return h, found
}

// ConnConfig contains configuration for one RPC connection.
type ConnConfig struct {
	// Router dispatches inbound requests. A nil router rejects every method.
	Router *Router

	// Interceptor, if set, runs before every inbound request handler.
	// A returned error rejects the call without invoking the handler;
	// the connection stays open.
	Interceptor func(method string, params json.RawMessage) error

	// Logger is the logger for the connection.
	Logger logr.Logger
}

// Conn is one bidirectional, multiplexed RPC connection. Both peers may issue
// requests concurrently; responses are matched to pending requests by id and
// may arrive out of order.
type Conn struct {
	codec  *Codec
	router *Router
	config ConnConfig
	log    logr.Logger

	// pending tracks outbound requests awaiting a response, keyed by request id.
	pending syncmap.Map[string, chan *Message]

	closeOnce sync.Once
	done      chan struct{}

	hooksMu    sync.Mutex
	closeHooks []func()
}

// NewConn creates a connection over the given stream. The caller must invoke
// Serve to start dispatching inbound messages.
func NewConn(stream io.ReadWriteCloser, config ConnConfig) *Conn {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	return &Conn{
		codec:  NewCodec(stream),
		router: config.Router,
		config: config,
		log:    log,
		done:   make(chan struct{}),
	}
}

// Done returns a channel that is closed when the connection is torn down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// OnClose registers a hook invoked exactly once at connection teardown.
// Interactive operations use this to resolve their still-pending prompts
// with the cancellation sentinel.
func (c *Conn) OnClose(hook func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	select {
	case <-c.done:
		// Already closed; run the hook immediately.
		go hook()
	default:
		c.closeHooks = append(c.closeHooks, hook)
	}
}

// Serve reads and dispatches inbound messages until the stream fails, the
// context is cancelled, or the connection is closed. Each inbound request runs
// on its own goroutine so a pending interactive call never blocks others.
func (c *Conn) Serve(ctx context.Context) error {
	defer c.Close()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	for {
		msg, readErr := c.codec.ReadMessage()
		if readErr != nil {
			if errors.Is(readErr, ErrMalformedFrame) {
				// A single unparseable payload rejects that call only.
				c.log.V(1).Info("Dropping malformed message", "error", readErr.Error())
				continue
			}
			select {
			case <-c.done:
				return nil
			default:
			}
			if errors.Is(readErr, io.EOF) || errors.Is(readErr, net.ErrClosed) {
				return nil
			}
			return readErr
		}

		if msg.IsRequest() {
			go c.dispatchRequest(ctx, msg)
		} else {
			c.dispatchResponse(msg)
		}
	}
}

// dispatchRequest runs the interceptor and handler for one inbound request
// and writes the response (unless the request is a notification).
func (c *Conn) dispatchRequest(ctx context.Context, msg *Message) {
	respond := func(resp *Message) {
		if msg.IsNotification() {
			return
		}
		if writeErr := c.codec.WriteMessage(resp); writeErr != nil {
			c.log.V(1).Info("Failed to write response", "method", msg.Method, "error", writeErr.Error())
		}
	}

	if c.config.Interceptor != nil {
		if authErr := c.config.Interceptor(msg.Method, msg.Params); authErr != nil {
			code := CodeInvalidRequest
			if IsAuthenticationError(authErr) {
				code = CodeAuthenticationFailed
			}
			c.log.Info("Rejecting call", "method", msg.Method, "error", authErr.Error())
			respond(newErrorResponse(msg.ID, code, authErr.Error()))
			return
		}
	}

	var handler Handler
	var found bool
	if c.router != nil {
		handler, found = c.router.lookup(msg.Method)
	}
	if !found {
		respond(newErrorResponse(msg.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", msg.Method)))
		return
	}

	result, handlerErr := handler(ctx, c, msg.Params)
	if handlerErr != nil {
		var rpcErr *Error
		if errors.As(handlerErr, &rpcErr) {
			respond(&Message{JSONRPC: jsonRPCVersion, ID: msg.ID, Error: rpcErr})
		} else {
			respond(newErrorResponse(msg.ID, CodeInternalError, handlerErr.Error()))
		}
		return
	}

	payload, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		respond(newErrorResponse(msg.ID, CodeInternalError, fmt.Sprintf("failed to marshal result: %v", marshalErr)))
		return
	}

	respond(newResultResponse(msg.ID, payload))
}

// dispatchResponse completes the pending request matching the response id.
func (c *Conn) dispatchResponse(msg *Message) {
	ch, found := c.pending.LoadAndDelete(msg.ID)
	if !found {
		c.log.V(1).Info("Received response for unknown request", "requestId", msg.ID)
		return
	}

	ch <- msg
	close(ch)
}

// Call sends a request and blocks until the matching response arrives, the
// context is cancelled, or the connection closes. A non-nil result receives
// the unmarshalled response payload; a null payload leaves it untouched.
func (c *Conn) Call(ctx context.Context, method string, params any, result any) error {
	payload, marshalErr := marshalParams(params)
	if marshalErr != nil {
		return marshalErr
	}

	id := uuid.New().String()
	respChan := make(chan *Message, 1)
	c.pending.Store(id, respChan)

	defer c.pending.Delete(id)

	if writeErr := c.codec.WriteMessage(newRequest(id, method, payload)); writeErr != nil {
		return writeErr
	}

	select {
	case resp, ok := <-respChan:
		if !ok {
			return ErrConnectionClosed
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if unmarshalErr := json.Unmarshal(resp.Result, result); unmarshalErr != nil {
				return fmt.Errorf("failed to unmarshal result of %q: %w", method, unmarshalErr)
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrConnectionClosed
	}
}

// Notify sends a request that expects no response.
func (c *Conn) Notify(method string, params any) error {
	payload, marshalErr := marshalParams(params)
	if marshalErr != nil {
		return marshalErr
	}
	return c.codec.WriteMessage(newRequest("", method, payload))
}

// Close tears the connection down: the stream is closed, every pending
// outbound call fails with ErrConnectionClosed, and close hooks run so that
// inbound interactive requests resolve with the cancellation sentinel.
func (c *Conn) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		close(c.done)
		closeErr = c.codec.Close()

		c.pending.Range(func(id string, ch chan *Message) bool {
			if _, found := c.pending.LoadAndDelete(id); found {
				close(ch)
			}
			return true
		})

		c.hooksMu.Lock()
		hooks := c.closeHooks
		c.closeHooks = nil
		c.hooksMu.Unlock()

		for _, hook := range hooks {
			hook()
		}
	})
	return closeErr
}

// UnmarshalParams decodes request parameters into the given value, reporting
// an invalid-params error on failure.
func UnmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}
	return payload, nil
}
