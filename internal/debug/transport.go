/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package debug

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/go-dap"
)

// Transport provides an abstraction for DAP message I/O with a debug adapter
// process. Implementations must be safe for concurrent use by one reader and
// one writer goroutine.
type Transport interface {
	// ReadMessage reads the next DAP protocol message from the transport.
	// This method blocks until a complete message is available.
	ReadMessage() (dap.Message, error)

	// WriteMessage writes a DAP protocol message to the transport.
	WriteMessage(msg dap.Message) error

	// Close closes the transport, releasing any associated resources.
	// After Close is called, any blocked ReadMessage or WriteMessage calls
	// should return with an error.
	Close() error
}

// streamTransport implements Transport over a generic byte stream.
type streamTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
	close  func() error

	// writeMu protects concurrent writes to the stream
	writeMu sync.Mutex

	// closed indicates whether the transport has been closed
	closed bool
	mu     sync.Mutex
}

// NewTCPTransport creates a Transport backed by a TCP connection to the adapter.
func NewTCPTransport(conn net.Conn) Transport {
	return &streamTransport{
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		close:  conn.Close,
	}
}

// NewStdioTransport creates a Transport backed by the adapter process's
// stdout and stdin streams.
func NewStdioTransport(stdout io.ReadCloser, stdin io.WriteCloser) Transport {
	return &streamTransport{
		reader: bufio.NewReader(stdout),
		writer: bufio.NewWriter(stdin),
		close: func() error {
			stdoutErr := stdout.Close()
			stdinErr := stdin.Close()
			if stdoutErr != nil {
				return stdoutErr
			}
			return stdinErr
		},
	}
}

func (t *streamTransport) ReadMessage() (dap.Message, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, fmt.Errorf("transport is closed")
	}
	t.mu.Unlock()

	msg, readErr := dap.ReadProtocolMessage(t.reader)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read DAP message: %w", readErr)
	}

	return msg, nil
}

func (t *streamTransport) WriteMessage(msg dap.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport is closed")
	}
	t.mu.Unlock()

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if writeErr := dap.WriteProtocolMessage(t.writer, msg); writeErr != nil {
		return fmt.Errorf("failed to write DAP message: %w", writeErr)
	}

	if flushErr := t.writer.Flush(); flushErr != nil {
		return fmt.Errorf("failed to flush DAP message: %w", flushErr)
	}

	return nil
}

func (t *streamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true
	return t.close()
}
