/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// maxFrameSize bounds the size of a single framed message.
const maxFrameSize = 16 * 1024 * 1024

// Codec provides framed message I/O over a single stream. Frames consist of a
// "Content-Length: <n>" header, an empty line, and <n> bytes of JSON payload.
// ReadMessage and WriteMessage may be called from different goroutines, but
// individual reads (or writes) may not be concurrent with each other.
type Codec struct {
	closer io.Closer
	reader *bufio.Reader
	writer *bufio.Writer

	// writeMu protects concurrent writes to the stream
	writeMu sync.Mutex

	// closed indicates whether the codec has been closed
	closed bool
	mu     sync.Mutex
}

// NewCodec creates a Codec over the given stream.
func NewCodec(rwc io.ReadWriteCloser) *Codec {
	return &Codec{
		closer: rwc,
		reader: bufio.NewReader(rwc),
		writer: bufio.NewWriter(rwc),
	}
}

// ReadMessage reads the next framed message from the stream.
// It blocks until a complete message is available.
func (c *Codec) ReadMessage() (*Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.mu.Unlock()

	contentLength := -1
	for {
		line, readErr := c.reader.ReadString('\n')
		if readErr != nil {
			return nil, fmt.Errorf("failed to read frame header: %w", readErr)
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break // end of headers
		}

		// Header-level problems desynchronize the stream and are not recoverable.
		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("malformed frame header %q", line)
		}

		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			length, parseErr := strconv.Atoi(strings.TrimSpace(value))
			if parseErr != nil {
				return nil, fmt.Errorf("invalid Content-Length %q", value)
			}
			contentLength = length
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	if contentLength > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", contentLength)
	}

	payload := make([]byte, contentLength)
	if _, readErr := io.ReadFull(c.reader, payload); readErr != nil {
		return nil, fmt.Errorf("failed to read frame payload: %w", readErr)
	}

	// The full frame has been consumed at this point, so an unparseable payload
	// rejects only this message; the stream remains usable.
	var msg Message
	if unmarshalErr := json.Unmarshal(payload, &msg); unmarshalErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, unmarshalErr)
	}

	return &msg, nil
}

// WriteMessage writes a framed message to the stream.
func (c *Codec) WriteMessage(msg *Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.mu.Unlock()

	payload, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal message: %w", marshalErr)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, writeErr := fmt.Fprintf(c.writer, "Content-Length: %d\r\n\r\n", len(payload)); writeErr != nil {
		return fmt.Errorf("failed to write frame header: %w", writeErr)
	}
	if _, writeErr := c.writer.Write(payload); writeErr != nil {
		return fmt.Errorf("failed to write frame payload: %w", writeErr)
	}
	if flushErr := c.writer.Flush(); flushErr != nil {
		return fmt.Errorf("failed to flush frame: %w", flushErr)
	}

	return nil
}

// Close closes the codec and the underlying stream. After Close is called,
// any blocked ReadMessage or WriteMessage calls return with an error.
func (c *Codec) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.closer.Close()
}
