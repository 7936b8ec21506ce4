/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package interaction

import (
	"io"
	"sync"
)

// SessionContext holds the small amount of state the interaction service
// requires: the single status string and the durable output surface.
// It is created per server instance, never as a package-level singleton, so
// multiple instances (e.g. in tests) do not share state.
type SessionContext struct {
	mu     sync.Mutex
	status *string
	output io.Writer
}

// NewSessionContext creates a session context writing durable output to the
// given writer. A nil writer discards output.
func NewSessionContext(output io.Writer) *SessionContext {
	if output == nil {
		output = io.Discard
	}
	return &SessionContext{
		output: output,
	}
}

// SetStatus sets the process-wide status string; nil hides the status
// indicator. Writes from concurrent connections are last-write-wins.
func (c *SessionContext) SetStatus(text *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = text
}

// Status returns the current status string, or nil when no status is shown.
func (c *SessionContext) Status() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// AppendOutputLine appends one untagged line to the durable output surface.
func (c *SessionContext) AppendOutputLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.output, text+"\n")
}

// AppendOutput appends one child-process output line to the durable output
// surface. The stream tag is recorded with the line so interleaved stdout and
// stderr output stays distinguishable.
func (c *SessionContext) AppendOutput(line OutputLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line.Stream == "" {
		_, _ = io.WriteString(c.output, line.Text+"\n")
		return
	}
	_, _ = io.WriteString(c.output, line.Stream+": "+line.Text+"\n")
}
