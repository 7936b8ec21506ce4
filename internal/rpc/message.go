/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package rpc

import (
	"encoding/json"
	"fmt"
)

const jsonRPCVersion = "2.0"

// Standard JSON-RPC 2.0 error codes, plus host-specific extensions.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeAuthenticationFailed is returned when the connection token attached
	// to a call does not match the token of the server instance.
	CodeAuthenticationFailed = -32001
)

// Message is the wire envelope for both requests and responses sharing one stream.
// A message with a non-empty Method is a request (or a notification when ID is
// empty); a message without a Method is a response to an earlier request.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsRequest reports whether the message is a request or notification.
func (m *Message) IsRequest() bool {
	return m.Method != ""
}

// IsNotification reports whether the message is a request that expects no response.
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.ID == ""
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func newRequest(id string, method string, params json.RawMessage) *Message {
	return &Message{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

func newResultResponse(id string, result json.RawMessage) *Message {
	return &Message{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Result:  result,
	}
}

func newErrorResponse(id string, code int, message string) *Message {
	return &Message{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	}
}
