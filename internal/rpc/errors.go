/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package rpc

import "errors"

var (
	// ErrConnectionClosed is returned when attempting to use a closed connection,
	// and is the completion value for outbound calls still pending at teardown.
	ErrConnectionClosed = errors.New("connection is closed")

	// ErrMalformedFrame is returned when an incoming frame cannot be parsed.
	// It rejects the affected call; the connection itself may continue.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrAuthenticationFailed is returned when the token attached to a call
	// does not match the server instance token.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// IsAuthenticationError reports whether the error represents a token mismatch,
// either locally or as reported by the remote peer.
func IsAuthenticationError(err error) bool {
	if errors.Is(err, ErrAuthenticationFailed) {
		return true
	}
	var rpcErr *Error
	return errors.As(err, &rpcErr) && rpcErr.Code == CodeAuthenticationFailed
}
