package client

import "github.com/pkg/errors"

var (
	// ErrNotConnected - client has no connection to the server.
	ErrNotConnected = errors.New("client: not connected")

	// ErrInboxClosed - inbox is closed and drained.
	ErrInboxClosed = errors.New("client: inbox closed")

	// ErrEmptyText - nothing left to send after sanitizing.
	ErrEmptyText = errors.New("client: empty text")
)
