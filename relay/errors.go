package relay

import "errors"

var (
	// ErrConfigNil indicates that a nil session configuration was provided.
	ErrConfigNil = errors.New("session config is nil")

	// ErrQueueClosed indicates that the outbound queue has been closed and
	// no further messages will be delivered.
	ErrQueueClosed = errors.New("outbound queue closed")

	// ErrSessionClosed indicates that the session has been closed.
	ErrSessionClosed = errors.New("session closed")

	// ErrSessionNotOpened indicates an operation that requires an opened session.
	ErrSessionNotOpened = errors.New("session not opened")
)
