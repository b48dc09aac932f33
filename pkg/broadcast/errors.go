package broadcast

import "errors"

var (
	// ErrSinkClosed is returned by Push after the sink has been closed.
	ErrSinkClosed = errors.New("broadcast: sink is closed")
	// ErrSinkFull is returned by Push when the subscriber is not draining its queue.
	ErrSinkFull = errors.New("broadcast: sink buffer is full")

	ErrUnknownEventType = errors.New("broadcast: unknown event type")
	ErrInvalidPayload   = errors.New("broadcast: invalid event payload")

	// ErrSendFailed wraps transport write errors that end a stream session.
	ErrSendFailed = errors.New("broadcast: stream send failed")
	// ErrSessionClosed is returned when Run is called on a session that already ran.
	ErrSessionClosed = errors.New("broadcast: session is closed")
)
