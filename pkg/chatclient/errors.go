package chatclient

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid chat client config")
	ErrAlreadyConnected  = errors.New("chat client is already connected")
	ErrStreamRejected    = errors.New("stream request rejected")
	ErrHandshakeFailed   = errors.New("stream did not confirm the subscription")
	ErrStreamClosed      = errors.New("stream closed by server")
	ErrBroadcastRejected = errors.New("broadcast request rejected")
	ErrRequestFailed     = errors.New("messages API request failed")
)
