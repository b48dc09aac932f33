package messages

import "errors"

var (
	ErrNotFound       = errors.New("message not found")
	ErrAlreadyExists  = errors.New("message already exists")
	ErrNotMember      = errors.New("user is not a member of the room")
	ErrForbidden      = errors.New("only the author can delete a message")
	ErrEmptyContent   = errors.New("message content is empty")
	ErrContentTooLong = errors.New("message content is too long")
	ErrInvalidType    = errors.New("invalid message type")
	ErrInvalidInput   = errors.New("invalid message input")
	ErrStore          = errors.New("message store failure")
)
