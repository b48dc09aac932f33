package binder

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/coursechat/handler"
)

var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrMissingContentType   = errors.New("missing content type")
	ErrRequestTooLarge      = errors.New("request body too large")
	ErrFailedToParseJSON    = errors.New("failed to parse JSON request body")
	ErrFailedToParseQuery   = errors.New("failed to parse query parameters")
	ErrFailedToParsePath    = errors.New("failed to parse path parameters")
	ErrInvalidTarget        = errors.New("binding target must be a non-nil pointer to struct")
)

// Error is a binding failure. It matches both its kind (one of the Err* values
// above) and the handler.HTTPError the request should be answered with.
type Error struct {
	Kind   error
	Status handler.HTTPError
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Status} }

func fail(kind error, status handler.HTTPError, format string, args ...any) error {
	return &Error{Kind: kind, Status: status, Detail: fmt.Sprintf(format, args...)}
}

func badRequest(kind error, format string, args ...any) error {
	return fail(kind, handler.ErrBadRequest, format, args...)
}
