package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrymomot/coursechat/handler"
)

// DefaultMaxJSONSize is the maximum accepted JSON body size (1MB).
const DefaultMaxJSONSize = 1 << 20

// JSON binds an application/json body. Unknown fields and trailing data are rejected.
//
//	type BroadcastRequest struct {
//		Room string          `json:"room" validate:"required"`
//		Data json.RawMessage `json:"data" validate:"required"`
//	}
func JSON() handler.Bind {
	return func(r *http.Request, v any) error {
		if err := r.Context().Err(); err != nil {
			return badRequest(ErrFailedToParseJSON, "request cancelled")
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fail(ErrMissingContentType, handler.ErrUnsupportedMediaType, "expected application/json")
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fail(ErrUnsupportedMediaType, handler.ErrUnsupportedMediaType, "got %s, expected application/json", contentType)
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, DefaultMaxJSONSize+1))
		if err != nil {
			return badRequest(ErrFailedToParseJSON, "read body: %v", err)
		}
		if len(body) > DefaultMaxJSONSize {
			return fail(ErrRequestTooLarge, handler.ErrRequestTooLarge, "max %d bytes", DefaultMaxJSONSize)
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return badRequest(ErrFailedToParseJSON, "empty body")
			}
			return badRequest(ErrFailedToParseJSON, "%v", err)
		}

		var extra json.RawMessage
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return badRequest(ErrFailedToParseJSON, "unexpected data after JSON object")
		}
		return nil
	}
}
