package binder

import (
	"net/http"

	"github.com/dmitrymomot/coursechat/handler"
)

// Query binds URL query parameters to fields tagged with `query`.
//
//	type StreamRequest struct {
//		Room   string `query:"room" validate:"required"`
//		UserID string `query:"userId" validate:"required"`
//	}
func Query() handler.Bind {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "query", r.URL.Query(), ErrFailedToParseQuery)
	}
}

// Path binds route parameters to fields tagged with `path`, reading them
// through extractor (chi.URLParam with chi routers).
func Path(extractor func(r *http.Request, key string) string) handler.Bind {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return badRequest(ErrFailedToParsePath, "extractor is nil")
		}
		rv, err := structValue(v)
		if err != nil {
			return err
		}

		values := make(map[string][]string)
		rt := rv.Type()
		for i := range rt.NumField() {
			name, ok := fieldName(rt.Field(i), "path")
			if !ok {
				continue
			}
			if value := extractor(r, name); value != "" {
				values[name] = []string{value}
			}
		}
		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}
