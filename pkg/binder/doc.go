// Package binder fills typed request structs for handler.Wrap.
//
// Each binder reads one source and only touches fields tagged for it, so a
// single struct can combine path, query and body values:
//
//	type DeleteRequest struct {
//		Room   string `path:"room" validate:"required"`
//		ID     string `path:"id" validate:"required"`
//		UserID string `query:"userId" validate:"required"`
//	}
//
//	r.Delete("/rooms/{room}/messages/{id}", handler.Wrap(h,
//		handler.WithBinders[handler.Context, DeleteRequest](
//			binder.Path(chi.URLParam),
//			binder.Query(),
//			binder.Validate(),
//		),
//	))
//
// Available binders:
//
//   - JSON(): strict application/json bodies (unknown fields and trailing data rejected, 1MB limit)
//   - Query(): URL query parameters, `query` tag
//   - Path(extractor): route parameters, `path` tag
//   - Validate(): go-playground/validator rules from the `validate` tag
//
// Scalars, pointers, slices (repeated or comma-separated) and time.Time
// (RFC 3339 or unix milliseconds) are supported.
//
// Binding failures are *Error values that match both their kind (ErrFailedToParseJSON,
// ErrUnsupportedMediaType, ...) and the handler.HTTPError used for the response.
package binder
