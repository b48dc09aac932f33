// Package handler provides type-safe HTTP handlers built on generics.
//
// A HandlerFunc receives a Context and a request value populated by binders,
// and returns a Response that renders itself:
//
//	type OnlineRequest struct {
//		Room string `path:"room" validate:"required"`
//	}
//
//	h := func(ctx handler.Context, req OnlineRequest) handler.Response {
//		return handler.JSON(map[string]any{"room": req.Room, "online": reg.RoomSize(req.Room)})
//	}
//
//	r.Get("/rooms/{room}/online", handler.Wrap(h,
//		handler.WithBinders[handler.Context, OnlineRequest](binder.Path(chi.URLParam)),
//	))
//
// Responses are JSON envelopes ({"data":...} or {"error":{"code","message","details"}}),
// empty responses, or Server-Sent Event streams opened with SSE.
//
// Errors map to status codes: HTTPError uses its code, MissingFieldsError is 400,
// ValidationError is 422 and anything else is a 500 that hides its message.
package handler
