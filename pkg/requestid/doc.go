// Package requestid propagates X-Request-ID across the chat service.
//
// Middleware accepts a client supplied id when it is 1-128 characters of
// [A-Za-z0-9_-] and otherwise generates a UUID. The id is echoed on the
// response, stored in the request context and picked up by the logger through
// LoggerExtractor.
//
// Transport does the opposite on the client side: it stamps outgoing requests
// made by the chat client adapter with the id from the request context.
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
package requestid
