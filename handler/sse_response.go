package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"
)

// Stream is an open Server-Sent Events connection.
type Stream interface {
	// Context is cancelled when the client goes away or the server shuts down.
	Context() context.Context
	// Send writes one SSE event. Multi-line data is split into data lines.
	Send(event string, data []byte) error
	// SendWithID writes one SSE event carrying an id field.
	SendWithID(event, id string, data []byte) error
}

// SSEHandler runs for the lifetime of the stream.
type SSEHandler func(stream Stream) error

// StreamError wraps a failure that happened after the stream was opened.
// The status line is already written, so error handlers must not render it.
type StreamError struct {
	Err error
}

func (e StreamError) Error() string { return "sse stream: " + e.Err.Error() }

func (e StreamError) Unwrap() error { return e.Err }

type sseResponse struct {
	handler SSEHandler
}

func (s sseResponse) Render(w http.ResponseWriter, r *http.Request) error {
	stream := &sseStream{sse: datastar.NewSSE(w, r)}
	if err := s.handler(stream); err != nil {
		return StreamError{Err: err}
	}
	return nil
}

// SSE creates a response that opens an event stream and hands it to fn.
//
//	return handler.SSE(func(stream handler.Stream) error {
//		for {
//			select {
//			case <-stream.Context().Done():
//				return nil
//			case ev := <-events:
//				if err := stream.Send("message", ev); err != nil {
//					return err
//				}
//			}
//		}
//	})
func SSE(fn SSEHandler) Response {
	return sseResponse{handler: fn}
}

type sseStream struct {
	sse *datastar.ServerSentEventGenerator
}

func (s *sseStream) Context() context.Context { return s.sse.Context() }

func (s *sseStream) Send(event string, data []byte) error {
	return s.sse.Send(datastar.EventType(event), dataLines(data))
}

func (s *sseStream) SendWithID(event, id string, data []byte) error {
	return s.sse.Send(datastar.EventType(event), dataLines(data), datastar.WithSSEEventId(id))
}

func dataLines(data []byte) []string {
	return strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
}
