package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/coursechat/handler"
	"github.com/dmitrymomot/coursechat/pkg/binder"
	"github.com/dmitrymomot/coursechat/pkg/broadcast"
	"github.com/dmitrymomot/coursechat/pkg/logger"
	"github.com/dmitrymomot/coursechat/pkg/ratelimiter"
)

// sseEvent is the SSE event name every chat event is written under.
// The envelope's own type field tells the variants apart.
const sseEvent = "message"

// StreamRequest opens a subscription for one user in one room.
type StreamRequest struct {
	Room   string `query:"room" validate:"required,notblank"`
	UserID string `query:"userId" validate:"required,notblank"`
}

func (s *service) streamHandler() http.HandlerFunc {
	return handler.Wrap(s.stream,
		handler.WithBinders[handler.Context, StreamRequest](binder.Query(), binder.Validate()),
		handler.WithErrorHandler[handler.Context, StreamRequest](s.errorHandler),
	)
}

func (s *service) stream(ctx handler.Context, req StreamRequest) handler.Response {
	sess := broadcast.NewSession(s.reg, req.Room, req.UserID,
		broadcast.WithHeartbeatInterval(s.heartbeat),
		broadcast.WithBufferSize(s.bufferSize),
		broadcast.WithSessionLogger(s.log),
	)

	return handler.SSE(func(stream handler.Stream) error {
		return sess.Run(stream.Context(), broadcast.TransportFunc(func(_ context.Context, ev broadcast.Event) error {
			b, err := ev.Encode()
			if err != nil {
				return err
			}
			return stream.Send(sseEvent, b)
		}))
	})
}

// BroadcastRequest asks for an event to be fanned out to a room.
// Data is relayed to subscribers untouched.
type BroadcastRequest struct {
	Room          string              `json:"room" validate:"required,notblank"`
	Type          broadcast.EventType `json:"type" validate:"required,oneof=message delete"`
	Data          json.RawMessage     `json:"data" validate:"required"`
	ExcludeUserID string              `json:"excludeUserId"`
}

func (s *service) broadcastHandler() http.HandlerFunc {
	opts := []handler.WrapOption[handler.Context, BroadcastRequest]{
		handler.WithBinders[handler.Context, BroadcastRequest](binder.JSON(), binder.Validate()),
		handler.WithErrorHandler[handler.Context, BroadcastRequest](s.errorHandler),
	}
	if s.limiter != nil {
		opts = append(opts, handler.WithDecorators(ratelimiter.Decorator(s.limiter, senderKey, s.log)))
	}
	return handler.Wrap(s.broadcast, opts...)
}

// senderKey buckets broadcasts per room and sender. Server-side callers that
// exclude nobody are not throttled.
func senderKey(_ handler.Context, req BroadcastRequest) string {
	if req.ExcludeUserID == "" {
		return ""
	}
	return req.Room + ":" + req.ExcludeUserID
}

func (s *service) broadcast(ctx handler.Context, req BroadcastRequest) handler.Response {
	// a literal null decodes into a non-empty RawMessage
	if string(req.Data) == "null" {
		return handler.JSONError(handler.MissingFieldsError{"data"})
	}

	ev, err := broadcast.NewEvent(req.Type, req.Data)
	if err != nil {
		verr := handler.NewValidationError()
		verr.Add("data", err.Error())
		return handler.JSONError(verr)
	}

	rep := s.disp.Deliver(ctx, req.Room, ev, req.ExcludeUserID)
	s.log.DebugContext(ctx, "broadcast accepted",
		logger.Room(req.Room),
		logger.EventType(string(req.Type)),
		slog.String("exclude_user_id", req.ExcludeUserID),
		slog.Int("recipients", rep.Recipients),
	)
	return handler.JSON(map[string]bool{"ok": true})
}

// OnlineResponse is the body of the room size endpoint.
type OnlineResponse struct {
	Room   string `json:"room"`
	Online int    `json:"online"`
}

type roomRequest struct {
	Room string `path:"room" validate:"required"`
}

func (s *service) onlineHandler() http.HandlerFunc {
	return handler.Wrap(func(ctx handler.Context, req roomRequest) handler.Response {
		return handler.JSON(OnlineResponse{Room: req.Room, Online: s.reg.RoomSize(req.Room)})
	},
		handler.WithBinders[handler.Context, roomRequest](binder.Path(chi.URLParam), binder.Validate()),
		handler.WithErrorHandler[handler.Context, roomRequest](s.errorHandler),
	)
}

// StatsResponse reports process-wide stream counts.
type StatsResponse struct {
	Connections int64 `json:"connections"`
	Rooms       int   `json:"rooms"`
}

func (s *service) statsHandler() http.HandlerFunc {
	return handler.Wrap(func(ctx handler.Context, _ struct{}) handler.Response {
		return handler.JSON(StatsResponse{
			Connections: s.reg.Connections(),
			Rooms:       len(s.reg.Rooms()),
		})
	})
}
