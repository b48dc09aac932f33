package chat

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/coursechat/handler"
	"github.com/dmitrymomot/coursechat/pkg/broadcast"
	"github.com/dmitrymomot/coursechat/pkg/logger"
	"github.com/dmitrymomot/coursechat/pkg/ratelimiter"
)

// Options configures the chat module. Registry is required; a missing
// Dispatcher is built on top of it.
type Options struct {
	Registry   *broadcast.Registry
	Dispatcher *broadcast.Dispatcher
	Logger     *slog.Logger

	// HeartbeatInterval defaults to broadcast.DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration
	// BufferSize is the per-subscriber queue size, broadcast.DefaultBufferSize by default.
	BufferSize int

	// BroadcastLimiter throttles POST /broadcast per room and sender.
	// Nil disables throttling.
	BroadcastLimiter *ratelimiter.Limiter
}

type service struct {
	reg          *broadcast.Registry
	disp         *broadcast.Dispatcher
	log          *slog.Logger
	heartbeat    time.Duration
	bufferSize   int
	limiter      *ratelimiter.Limiter
	errorHandler handler.ErrorHandler[handler.Context]
}

// Router creates the chat module router.
//
//	reg := broadcast.NewRegistry(broadcast.WithLogger(log))
//	r.Mount("/chat", chat.Router(chat.Options{
//		Registry:   reg,
//		Dispatcher: broadcast.NewDispatcher(reg, log),
//		Logger:     log,
//	}))
func Router(opts Options) chi.Router {
	if opts.Registry == nil {
		panic("chat: registry is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	disp := opts.Dispatcher
	if disp == nil {
		disp = broadcast.NewDispatcher(opts.Registry, log)
	}

	s := &service{
		reg:          opts.Registry,
		disp:         disp,
		log:          log.With(logger.Component("chat")),
		heartbeat:    opts.HeartbeatInterval,
		bufferSize:   opts.BufferSize,
		limiter:      opts.BroadcastLimiter,
		errorHandler: handler.JSONErrorHandler[handler.Context](log),
	}

	r := chi.NewRouter()
	r.Get("/stream", s.streamHandler())
	r.Post("/broadcast", s.broadcastHandler())
	r.Get("/rooms/{room}/online", s.onlineHandler())
	r.Get("/stats", s.statsHandler())
	return r
}
