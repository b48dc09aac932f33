package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/coursechat/db"
	"github.com/dmitrymomot/coursechat/modules/chat"
	msgmod "github.com/dmitrymomot/coursechat/modules/messages"
	"github.com/dmitrymomot/coursechat/pkg/broadcast"
	"github.com/dmitrymomot/coursechat/pkg/httpserver"
	"github.com/dmitrymomot/coursechat/pkg/logger"
	"github.com/dmitrymomot/coursechat/pkg/messages"
	"github.com/dmitrymomot/coursechat/pkg/pg"
	"github.com/dmitrymomot/coursechat/pkg/ratelimiter"
	"github.com/dmitrymomot/coursechat/pkg/redis"
	"github.com/dmitrymomot/coursechat/pkg/requestid"
)

// backends are the persistence collaborators selected by configuration.
type backends struct {
	store   messages.Store
	members messages.Membership
	checks  []httpserver.Check
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	be, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	limits := ratelimiter.NewMemoryStore()
	defer limits.Close()
	limiter, err := ratelimiter.NewLimiter(limits, cfg.BroadcastLimit)
	if err != nil {
		return err
	}

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(log *slog.Logger) {
			log.Info("closing open streams")
		}),
	)
	return srv.Run(ctx, newRouter(cfg, log, be, limiter))
}

func newRouter(cfg Config, log *slog.Logger, be *backends, limiter *ratelimiter.Limiter) http.Handler {
	// one registry per process; every stream and broadcast goes through it
	reg := broadcast.NewRegistry(broadcast.WithLogger(log))
	disp := broadcast.NewDispatcher(reg, log)
	svc := messages.NewService(be.store, be.members, messages.WithServiceLogger(log))

	r := chi.NewRouter()
	r.Use(middleware.RealIP, requestid.Middleware, middleware.Recoverer)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, cfg.ReadinessTimeout, be.checks...))

	r.Mount("/chat", chat.Router(chat.Options{
		Registry:          reg,
		Dispatcher:        disp,
		Logger:            log,
		HeartbeatInterval: cfg.HeartbeatInterval,
		BufferSize:        cfg.SinkBuffer,
		BroadcastLimiter:  limiter,
	}))
	r.Mount("/api", msgmod.Router(svc, log))
	return r
}

func openBackends(ctx context.Context, cfg Config, log *slog.Logger) (*backends, error) {
	be := &backends{}

	var pool messages.DB
	if cfg.usesPostgres() {
		p, err := pg.Connect(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		be.closers = append(be.closers, p.Close)
		be.checks = append(be.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(p)})
		if cfg.Postgres.AutoMigrate {
			if err := pg.Migrate(ctx, p, db.Migrations, cfg.Postgres, log); err != nil {
				be.close()
				return nil, err
			}
		}
		pool = p
	}

	switch cfg.MessageStore {
	case StorePostgres:
		be.store = messages.NewPostgresStore(pool)
	case StoreRedis:
		client, err := redis.Connect(ctx, cfg.Redis, log)
		if err != nil {
			be.close()
			return nil, err
		}
		be.closers = append(be.closers, func() {
			if err := client.Close(); err != nil {
				log.Error("failed to close redis client", logger.Error(err))
			}
		})
		be.checks = append(be.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
		be.store = messages.NewRedisStore(client, cfg.Redis.KeyPrefix)
	case StoreMemory, "":
		be.store = messages.NewMemoryStore()
	default:
		be.close()
		return nil, fmt.Errorf("unknown message store %q", cfg.MessageStore)
	}

	switch cfg.Membership {
	case MembershipPostgres:
		be.members = messages.NewPostgresMembership(pool)
	case MembershipMemory:
		seed, err := parseSeed(cfg.MembershipSeed)
		if err != nil {
			be.close()
			return nil, err
		}
		be.members = messages.NewMemoryMembership(seed)
	case MembershipOpen, "":
		be.members = messages.OpenMembership{}
	default:
		be.close()
		return nil, fmt.Errorf("unknown membership backend %q", cfg.Membership)
	}

	log.InfoContext(ctx, "backends ready",
		slog.String("message_store", cfg.MessageStore),
		slog.String("membership", cfg.Membership),
	)
	return be, nil
}
