// Package httpserver runs the chat HTTP service with graceful shutdown.
//
// Server binds its listener up front (so Addr reports the real port when
// ":0" is used), serves until the context is cancelled or SIGINT/SIGTERM
// arrives, and then shuts down within a configurable deadline. Every request
// context derives from a base context that is cancelled first during shutdown:
// open SSE subscriptions see their transport abort and unregister from the
// room registry before the server finishes draining.
//
// LivenessHandler and ReadinessHandler provide the /health probes; readiness
// takes named checks such as the Postgres or Redis healthchecks.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(func(*slog.Logger) { pool.Close() }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
package httpserver
