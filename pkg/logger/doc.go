// Package logger builds *slog.Logger instances for the chat service and keeps
// attribute names consistent across packages.
//
// New creates a logger from functional options: output format (json or text),
// level, static attributes and ContextExtractor callbacks that pull values such
// as the request id out of context.Context on every record.
//
// Usage:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "coursechat"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "subscriber joined",
//		logger.Room(room),
//		logger.UserID(userID),
//	)
//
// Helper constructors such as Error and UserID return an empty slog.Attr for
// nil or empty input, so call sites need no extra checks.
package logger
