package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/coursechat/pkg/logger"
)

// JSONErrorHandler renders errors as JSON envelopes and logs them.
// Server errors are logged at error level, client errors at debug level.
// Errors raised after a stream was opened are only logged.
func JSONErrorHandler[C Context](log *slog.Logger) ErrorHandler[C] {
	if log == nil {
		log = logger.Noop()
	}
	return func(ctx C, err error) {
		r := ctx.Request()

		var streamErr StreamError
		if errors.As(err, &streamErr) {
			log.DebugContext(ctx, "stream ended with error",
				slog.String("path", r.URL.Path),
				logger.Error(streamErr.Err),
			)
			return
		}

		status := StatusCode(err)
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(ctx, level, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			logger.Error(err),
		)

		writeError(ctx.ResponseWriter(), err)
	}
}
