package ratelimiter

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/dmitrymomot/coursechat/handler"
	"github.com/dmitrymomot/coursechat/pkg/logger"
)

// Decorator rejects requests over the limit with 429 and sets the
// X-RateLimit-* headers. Requests with an empty key are not limited. Store
// failures let the request through.
func Decorator[C handler.Context, R any](l *Limiter, key func(ctx C, req R) string, log *slog.Logger) handler.Decorator[C, R] {
	if log == nil {
		log = logger.Noop()
	}
	return func(next handler.HandlerFunc[C, R]) handler.HandlerFunc[C, R] {
		return func(ctx C, req R) handler.Response {
			k := key(ctx, req)
			if k == "" {
				return next(ctx, req)
			}

			res, err := l.Allow(ctx, k)
			if err != nil {
				log.WarnContext(ctx, "rate limit check failed", slog.String("key", k), logger.Error(err))
				return next(ctx, req)
			}

			h := ctx.ResponseWriter().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				if wait := res.RetryAfter(time.Now()); wait > 0 {
					h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				}
				log.DebugContext(ctx, "rate limited", slog.String("key", k))
				return handler.JSONError(handler.ErrTooManyRequests)
			}
			return next(ctx, req)
		}
	}
}
