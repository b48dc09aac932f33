// Package ratelimiter throttles chat requests with token buckets.
//
// A Limiter holds one bucket per key. Each bucket starts full at
// Config.Capacity and gains Config.RefillRate tokens every
// Config.RefillInterval, so a user can burst up to Capacity broadcasts and
// then continues at the refill rate.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//	limiter, err := ratelimiter.NewLimiter(store, ratelimiter.Config{
//		Capacity:       20,
//		RefillRate:     5,
//		RefillInterval: time.Second,
//	})
//
// Decorator plugs a Limiter into handler.Wrap, keyed by the decoded request:
//
//	handler.WithDecorators(ratelimiter.Decorator(limiter, func(_ handler.Context, req BroadcastRequest) string {
//		return req.Room + ":" + req.ExcludeUserID
//	}, log))
package ratelimiter
