package chatclient

import (
	"math"
	"math/rand/v2"
	"time"
)

// Backoff calculates the delay before a reconnect attempt.
// Attempt starts at 1 for the first reconnect.
type Backoff interface {
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay per attempt up to MaxInterval.
// With JitterFactor zero the delays are non-decreasing across attempts.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval returns min(InitialInterval * Multiplier^(attempt-1) * (1 ± JitterFactor), MaxInterval).
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial <= 0 {
		initial = DefaultBaseDelay
	}
	maxInterval := e.MaxInterval
	if maxInterval <= 0 {
		maxInterval = DefaultMaxDelay
	}
	multiplier := e.Multiplier
	if multiplier <= 1 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if e.JitterFactor > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.JitterFactor
	}
	if interval > float64(maxInterval) {
		interval = float64(maxInterval)
	}
	return time.Duration(interval)
}
