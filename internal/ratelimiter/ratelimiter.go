package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter paces calls with a token bucket.
//
// This implementation wraps golang.org/x/time/rate to provide:
//   - Token bucket rate limiting (allows bursts while enforcing sustained rate)
//   - Context-aware waiting (respects cancellation)
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter with the specified rate and burst capacity.
//
// Parameters:
//   - opsPerSecond: Maximum sustained rate (tokens added per second)
//   - burst: Maximum burst size (bucket capacity in tokens)
//
// Special cases:
//   - opsPerSecond = 0: No rate limiting (unlimited)
//   - burst = 0: Defaults to one token, so every call waits its turn
//
// Example:
//
//	// Allow 100 ops/s sustained, 200 ops/s burst
//	limiter := New(100, 200)
func New(opsPerSecond, burst uint) *RateLimiter {
	if opsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = 1
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(opsPerSecond), int(burst)),
	}
}

// Allow reports whether a token is available now, consuming it if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
//
// Returns:
//   - nil if a token was acquired
//   - context error if the context was cancelled before a token was available
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// tokens returns the current number of available tokens.
// Note that the value may change immediately after this call.
func (r *RateLimiter) tokens() float64 {
	return r.limiter.Tokens()
}
