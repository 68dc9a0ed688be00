package goVault

import (
	"context"
	"time"
)

// HealthStatus is a point-in-time availability check of the engine's
// coordination backend.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}

// Health pings the Redis backend and reports availability with the observed
// round-trip latency. A broker losing Redis can still parse tokens but cannot
// confirm revocation state, so callers should treat an unavailable backend as
// degraded rather than down.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.redis == nil {
		return HealthStatus{}
	}

	start := time.Now()
	err := e.redis.Ping(ctx).Err()
	return HealthStatus{
		RedisAvailable: err == nil,
		RedisLatency:   time.Since(start),
	}
}

// LoginAttempts returns the failed-login counter currently held against a
// username. Zero means no window is open; missing usernames also report zero
// so the call does not reveal account existence.
func (e *Engine) LoginAttempts(ctx context.Context, username string) (int, error) {
	if e == nil || e.rateLimiter == nil {
		return 0, ErrEngineNotReady
	}
	if username == "" {
		return 0, nil
	}
	return e.rateLimiter.GetLoginAttempts(ctx, username)
}
