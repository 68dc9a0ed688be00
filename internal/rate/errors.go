package rate

import "errors"

// ErrRateLimited is returned when an attempt budget is exhausted.
var ErrRateLimited = errors.New("rate limited")

// ErrRedisUnavailable is returned when the counter backend cannot be reached.
var ErrRedisUnavailable = errors.New("redis unavailable")
