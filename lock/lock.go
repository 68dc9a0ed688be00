package lock

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrAcquireTimeout is returned when the lock could not be acquired
	// within the caller's MaxWait. Retryable.
	ErrAcquireTimeout = errors.New("lock acquire timeout")
	// ErrNotHeld is returned by Release when the holder token no longer
	// matches, meaning the lease expired and another holder took over.
	ErrNotHeld = errors.New("lock not held")
	// ErrRedisUnavailable is returned when the lock backend cannot be reached.
	ErrRedisUnavailable = errors.New("lock backend unavailable")
)

// Release only deletes the key while this holder's token is still in place.
// An expired lease that moved to another holder must not be clobbered.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLua = redis.NewScript(releaseScript)

// Config holds lock service tuning parameters.
type Config struct {
	// RetryInterval is the base polling interval while waiting for a
	// contended lock; each wait is jittered to avoid thundering herds.
	RetryInterval time.Duration
}

// Service is a cluster-wide mutual-exclusion primitive keyed by resource
// name, with lease expiry. At most one live holder exists per resource at any
// time; an expired lease is equivalent to a release.
type Service struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

// Lock is one successful acquisition. It is released explicitly or by lease
// expiry, whichever comes first.
type Lock struct {
	service  *Service
	resource string
	holder   string
}

// New creates a lock [Service] backed by the given Redis client. The prefix
// namespaces lock keys away from other Redis users.
func New(redisClient redis.UniversalClient, prefix string, cfg Config) *Service {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	return &Service{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

func (s *Service) key(resource string) string {
	return s.prefix + ":" + resource
}

// Acquire takes the lock for resource with the given lease, polling for up to
// maxWait. It returns ErrAcquireTimeout when the wait budget is exhausted and
// ctx.Err() when the caller's context is cancelled first.
func (s *Service) Acquire(ctx context.Context, resource string, lease, maxWait time.Duration) (*Lock, error) {
	holder := uuid.NewString()
	key := s.key(resource)
	deadline := time.Now().Add(maxWait)

	for {
		ok, err := s.redis.SetNX(ctx, key, holder, lease).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if ok {
			return &Lock{service: s, resource: resource, holder: holder}, nil
		}

		wait := jitter(s.config.RetryInterval)
		if time.Now().Add(wait).After(deadline) {
			return nil, ErrAcquireTimeout
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Release frees the lock if this holder still owns it. Releasing after lease
// expiry returns ErrNotHeld; callers treat that as already-released.
func (l *Lock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}

	deleted, err := releaseLua.Run(ctx, l.service.redis, []string{l.service.key(l.resource)}, l.holder).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if deleted == 0 {
		return ErrNotHeld
	}
	return nil
}

// Resource returns the resource name this lock guards.
func (l *Lock) Resource() string {
	if l == nil {
		return ""
	}
	return l.resource
}

// jitter returns a duration in [base/2, base+base/2). Jitter spreads the
// pollers contending for the same key.
func jitter(base time.Duration) time.Duration {
	half := base / 2
	n, err := rand.Int(rand.Reader, big.NewInt(int64(base)))
	if err != nil {
		return base
	}
	return half + time.Duration(n.Int64())
}
