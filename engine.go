package goVault

import (
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/goVault/internal/rate"
	"github.com/MrEthical07/goVault/jwt"
	"github.com/MrEthical07/goVault/kms"
	"github.com/MrEthical07/goVault/lock"
)

// Engine is the secrets-broker authentication and key-provisioning core.
// Construct it through [Builder]; the zero value is not usable.
//
// All methods are safe for concurrent use. Envelope-key provisioning runs
// in the background after successful logins; Close waits for in-flight
// provisioning before shutting down the audit pipeline.
type Engine struct {
	config Config

	redis            redis.UniversalClient
	identityProvider IdentityProvider
	keyStore         kms.KeyStore
	repository       RoleKeyRepository

	tokenStore     *tokenStore
	challengeStore *mfaChallengeStore
	lockService    *lock.Service
	rateLimiter    *rate.Limiter
	jwtManager     *jwt.Manager

	audit   *auditDispatcher
	metrics *Metrics

	// provisionGroup collapses concurrent in-process ResolveKey calls for
	// the same (principal, region) pair onto one flight.
	provisionGroup singleflight.Group
	provisionWG    sync.WaitGroup

	closeOnce sync.Once
}

// Close waits for background key provisioning to settle, then flushes and
// stops the audit dispatcher. The engine must not be used after Close.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.provisionWG.Wait()
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live metrics registry for exporters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

func (e *Engine) metricInc(id MetricID) {
	if e.metrics != nil {
		e.metrics.Inc(id)
	}
}
