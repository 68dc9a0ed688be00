package goVault

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	// MetricAuthSuccess counts authentications that completed with a token.
	MetricAuthSuccess MetricID = iota
	// MetricAuthFailure counts rejected authentication attempts.
	MetricAuthFailure
	// MetricLoginRateLimited counts throttled login attempts.
	MetricLoginRateLimited
	// MetricMFARequired counts logins that entered the MFA branch.
	MetricMFARequired
	// MetricMFASuccess counts completed factor verifications.
	MetricMFASuccess
	// MetricMFAFailure counts rejected factor verifications.
	MetricMFAFailure
	// MetricMFASetupRequired counts logins with no usable factor.
	MetricMFASetupRequired
	// MetricMFATrigger counts send-code trigger dispatches.
	MetricMFATrigger
	// MetricTokenIssued counts minted tokens.
	MetricTokenIssued
	// MetricTokenRevoked counts revoked tokens.
	MetricTokenRevoked
	// MetricValidateSuccess counts token validations that produced a context.
	MetricValidateSuccess
	// MetricValidateFailure counts rejected token validations.
	MetricValidateFailure
	// MetricKeyResolveFastPath counts ResolveKey calls satisfied by the
	// repository read alone.
	MetricKeyResolveFastPath
	// MetricKeyCreated counts key-store creation calls.
	MetricKeyCreated
	// MetricKeyResolveRaceLost counts resolvers that found a record after
	// acquiring the lock.
	MetricKeyResolveRaceLost
	// MetricKeyLockTimeout counts lock acquisition timeouts.
	MetricKeyLockTimeout
	// MetricKeyStoreFailure counts failed key-store calls.
	MetricKeyStoreFailure
	// MetricRateLimitHit counts rate-limit checks that denied a request.
	MetricRateLimitHit
	// MetricValidateLatency is the Validate latency histogram.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters. Counters are padded to
// avoid false sharing on the hot validate path.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics instance per config.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are collected.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the validate latency histogram is collected.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample for id. Only MetricValidateLatency is
// histogram-backed.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
