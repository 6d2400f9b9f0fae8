package goGuard

import (
	"sort"
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLocked
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricSessionCreated
	MetricLogout
	MetricLogoutAll
	MetricAccountCreationSuccess
	MetricAccountCreationDuplicate
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure
	MetricPasswordUpgraded
	MetricPasswordResetRequest
	MetricPasswordResetRateLimited
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricRequestBlocked
	MetricRequestThrottled
	MetricSuspiciousActivity
	MetricIPAutoBlocked
	MetricIPBlockedManual
	MetricPermissionDenied
	MetricCSRFRejected
	MetricTokenRejected
	// MetricValidateLatency is the only histogram-backed ID. It records
	// access token verification latency.
	MetricValidateLatency
	metricIDCount
)

// latencyBounds are the inclusive upper edges of the validation latency
// buckets. One overflow bucket follows the last edge.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(latencyBounds) + 1

// slot keeps each hot counter on its own cache line.
type slot struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free counters for every MetricID and one latency
// histogram for MetricValidateLatency. A nil *Metrics records nothing.
type Metrics struct {
	enabled bool
	latency bool
	counts  [metricIDCount]slot
	buckets [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy. Histogram buckets are
// per-bucket counts, not cumulative; exporters accumulate them.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates counters according to cfg. Latency histograms require
// metrics to be enabled as well.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool        { return m != nil && m.enabled }
func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latency }

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.counts[id].Add(1)
}

// Observe records d for id. Only MetricValidateLatency is histogram-backed;
// other IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricValidateLatency {
		return
	}
	m.buckets[bucketFor(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counts[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := range metricIDCount {
		s.Counters[id] = m.counts[id].Load()
	}
	if m.latency {
		hist := make([]uint64, latencyBucketCount)
		for i := range hist {
			hist[i] = m.buckets[i].Load()
		}
		s.Histograms[MetricValidateLatency] = hist
	}
	return s
}

func bucketFor(d time.Duration) int {
	return sort.Search(len(latencyBounds), func(i int) bool { return d <= latencyBounds[i] })
}
