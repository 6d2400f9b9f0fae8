package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/goGuard/internal/record"
)

// maxTrackedFailures bounds the timestamps kept per IP. Counts above it
// report the cap, which is already far past any detection threshold.
const maxTrackedFailures = 64

// FailureConfig holds the per-IP failed-login window.
type FailureConfig struct {
	Window   time.Duration
	FailOpen bool
}

// ipFailures keeps one timestamp per failure so the count always covers the
// trailing window ending now. Count and FirstAttemptAt mirror Attempts.
type ipFailures struct {
	Count          int     `json:"count"`
	FirstAttemptAt int64   `json:"firstAttemptAt"`
	Attempts       []int64 `json:"attempts"`
}

// prune drops attempts older than window before now.
func (r *ipFailures) prune(now time.Time, window time.Duration) {
	cutoff := millis(now.Add(-window))
	kept := r.Attempts[:0]
	for _, at := range r.Attempts {
		if at > cutoff {
			kept = append(kept, at)
		}
	}
	if n := len(kept); n > maxTrackedFailures {
		kept = kept[n-maxTrackedFailures:]
	}
	r.Attempts = kept
	r.Count = len(kept)
	r.FirstAttemptAt = 0
	if len(kept) > 0 {
		r.FirstAttemptAt = kept[0]
	}
}

// IPFailureCounter counts failed logins per client IP across all emails.
type IPFailureCounter struct {
	base
	config FailureConfig
}

// NewIPFailureCounter creates a failure counter.
func NewIPFailureCounter(rt Runtime, cfg FailureConfig) *IPFailureCounter {
	return &IPFailureCounter{base: newBase("ip_failures", rt, cfg.FailOpen), config: cfg}
}

func failuresKey(ip string) string {
	return "login_failures_ip:" + ip
}

// RecordFailure counts one failed login from ip and returns the failures seen
// in the trailing window.
func (c *IPFailureCounter) RecordFailure(ctx context.Context, ip string) (int, error) {
	if ip == "" {
		return 0, nil
	}
	key := failuresKey(ip)
	var rec ipFailures
	if _, err := c.load(ctx, key, record.KindIPFailures, &rec); err != nil {
		return 0, c.degrade(ctx, "record_failure", key, err)
	}

	now := c.now()
	rec.Attempts = append(rec.Attempts, millis(now))
	rec.prune(now, c.config.Window)

	// The record lives until its newest failure leaves the window.
	if err := c.save(ctx, key, record.KindIPFailures, rec, c.config.Window); err != nil {
		return 0, c.degrade(ctx, "record_failure", key, err)
	}
	return rec.Count, nil
}

// Count returns the failures recorded for ip in the trailing window.
func (c *IPFailureCounter) Count(ctx context.Context, ip string) (int, error) {
	key := failuresKey(ip)
	var rec ipFailures
	found, err := c.load(ctx, key, record.KindIPFailures, &rec)
	if err != nil {
		return 0, c.degrade(ctx, "count", key, err)
	}
	if !found {
		return 0, nil
	}
	rec.prune(c.now(), c.config.Window)
	return rec.Count, nil
}
