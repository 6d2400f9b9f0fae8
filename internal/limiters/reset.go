package limiters

import (
	"context"
	"time"

	"github.com/MrEthical07/goGuard/internal/record"
)

// ResetConfig holds the per-user password-reset budget.
type ResetConfig struct {
	MaxRequests int
	Window      time.Duration
	FailOpen    bool
}

type resetAttempt struct {
	Count          int   `json:"count"`
	FirstAttemptAt int64 `json:"firstAttemptAt"`
}

// ResetLimiter allows MaxRequests reset requests per user per Window.
type ResetLimiter struct {
	base
	config ResetConfig
}

// NewResetLimiter creates a reset limiter.
func NewResetLimiter(rt Runtime, cfg ResetConfig) *ResetLimiter {
	return &ResetLimiter{base: newBase("reset", rt, cfg.FailOpen), config: cfg}
}

func resetKey(userID string) string {
	return "reset_rate_limit:" + userID
}

// Allow counts one reset request for userID, returning ErrRateLimited once
// the budget is spent. Rejected requests are not counted.
func (l *ResetLimiter) Allow(ctx context.Context, userID string) error {
	key := resetKey(userID)
	var rec resetAttempt
	found, err := l.load(ctx, key, record.KindResetAttempt, &rec)
	if err != nil {
		return l.degrade(ctx, "allow", key, err)
	}

	now := l.now()
	if !found || now.Sub(fromMillis(rec.FirstAttemptAt)) > l.config.Window {
		rec = resetAttempt{FirstAttemptAt: millis(now)}
	}
	if rec.Count >= l.config.MaxRequests {
		return ErrRateLimited
	}
	rec.Count++

	ttl := l.config.Window - now.Sub(fromMillis(rec.FirstAttemptAt))
	if err := l.save(ctx, key, record.KindResetAttempt, rec, ttl); err != nil {
		return l.degrade(ctx, "allow", key, err)
	}
	return nil
}
