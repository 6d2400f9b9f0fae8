package limiters

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/goGuard/internal/record"
)

// LoginConfig holds the per-email lockout policy.
type LoginConfig struct {
	MaxAttempts     int
	Window          time.Duration
	LockoutDuration time.Duration
	FailOpen        bool
}

// LoginStatus describes the current state of one email's attempt record.
type LoginStatus struct {
	Attempts    int
	Remaining   int
	Locked      bool
	LockedUntil time.Time
	RetryAfter  time.Duration
}

type loginAttempt struct {
	Count          int   `json:"count"`
	FirstAttemptAt int64 `json:"firstAttemptAt"`
	LockedUntil    int64 `json:"lockedUntil,omitempty"`
}

// LoginLimiter counts failed logins per email and locks the email once
// MaxAttempts failures land inside Window.
type LoginLimiter struct {
	base
	config LoginConfig
}

// NewLoginLimiter creates a login limiter.
func NewLoginLimiter(rt Runtime, cfg LoginConfig) *LoginLimiter {
	return &LoginLimiter{base: newBase("login", rt, cfg.FailOpen), config: cfg}
}

func loginKey(email string) string {
	return "login_attempts:" + normalizeEmail(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Status reports the lockout state of email, deleting a record whose window
// or lockout has lapsed.
func (l *LoginLimiter) Status(ctx context.Context, email string) (LoginStatus, error) {
	key := loginKey(email)
	rec, found, err := l.read(ctx, key)
	if err != nil {
		return l.clear(), l.degrade(ctx, "status", key, err)
	}
	if !found {
		return l.clear(), nil
	}

	now := l.now()
	if l.lapsed(rec, now) {
		if err := l.store.Delete(ctx, key); err != nil {
			return l.clear(), l.degrade(ctx, "status", key, err)
		}
		return l.clear(), nil
	}
	return l.status(rec, now), nil
}

// Check returns ErrLocked while email is locked.
func (l *LoginLimiter) Check(ctx context.Context, email string) error {
	st, err := l.Status(ctx, email)
	if err != nil {
		return err
	}
	if st.Locked {
		return ErrLocked
	}
	return nil
}

// RecordFailure counts one failed login. A failure while already locked does
// not extend the lock.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) (LoginStatus, error) {
	key := loginKey(email)
	rec, found, err := l.read(ctx, key)
	if err != nil {
		return l.clear(), l.degrade(ctx, "record_failure", key, err)
	}

	now := l.now()
	if !found || l.lapsed(rec, now) {
		rec = loginAttempt{FirstAttemptAt: millis(now)}
	}
	if rec.LockedUntil != 0 {
		return l.status(rec, now), nil
	}

	rec.Count++
	var ttl time.Duration
	if rec.Count >= l.config.MaxAttempts {
		rec.LockedUntil = millis(now.Add(l.config.LockoutDuration))
		ttl = l.config.LockoutDuration
	} else {
		ttl = l.config.Window - now.Sub(fromMillis(rec.FirstAttemptAt))
	}

	if err := l.save(ctx, key, record.KindLoginAttempt, rec, ttl); err != nil {
		return l.clear(), l.degrade(ctx, "record_failure", key, err)
	}
	return l.status(rec, now), nil
}

// RecordSuccess clears the attempt record of email.
func (l *LoginLimiter) RecordSuccess(ctx context.Context, email string) error {
	key := loginKey(email)
	if err := l.store.Delete(ctx, key); err != nil {
		return l.degrade(ctx, "record_success", key, err)
	}
	return nil
}

func (l *LoginLimiter) read(ctx context.Context, key string) (loginAttempt, bool, error) {
	var rec loginAttempt
	found, err := l.load(ctx, key, record.KindLoginAttempt, &rec)
	return rec, found, err
}

func (l *LoginLimiter) lapsed(rec loginAttempt, now time.Time) bool {
	if rec.LockedUntil != 0 {
		return !now.Before(fromMillis(rec.LockedUntil))
	}
	return now.Sub(fromMillis(rec.FirstAttemptAt)) > l.config.Window
}

func (l *LoginLimiter) status(rec loginAttempt, now time.Time) LoginStatus {
	st := LoginStatus{Attempts: rec.Count, Remaining: l.config.MaxAttempts - rec.Count}
	if st.Remaining < 0 {
		st.Remaining = 0
	}
	if rec.LockedUntil != 0 {
		until := fromMillis(rec.LockedUntil)
		if now.Before(until) {
			st.Locked = true
			st.LockedUntil = until
			st.RetryAfter = until.Sub(now)
		}
	}
	return st
}

func (l *LoginLimiter) clear() LoginStatus {
	return LoginStatus{Remaining: l.config.MaxAttempts}
}
