package goGuard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goGuard/csrf"
	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/internal/flows"
	"github.com/MrEthical07/goGuard/internal/limiters"
	"github.com/MrEthical07/goGuard/internal/stores"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/kv"
	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/permission"
	"github.com/MrEthical07/goGuard/session"
)

// Engine is the composition root. It is built once by [Builder.Build] and
// is safe for concurrent use; all mutable state lives in the key-value
// store, the user provider and the role store.
type Engine struct {
	config Config
	logger *slog.Logger

	store     kv.Store
	users     UserProvider
	roleStore permission.Store

	hasher    password.Hasher
	dummyHash string
	tokens    *jwt.Manager
	sessions  *session.Service
	csrf      *csrf.Guard
	resolver  *permission.Resolver

	loginLimiter *limiters.LoginLimiter
	throttle     *limiters.IPThrottle
	blocker      *limiters.IPBlocker
	ipFailures   *limiters.IPFailureCounter
	suspicious   *limiters.SuspiciousDetector
	resets       *stores.ResetTokenStore

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	flows   flows.Deps
}

// Close drains buffered audit events and stops the dispatcher goroutine.
// It does not close the key-value store or the user provider.
func (e *Engine) Close() {
	if e == nil || e.audit == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Logger returns the engine's structured logger.
func (e *Engine) Logger() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, args ...any) {
	e.Logger().Warn(msg, args...)
}

// VerifyAccess validates an access token and returns its identity. It never
// consults the store, so it keeps working while the store is down.
func (e *Engine) VerifyAccess(ctx context.Context, token string) (*Identity, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	claims, err := e.sessions.VerifyAccess(token)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricTokenRejected)
		return nil, err
	}

	return &Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// record is not modified, so the refresh token stays valid until it expires
// or is revoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	access, err := flows.RunRefresh(ctx, refreshToken, e.flows.Session)
	return access, mapStoreError(err)
}

// Logout revokes the single session refreshToken belongs to.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return mapStoreError(flows.RunLogout(ctx, refreshToken, e.flows.Session))
}

// LogoutAll revokes every session of userID and returns how many were
// removed.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := flows.RunLogoutAll(ctx, userID, e.flows.Session)
	return n, mapStoreError(err)
}

// ActiveSessions counts live refresh records of userID.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.sessions.Store().CountForUser(ctx, userID)
	return n, mapStoreError(err)
}

func (e *Engine) issueTokens(ctx context.Context, user flows.User, role string) (*session.TokenPair, error) {
	pair, err := e.sessions.Issue(ctx, jwt.Identity{UserID: user.UserID, Email: user.Email, Role: role})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return pair, nil
}

func isStoreFailure(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, kv.ErrUnavailable) ||
		errors.Is(err, session.ErrStoreUnavailable) ||
		errors.Is(err, limiters.ErrStoreUnavailable) ||
		errors.Is(err, stores.ErrResetUnavailable)
}

// mapStoreError adds ErrStoreUnavailable to the chain of any leaf store
// failure and keeps the original error reachable.
func mapStoreError(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) || !isStoreFailure(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
