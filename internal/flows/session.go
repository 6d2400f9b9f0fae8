package flows

import (
	"context"
	"errors"
)

type SessionMetrics struct {
	RefreshSuccess int
	RefreshFailure int
	LogoutSession  int
	LogoutAll      int
}

type SessionEvents struct {
	RefreshSuccess string
	RefreshInvalid string
	LogoutSession  string
	LogoutAll      string
}

type SessionErrors struct {
	EngineNotReady error
	RecordNotFound error
}

// SessionDeps captures refresh and logout dependencies.
type SessionDeps struct {
	// Subject extracts user and session IDs from a refresh token for audit
	// attribution. Errors are ignored.
	Subject func(string) (string, string, error)

	Refresh     func(context.Context, string) (string, error)
	RevokeToken func(context.Context, string) error
	RevokeAll   func(context.Context, string) (int, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics SessionMetrics
	Events  SessionEvents
	Errors  SessionErrors
}

func (deps *SessionDeps) defaults() {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Subject == nil {
		deps.Subject = func(string) (string, string, error) { return "", "", nil }
	}
}

// RunRefresh exchanges a refresh token for a new access token.
func RunRefresh(ctx context.Context, refreshToken string, deps SessionDeps) (string, error) {
	deps.defaults()
	if deps.Refresh == nil {
		return "", deps.Errors.EngineNotReady
	}

	userID, sessionID, _ := deps.Subject(refreshToken)
	access, err := deps.Refresh(ctx, refreshToken)
	if err != nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		reason := "invalid_token"
		if errors.Is(err, deps.Errors.RecordNotFound) {
			reason = "record_not_found"
		}
		deps.EmitAudit(ctx, deps.Events.RefreshInvalid, false, userID, sessionID, err, meta("reason", reason))
		return "", err
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, userID, sessionID, nil, nil)
	return access, nil
}

// RunLogout deletes the refresh record a single token points to.
func RunLogout(ctx context.Context, refreshToken string, deps SessionDeps) error {
	deps.defaults()
	if deps.RevokeToken == nil {
		return deps.Errors.EngineNotReady
	}

	userID, sessionID, _ := deps.Subject(refreshToken)
	if err := deps.RevokeToken(ctx, refreshToken); err != nil {
		deps.EmitAudit(ctx, deps.Events.LogoutSession, false, userID, sessionID, err, nil)
		return err
	}
	deps.MetricInc(deps.Metrics.LogoutSession)
	deps.EmitAudit(ctx, deps.Events.LogoutSession, true, userID, sessionID, nil, nil)
	return nil
}

// RunLogoutAll deletes every refresh record of userID and returns how many
// were removed.
func RunLogoutAll(ctx context.Context, userID string, deps SessionDeps) (int, error) {
	deps.defaults()
	if deps.RevokeAll == nil {
		return 0, deps.Errors.EngineNotReady
	}

	n, err := deps.RevokeAll(ctx, userID)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.LogoutAll, false, userID, "", err, nil)
		return n, err
	}
	deps.MetricInc(deps.Metrics.LogoutAll)
	deps.EmitAudit(ctx, deps.Events.LogoutAll, true, userID, "", nil, func() map[string]string {
		return map[string]string{"sessions": itoa(n)}
	})
	return n, nil
}
