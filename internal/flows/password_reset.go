package flows

import (
	"context"
	"errors"
	"strings"
)

type PasswordResetMetrics struct {
	PasswordResetRequest        int
	PasswordResetRateLimited    int
	PasswordResetConfirmSuccess int
	PasswordResetConfirmFailure int
}

type PasswordResetEvents struct {
	PasswordResetRequest     string
	PasswordResetRateLimited string
	PasswordResetConfirm     string
	PasswordResetReplay      string
}

type PasswordResetErrors struct {
	EngineNotReady      error
	ResetInvalid        error
	RateLimited         error
	UserNotFound        error
	SessionRevokeFailed error
}

type PasswordResetDeps struct {
	ValidatePassword func(string) error

	GetUserByEmail     func(context.Context, string) (User, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error

	// IssueToken stores a single-use token for the user and returns it.
	IssueToken func(context.Context, string, string) (string, error)
	// ConsumeToken redeems a token and returns the user ID and email it was
	// issued for.
	ConsumeToken func(context.Context, string) (string, string, error)

	RevokeAll    func(context.Context, string) (int, error)
	ClearLockout func(context.Context, string) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

func (deps *PasswordResetDeps) defaults() {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.ValidatePassword == nil {
		deps.ValidatePassword = func(string) error { return nil }
	}
}

// RunRequestPasswordReset issues a reset token for email. An unknown email
// yields an empty token and no error so callers cannot enumerate accounts.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) (string, error) {
	deps.defaults()
	if deps.GetUserByEmail == nil || deps.IssueToken == nil {
		return "", deps.Errors.EngineNotReady
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if deps.Errors.UserNotFound != nil && !errors.Is(err, deps.Errors.UserNotFound) {
			return "", err
		}
		deps.MetricInc(deps.Metrics.PasswordResetRequest)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", "", err, meta("identifier", email, "reason", "user_not_found"))
		return "", nil
	}

	token, err := deps.IssueToken(ctx, user.UserID, user.Email)
	if err != nil {
		if errors.Is(err, deps.Errors.RateLimited) {
			deps.MetricInc(deps.Metrics.PasswordResetRateLimited)
			deps.EmitAudit(ctx, deps.Events.PasswordResetRateLimited, false, user.UserID, "", err, meta("identifier", email))
		}
		return "", err
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, user.UserID, "", nil, meta("identifier", email))
	return token, nil
}

// RunConfirmPasswordReset redeems token and sets newPassword. The new
// password is validated before the token is consumed, so a policy failure
// leaves the token usable.
func RunConfirmPasswordReset(ctx context.Context, token, newPassword string, deps PasswordResetDeps) error {
	deps.defaults()
	if deps.ConsumeToken == nil ||
		deps.HashPassword == nil ||
		deps.UpdatePasswordHash == nil ||
		deps.RevokeAll == nil {
		return deps.Errors.EngineNotReady
	}

	if err := deps.ValidatePassword(newPassword); err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, "", "", err, meta("reason", "password_policy"))
		return err
	}

	userID, email, err := deps.ConsumeToken(ctx, token)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		if errors.Is(err, deps.Errors.ResetInvalid) {
			deps.EmitAudit(ctx, deps.Events.PasswordResetReplay, false, "", "", err, nil)
		}
		return err
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		return err
	}
	if err := deps.UpdatePasswordHash(ctx, userID, hash); err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, userID, "", err, meta("reason", "update"))
		return err
	}

	if _, err := deps.RevokeAll(ctx, userID); err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, userID, "", err, meta("reason", "session_revoke"))
		if deps.Errors.SessionRevokeFailed != nil {
			return errors.Join(deps.Errors.SessionRevokeFailed, err)
		}
		return err
	}

	if deps.ClearLockout != nil && email != "" {
		if err := deps.ClearLockout(ctx, email); err != nil {
			deps.Warn("goGuard: clearing lockout after reset failed", "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.PasswordResetConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, userID, "", nil, nil)
	return nil
}
