package goGuard

import (
	"context"

	"github.com/MrEthical07/goGuard/internal/flows"
)

// RequestPasswordReset issues a single-use reset token for email. Delivering
// it is the caller's job.
//
// An unknown email returns an empty token and a nil error. After
// Config.PasswordReset.MaxRequests requests inside the window the call
// returns ErrRateLimited.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return "", ErrPasswordResetDisabled
	}
	token, err := flows.RunRequestPasswordReset(ctx, email, e.flows.PasswordReset)
	return token, mapStoreError(err)
}

// ConfirmPasswordReset redeems token and sets newPassword. On success every
// session of the user is revoked and any login lockout is cleared. A used,
// expired or unknown token returns ErrResetInvalid.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return ErrPasswordResetDisabled
	}
	return mapStoreError(flows.RunConfirmPasswordReset(ctx, token, newPassword, e.flows.PasswordReset))
}
