package goGuard

import (
	"context"

	"github.com/MrEthical07/goGuard/internal/flows"
	"github.com/MrEthical07/goGuard/internal/limiters"
)

// LoginStatus describes the brute-force state of one email.
type LoginStatus = limiters.LoginStatus

// Register creates an account. With Config.Account.AutoLogin the result
// carries a token pair.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunRegister(ctx, flows.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}, e.flows.Account)
	if res == nil {
		return nil, mapStoreError(err)
	}
	return authResult(res), mapStoreError(err)
}

// Login verifies credentials and issues a token pair.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials. The
// failure that reaches the attempt limit returns ErrLocked, as does every
// attempt during the lockout.
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunLogin(ctx, email, password, e.flows.Login)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return authResult(res), nil
}

// ChangePassword replaces the password of userID after verifying the old
// one. Every session of the user is revoked.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return mapStoreError(flows.RunChangePassword(ctx, userID, oldPassword, newPassword, e.flows.Account))
}

// LoginStatus reports the attempt count and lockout state of email.
func (e *Engine) LoginStatus(ctx context.Context, email string) (LoginStatus, error) {
	if e == nil || e.loginLimiter == nil {
		return LoginStatus{}, ErrEngineNotReady
	}
	st, err := e.loginLimiter.Status(ctx, email)
	return st, mapStoreError(err)
}

// ClearLoginAttempts removes the attempt record of email, lifting any
// lockout.
func (e *Engine) ClearLoginAttempts(ctx context.Context, email string) error {
	if e == nil || e.loginLimiter == nil {
		return ErrEngineNotReady
	}
	return mapStoreError(e.loginLimiter.RecordSuccess(ctx, email))
}

func authResult(res *flows.LoginResult) *AuthResult {
	return &AuthResult{
		UserID: res.UserID,
		Email:  res.Email,
		Role:   res.Role,
		Tokens: res.Tokens,
	}
}
