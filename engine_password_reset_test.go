package goGuard

import (
	"context"
	"errors"
	"testing"
)

func TestPasswordResetTokenFlow(t *testing.T) {
	engine, up, _ := newTestEngine(t, nil)
	ctx := context.Background()

	reg := register(t, engine, "alice@example.com", "old-password-123")
	before := up.hash(reg.UserID)

	token, err := engine.RequestPasswordReset(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if len(token) != 43 {
		t.Fatalf("expected 32-byte base64url token, got %q", token)
	}

	if err := engine.ConfirmPasswordReset(ctx, token, "new-password-123"); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if up.hash(reg.UserID) == before {
		t.Fatal("expected password hash to change")
	}

	if _, err := engine.Refresh(ctx, reg.Tokens.RefreshToken); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected sessions invalidated after reset, got %v", err)
	}

	if err := engine.ConfirmPasswordReset(ctx, token, "newer-password-123"); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected replayed token to fail with ErrResetInvalid, got %v", err)
	}

	if _, err := engine.Login(ctx, "alice@example.com", "new-password-123"); err != nil {
		t.Fatalf("login with reset password failed: %v", err)
	}
}

func TestPasswordResetPolicyFailureKeepsToken(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	register(t, engine, "bob@example.com", "old-password-123")
	token, err := engine.RequestPasswordReset(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}

	if err := engine.ConfirmPasswordReset(ctx, token, "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if err := engine.ConfirmPasswordReset(ctx, token, "long-enough-pass-1"); err != nil {
		t.Fatalf("token should survive a policy failure: %v", err)
	}
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	token, err := engine.RequestPasswordReset(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("expected no error for unknown email, got %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
}

func TestPasswordResetRateLimitPerUser(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	register(t, engine, "carol@example.com", "old-password-123")

	for i := 1; i <= 3; i++ {
		if _, err := engine.RequestPasswordReset(ctx, "carol@example.com"); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if _, err := engine.RequestPasswordReset(ctx, "carol@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on fourth request, got %v", err)
	}
	if got := engine.MetricsSnapshot().Counters[MetricPasswordResetRateLimited]; got != 1 {
		t.Fatalf("expected one rate limited metric, got %d", got)
	}
}

func TestPasswordResetClearsLockout(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	register(t, engine, "dan@example.com", "old-password-123")
	for i := 0; i < 5; i++ {
		_, _ = engine.Login(ctx, "dan@example.com", "wrong")
	}
	st, err := engine.LoginStatus(ctx, "dan@example.com")
	if err != nil || !st.Locked {
		t.Fatalf("expected locked account, status=%+v err=%v", st, err)
	}

	token, err := engine.RequestPasswordReset(ctx, "dan@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	if err := engine.ConfirmPasswordReset(ctx, token, "fresh-password-1"); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if _, err := engine.Login(ctx, "dan@example.com", "fresh-password-1"); err != nil {
		t.Fatalf("reset should clear the lockout: %v", err)
	}
}

func TestPasswordResetDisabled(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(c *Config) {
		c.PasswordReset.Enabled = false
	})
	ctx := context.Background()

	if _, err := engine.RequestPasswordReset(ctx, "x@example.com"); !errors.Is(err, ErrPasswordResetDisabled) {
		t.Fatalf("expected ErrPasswordResetDisabled, got %v", err)
	}
	if err := engine.ConfirmPasswordReset(ctx, "tok", "fresh-password-1"); !errors.Is(err, ErrPasswordResetDisabled) {
		t.Fatalf("expected ErrPasswordResetDisabled, got %v", err)
	}
}
