package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goGuard/session"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	UserID string
	Email  string
	Role   string
	Tokens *session.TokenPair
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess    int
	LoginFailure    int
	LoginLocked     int
	SessionCreated  int
	PasswordUpgrade int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
	LoginLocked  string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	Locked             error
	UserNotFound       error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool

	ClientIPFromContext func(context.Context) string

	// CheckLockout returns Errors.Locked (wrapped) while the email is locked.
	CheckLockout func(context.Context, string) error
	// RecordFailure counts a failed attempt and reports whether the email is
	// now locked.
	RecordFailure   func(context.Context, string) (bool, error)
	RecordSuccess   func(context.Context, string) error
	RecordIPFailure func(context.Context, string) error

	GetUserByEmail     func(context.Context, string) (User, error)
	VerifyPassword     func(string, string) (bool, error)
	DummyVerify        func(string)
	NeedsUpgrade       func(string) (bool, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error

	ResolveRole func(context.Context, User) string
	IssueTokens func(context.Context, User, string) (*session.TokenPair, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin verifies email and password and issues a token pair.
//
// Unknown users and wrong passwords produce the same error and cost the same
// hashing work. Every failure is counted against the email and the client IP.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.CheckLockout == nil ||
		deps.RecordFailure == nil ||
		deps.GetUserByEmail == nil ||
		deps.VerifyPassword == nil ||
		deps.IssueTokens == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email = strings.TrimSpace(email)
	ip := deps.ClientIPFromContext(ctx)

	if email == "" || password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", "", deps.Errors.InvalidCredentials,
			meta("identifier", email, "reason", "empty_input"))
		return nil, deps.Errors.InvalidCredentials
	}

	if err := deps.CheckLockout(ctx, email); err != nil {
		if errors.Is(err, deps.Errors.Locked) {
			deps.MetricInc(deps.Metrics.LoginLocked)
			deps.EmitAudit(ctx, deps.Events.LoginLocked, false, "", "", err, meta("identifier", email))
		}
		return nil, err
	}

	fail := func(userID, reason string) error {
		if deps.RecordIPFailure != nil && ip != "" {
			if err := deps.RecordIPFailure(ctx, ip); err != nil {
				deps.Warn("goGuard: ip failure counter unavailable", "ip", ip, "error", err)
			}
		}

		locked, err := deps.RecordFailure(ctx, email)
		if err != nil {
			return err
		}
		if locked {
			deps.MetricInc(deps.Metrics.LoginLocked)
			deps.EmitAudit(ctx, deps.Events.LoginLocked, false, userID, "", deps.Errors.Locked,
				meta("identifier", email, "reason", reason))
			return deps.Errors.Locked
		}

		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, "", deps.Errors.InvalidCredentials,
			meta("identifier", email, "reason", reason))
		return deps.Errors.InvalidCredentials
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if deps.Errors.UserNotFound != nil && !errors.Is(err, deps.Errors.UserNotFound) {
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", "", err, meta("identifier", email, "reason", "provider_error"))
			return nil, err
		}
		if deps.DummyVerify != nil {
			deps.DummyVerify(password)
		}
		return nil, fail("", "user_not_found")
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, fail(user.UserID, "password_mismatch")
	}

	if deps.RecordSuccess != nil {
		if err := deps.RecordSuccess(ctx, email); err != nil {
			deps.Warn("goGuard: clearing login attempts failed", "error", err)
		}
	}

	if deps.PasswordUpgradeOnLogin && deps.NeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needsUpgrade, err := deps.NeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, user.UserID, upgradedHash); err != nil {
					deps.Warn("goGuard: password hash upgrade update failed", "error", err)
				} else {
					deps.MetricInc(deps.Metrics.PasswordUpgrade)
				}
			} else {
				deps.Warn("goGuard: password hash upgrade generation failed", "error", err)
			}
		}
	}
	password = ""

	role := user.Role
	if deps.ResolveRole != nil {
		if resolved := deps.ResolveRole(ctx, user); resolved != "" {
			role = resolved
		}
	}

	pair, err := deps.IssueTokens(ctx, user, role)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, "", err, meta("identifier", email, "reason", "session_issue"))
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, "", nil, meta("identifier", email))

	return &LoginResult{
		UserID: user.UserID,
		Email:  user.Email,
		Role:   role,
		Tokens: pair,
	}, nil
}
