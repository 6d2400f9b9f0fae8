package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goGuard/session"
)

type RegisterRequest struct {
	Email    string
	Password string
	Role     string
}

type AccountMetrics struct {
	AccountCreated        int
	AccountDuplicate      int
	PasswordChangeSuccess int
	PasswordChangeFailure int
	SessionCreated        int
}

type AccountEvents struct {
	AccountCreationSuccess   string
	AccountCreationFailure   string
	AccountCreationDuplicate string
	PasswordChangeSuccess    string
	PasswordChangeInvalidOld string
	PasswordChangeReuse      string
	PasswordChangeFailure    string
}

type AccountErrors struct {
	EngineNotReady      error
	InvalidCredentials  error
	PasswordPolicy      error
	AccountExists       error
	UnknownRole         error
	SessionRevokeFailed error
}

type AccountDeps struct {
	AutoLogin   bool
	DefaultRole string

	ValidatePassword func(string) error
	RoleExists       func(string) bool

	HashPassword       func(string) (string, error)
	VerifyPassword     func(string, string) (bool, error)
	CreateUser         func(context.Context, string, string, string) (User, error)
	GetUserByID        func(context.Context, string) (User, error)
	UpdatePasswordHash func(context.Context, string, string) error

	IssueTokens func(context.Context, User, string) (*session.TokenPair, error)
	RevokeAll   func(context.Context, string) (int, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics AccountMetrics
	Events  AccountEvents
	Errors  AccountErrors
}

func (deps *AccountDeps) defaults() {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.ValidatePassword == nil {
		deps.ValidatePassword = func(string) error { return nil }
	}
}

// RunRegister creates an account and, with AutoLogin, a first session.
func RunRegister(ctx context.Context, req RegisterRequest, deps AccountDeps) (*LoginResult, error) {
	deps.defaults()
	if deps.HashPassword == nil || deps.CreateUser == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		deps.EmitAudit(ctx, deps.Events.AccountCreationFailure, false, "", "", deps.Errors.InvalidCredentials, meta("reason", "empty_email"))
		return nil, deps.Errors.InvalidCredentials
	}
	if err := deps.ValidatePassword(req.Password); err != nil {
		deps.EmitAudit(ctx, deps.Events.AccountCreationFailure, false, "", "", err, meta("identifier", email, "reason", "password_policy"))
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = deps.DefaultRole
	}
	if deps.RoleExists != nil && !deps.RoleExists(role) {
		deps.EmitAudit(ctx, deps.Events.AccountCreationFailure, false, "", "", deps.Errors.UnknownRole, meta("identifier", email, "role", role))
		return nil, deps.Errors.UnknownRole
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.AccountCreationFailure, false, "", "", err, meta("identifier", email, "reason", "hash"))
		return nil, err
	}

	user, err := deps.CreateUser(ctx, email, hash, role)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountExists) {
			deps.MetricInc(deps.Metrics.AccountDuplicate)
			deps.EmitAudit(ctx, deps.Events.AccountCreationDuplicate, false, "", "", err, meta("identifier", email))
			return nil, deps.Errors.AccountExists
		}
		deps.EmitAudit(ctx, deps.Events.AccountCreationFailure, false, "", "", err, meta("identifier", email, "reason", "provider"))
		return nil, err
	}

	deps.MetricInc(deps.Metrics.AccountCreated)
	deps.EmitAudit(ctx, deps.Events.AccountCreationSuccess, true, user.UserID, "", nil, meta("identifier", email, "role", role))

	result := &LoginResult{UserID: user.UserID, Email: user.Email, Role: role}
	if !deps.AutoLogin || deps.IssueTokens == nil {
		return result, nil
	}

	pair, err := deps.IssueTokens(ctx, user, role)
	if err != nil {
		return result, err
	}
	deps.MetricInc(deps.Metrics.SessionCreated)
	result.Tokens = pair
	return result, nil
}

// RunChangePassword replaces the user's password after verifying the old one
// and revokes every refresh record the user holds.
func RunChangePassword(ctx context.Context, userID, oldPassword, newPassword string, deps AccountDeps) error {
	deps.defaults()
	if deps.GetUserByID == nil ||
		deps.VerifyPassword == nil ||
		deps.HashPassword == nil ||
		deps.UpdatePasswordHash == nil ||
		deps.RevokeAll == nil {
		return deps.Errors.EngineNotReady
	}

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, userID, "", err, meta("reason", "user_lookup"))
		return err
	}

	ok, err := deps.VerifyPassword(oldPassword, user.PasswordHash)
	if err != nil || !ok {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeInvalidOld, false, userID, "", deps.Errors.InvalidCredentials, nil)
		return deps.Errors.InvalidCredentials
	}

	if oldPassword == newPassword {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeReuse, false, userID, "", deps.Errors.PasswordPolicy, nil)
		return deps.Errors.PasswordPolicy
	}
	if err := deps.ValidatePassword(newPassword); err != nil {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, userID, "", err, meta("reason", "password_policy"))
		return err
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, userID, "", err, meta("reason", "hash"))
		return err
	}
	if err := deps.UpdatePasswordHash(ctx, userID, hash); err != nil {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, userID, "", err, meta("reason", "update"))
		return err
	}

	if _, err := deps.RevokeAll(ctx, userID); err != nil {
		deps.MetricInc(deps.Metrics.PasswordChangeFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, userID, "", err, meta("reason", "session_revoke"))
		if deps.Errors.SessionRevokeFailed != nil {
			return errors.Join(deps.Errors.SessionRevokeFailed, err)
		}
		return err
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChangeSuccess, true, userID, "", nil, nil)
	return nil
}
