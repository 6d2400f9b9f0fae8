package goGuard

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/goGuard/internal/flows"
	"github.com/MrEthical07/goGuard/internal/limiters"
	"github.com/MrEthical07/goGuard/permission"
)

func (e *Engine) buildFlowDeps() flows.Deps {
	audit := func(ctx context.Context, eventType string, success bool, userID, sessionID string, err error, metadata func() map[string]string) {
		e.emitAudit(ctx, eventType, success, userID, sessionID, err, metadata)
	}
	metricInc := func(id int) { e.metricInc(MetricID(id)) }

	return flows.Deps{
		Login:         e.loginDeps(audit, metricInc),
		Account:       e.accountDeps(audit, metricInc),
		PasswordReset: e.passwordResetDeps(audit, metricInc),
		Session:       e.sessionDeps(audit, metricInc),
		Guard:         e.guardDeps(audit, metricInc),
	}
}

func (e *Engine) loginDeps(audit flows.AuditFunc, metricInc func(int)) flows.LoginDeps {
	return flows.LoginDeps{
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		ClientIPFromContext:    clientIPFromContext,

		CheckLockout: e.loginLimiter.Check,
		RecordFailure: func(ctx context.Context, email string) (bool, error) {
			st, err := e.loginLimiter.RecordFailure(ctx, email)
			return st.Locked, err
		},
		RecordSuccess: e.loginLimiter.RecordSuccess,
		RecordIPFailure: func(ctx context.Context, ip string) error {
			_, err := e.ipFailures.RecordFailure(ctx, ip)
			return err
		},

		GetUserByEmail:     e.flowUserByEmail,
		VerifyPassword:     e.hasher.Verify,
		DummyVerify:        e.dummyVerify,
		NeedsUpgrade:       e.hasher.NeedsUpgrade,
		HashPassword:       e.hasher.Hash,
		UpdatePasswordHash: e.users.UpdatePasswordHash,

		ResolveRole: func(ctx context.Context, u flows.User) string {
			return e.resolver.HighestRole(ctx, u.UserID)
		},
		IssueTokens: e.issueTokens,

		MetricInc: metricInc,
		EmitAudit: audit,
		Warn:      e.warn,

		Metrics: flows.LoginMetrics{
			LoginSuccess:    int(MetricLoginSuccess),
			LoginFailure:    int(MetricLoginFailure),
			LoginLocked:     int(MetricLoginLocked),
			SessionCreated:  int(MetricSessionCreated),
			PasswordUpgrade: int(MetricPasswordUpgraded),
		},
		Events: flows.LoginEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
			LoginLocked:  auditEventLoginLocked,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			Locked:             ErrLocked,
			UserNotFound:       ErrUserNotFound,
		},
	}
}

func (e *Engine) accountDeps(audit flows.AuditFunc, metricInc func(int)) flows.AccountDeps {
	return flows.AccountDeps{
		AutoLogin:        e.config.Account.AutoLogin,
		DefaultRole:      e.config.Account.DefaultRole,
		ValidatePassword: e.validatePassword,
		RoleExists: func(role string) bool {
			_, ok := e.resolver.Hierarchy().Rank(role)
			return ok
		},

		HashPassword:   e.hasher.Hash,
		VerifyPassword: e.hasher.Verify,
		CreateUser:     e.flowCreateUser,
		GetUserByID: func(ctx context.Context, userID string) (flows.User, error) {
			u, err := e.users.GetUserByID(ctx, userID)
			if err != nil {
				return flows.User{}, err
			}
			return flowUser(u), nil
		},
		UpdatePasswordHash: e.users.UpdatePasswordHash,

		IssueTokens: e.issueTokens,
		RevokeAll:   e.sessions.Revoke,

		MetricInc: metricInc,
		EmitAudit: audit,

		Metrics: flows.AccountMetrics{
			AccountCreated:        int(MetricAccountCreationSuccess),
			AccountDuplicate:      int(MetricAccountCreationDuplicate),
			PasswordChangeSuccess: int(MetricPasswordChangeSuccess),
			PasswordChangeFailure: int(MetricPasswordChangeFailure),
			SessionCreated:        int(MetricSessionCreated),
		},
		Events: flows.AccountEvents{
			AccountCreationSuccess:   auditEventAccountCreationSuccess,
			AccountCreationFailure:   auditEventAccountCreationFailure,
			AccountCreationDuplicate: auditEventAccountCreationDuplicate,
			PasswordChangeSuccess:    auditEventPasswordChangeSuccess,
			PasswordChangeInvalidOld: auditEventPasswordChangeInvalidOld,
			PasswordChangeReuse:      auditEventPasswordChangeReuse,
			PasswordChangeFailure:    auditEventPasswordChangeFailure,
		},
		Errors: flows.AccountErrors{
			EngineNotReady:      ErrEngineNotReady,
			InvalidCredentials:  ErrInvalidCredentials,
			PasswordPolicy:      ErrPasswordPolicy,
			AccountExists:       ErrAccountExists,
			UnknownRole:         ErrUnknownRole,
			SessionRevokeFailed: ErrSessionInvalidationFailed,
		},
	}
}

func (e *Engine) passwordResetDeps(audit flows.AuditFunc, metricInc func(int)) flows.PasswordResetDeps {
	return flows.PasswordResetDeps{
		ValidatePassword:   e.validatePassword,
		GetUserByEmail:     e.flowUserByEmail,
		HashPassword:       e.hasher.Hash,
		UpdatePasswordHash: e.users.UpdatePasswordHash,

		IssueToken: e.resets.Issue,
		ConsumeToken: func(ctx context.Context, token string) (string, string, error) {
			rec, err := e.resets.Verify(ctx, token)
			if err != nil {
				return "", "", err
			}
			return rec.UserID, rec.Email, nil
		},

		RevokeAll:    e.sessions.Revoke,
		ClearLockout: e.loginLimiter.RecordSuccess,

		MetricInc: metricInc,
		EmitAudit: audit,
		Warn:      e.warn,

		Metrics: flows.PasswordResetMetrics{
			PasswordResetRequest:        int(MetricPasswordResetRequest),
			PasswordResetRateLimited:    int(MetricPasswordResetRateLimited),
			PasswordResetConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
			PasswordResetConfirmFailure: int(MetricPasswordResetConfirmFailure),
		},
		Events: flows.PasswordResetEvents{
			PasswordResetRequest:     auditEventPasswordResetRequest,
			PasswordResetRateLimited: auditEventPasswordResetRateLimited,
			PasswordResetConfirm:     auditEventPasswordResetConfirm,
			PasswordResetReplay:      auditEventPasswordResetReplay,
		},
		Errors: flows.PasswordResetErrors{
			EngineNotReady:      ErrEngineNotReady,
			ResetInvalid:        ErrResetInvalid,
			RateLimited:         ErrRateLimited,
			UserNotFound:        ErrUserNotFound,
			SessionRevokeFailed: ErrSessionInvalidationFailed,
		},
	}
}

func (e *Engine) sessionDeps(audit flows.AuditFunc, metricInc func(int)) flows.SessionDeps {
	return flows.SessionDeps{
		Subject: func(token string) (string, string, error) {
			claims, err := e.tokens.ParseRefresh(token)
			if err != nil {
				return "", "", err
			}
			return claims.UserID, claims.ID, nil
		},
		Refresh:     e.sessions.Refresh,
		RevokeToken: e.sessions.RevokeToken,
		RevokeAll:   e.sessions.Revoke,

		MetricInc: metricInc,
		EmitAudit: audit,

		Metrics: flows.SessionMetrics{
			RefreshSuccess: int(MetricRefreshSuccess),
			RefreshFailure: int(MetricRefreshFailure),
			LogoutSession:  int(MetricLogout),
			LogoutAll:      int(MetricLogoutAll),
		},
		Events: flows.SessionEvents{
			RefreshSuccess: auditEventRefreshSuccess,
			RefreshInvalid: auditEventRefreshInvalid,
			LogoutSession:  auditEventLogoutSession,
			LogoutAll:      auditEventLogoutAll,
		},
		Errors: flows.SessionErrors{
			EngineNotReady: ErrEngineNotReady,
			RecordNotFound: ErrRecordNotFound,
		},
	}
}

func (e *Engine) guardDeps(audit flows.AuditFunc, metricInc func(int)) flows.GuardDeps {
	deps := flows.GuardDeps{
		IsBlocked: e.blocker.IsBlocked,
		CheckThrottle: func(context.Context, string) (bool, time.Duration, error) {
			return false, 0, nil
		},
		RecordActivity: func(context.Context, string) error { return nil },

		MetricInc: metricInc,
		EmitAudit: audit,
		Warn:      e.warn,

		Metrics: flows.GuardMetrics{
			RequestBlocked:   int(MetricRequestBlocked),
			RequestThrottled: int(MetricRequestThrottled),
			Suspicious:       int(MetricSuspiciousActivity),
			AutoBlocked:      int(MetricIPAutoBlocked),
		},
		Events: flows.GuardEvents{
			RequestBlocked:  auditEventRequestBlocked,
			RateLimited:     auditEventRateLimitTriggered,
			SuspiciousFound: auditEventSuspiciousActivity,
			IPAutoBlocked:   auditEventIPAutoBlocked,
		},
		Errors: flows.GuardErrors{
			EngineNotReady: ErrEngineNotReady,
			Blocked:        ErrBlocked,
			RateLimited:    ErrRateLimited,
		},
	}

	if e.config.Throttle.Enabled {
		deps.CheckThrottle = func(ctx context.Context, ip string) (bool, time.Duration, error) {
			d, err := e.throttle.Check(ctx, ip)
			return d.Limited, d.RetryAfter, err
		}
		deps.RecordActivity = func(ctx context.Context, ip string) error {
			_, err := e.throttle.Record(ctx, ip)
			return err
		}
	}

	if e.suspicious != nil {
		deps.Inspect = func(ctx context.Context, req flows.GuardRequest) (flows.Inspection, error) {
			f, err := e.suspicious.Inspect(ctx, limiters.Signal{
				IP:        req.IP,
				UserAgent: req.UserAgent,
				Method:    req.Method,
				Path:      req.Path,
			})
			return flows.Inspection{Suspicious: f.Suspicious, Reasons: f.Reasons, Blocked: f.Blocked}, err
		}
	}
	return deps
}

func (e *Engine) flowUserByEmail(ctx context.Context, email string) (flows.User, error) {
	u, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		return flows.User{}, err
	}
	return flowUser(u), nil
}

// flowCreateUser creates the account and, when the role store accepts
// writes, grants the role there too. A failed grant is logged; the role on
// the user record still applies as the login fallback.
func (e *Engine) flowCreateUser(ctx context.Context, email, hash, role string) (flows.User, error) {
	u, err := e.users.CreateUser(ctx, CreateUserInput{Email: email, PasswordHash: hash, Role: role})
	if err != nil {
		return flows.User{}, err
	}
	if assigner, ok := e.roleStore.(permission.RoleAssigner); ok {
		if err := assigner.AssignRole(ctx, u.UserID, role); err != nil {
			e.warn("goGuard: role assignment after registration failed", "user_id", u.UserID, "role", role, "error", err)
		}
	}
	if u.Role == "" {
		u.Role = role
	}
	return flowUser(u), nil
}

func (e *Engine) dummyVerify(password string) {
	if e.dummyHash == "" {
		return
	}
	_, _ = e.hasher.Verify(password, e.dummyHash)
}

func (e *Engine) validatePassword(password string) error {
	if password == "" {
		return errors.Join(ErrPasswordPolicy, ErrEmptyInput)
	}
	if utf8.RuneCountInString(password) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}
	if len(password) > e.config.Password.MaxBytes {
		return ErrPasswordPolicy
	}
	return nil
}

func flowUser(u UserRecord) flows.User {
	return flows.User{
		UserID:       u.UserID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
	}
}
