package goGuard

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginLocked              = "login_locked"
	auditEventRefreshSuccess           = "refresh_success"
	auditEventRefreshInvalid           = "refresh_invalid"
	auditEventLogoutSession            = "logout_session"
	auditEventLogoutAll                = "logout_all"
	auditEventAccountCreationSuccess   = "account_creation_success"
	auditEventAccountCreationFailure   = "account_creation_failure"
	auditEventAccountCreationDuplicate = "account_creation_duplicate"
	auditEventPasswordChangeSuccess    = "password_change_success"
	auditEventPasswordChangeInvalidOld = "password_change_invalid_old"
	auditEventPasswordChangeReuse      = "password_change_reuse_attempt"
	auditEventPasswordChangeFailure    = "password_change_failure"
	auditEventPasswordResetRequest     = "password_reset_request"
	auditEventPasswordResetRateLimited = "password_reset_rate_limited"
	auditEventPasswordResetConfirm     = "password_reset_confirm"
	auditEventPasswordResetReplay      = "password_reset_replay"
	auditEventRequestBlocked           = "request_blocked"
	auditEventRateLimitTriggered       = "rate_limit_triggered"
	auditEventSuspiciousActivity       = "suspicious_activity"
	auditEventIPAutoBlocked            = "ip_auto_blocked"
	auditEventIPBlocked                = "ip_blocked"
	auditEventIPUnblocked              = "ip_unblocked"
	auditEventRoleAssigned             = "role_assigned"
)

// AuditErrorCode is the stable, client-safe classification written into
// AuditEvent.Code.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrLocked             AuditErrorCode = "account_locked"
	auditErrBlocked            AuditErrorCode = "ip_blocked"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrRecordNotFound     AuditErrorCode = "session_not_found"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUnknownRole        AuditErrorCode = "unknown_role"
	auditErrSessionInvalidate  AuditErrorCode = "session_invalidation_failed"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		At:        e.config.now().UTC(),
		Kind:      eventType,
		Success:   success,
		Code:      string(auditErrorCode(err)),
		UserID:    userID,
		Session:   sessionID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
	}
	if metadataBuilder != nil {
		event.Details = metadataBuilder()
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLocked):
		return auditErrLocked
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrBlocked):
		return auditErrBlocked
	case errors.Is(err, ErrMalformedToken),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrWrongTokenType),
		errors.Is(err, ErrResetInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrRecordNotFound):
		return auditErrRecordNotFound
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrEmptyInput):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrUnknownRole):
		return auditErrUnknownRole
	case errors.Is(err, ErrSessionInvalidationFailed):
		return auditErrSessionInvalidate
	case isStoreFailure(err):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
