package flows

import "context"

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login         LoginDeps
	Account       AccountDeps
	PasswordReset PasswordResetDeps
	Session       SessionDeps
	Guard         GuardDeps
}

// User is the flow-local view of a stored account.
type User struct {
	UserID       string
	Email        string
	PasswordHash string
	Role         string
}

// AuditFunc emits one audit event. metadata is only invoked when auditing is
// enabled.
type AuditFunc func(ctx context.Context, eventType string, success bool, userID, sessionID string, err error, metadata func() map[string]string)

func noopAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func noopMetric(int) {}

func noopWarn(string, ...any) {}

func meta(kv ...string) func() map[string]string {
	return func() map[string]string {
		m := make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m[kv[i]] = kv[i+1]
		}
		return m
	}
}
