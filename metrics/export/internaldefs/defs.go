package internaldefs

import (
	goGuard "github.com/MrEthical07/goGuard"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goGuard.MetricLoginSuccess, Name: "goguard_login_success_total", Help: "Successful login attempts."},
	{ID: goGuard.MetricLoginFailure, Name: "goguard_login_failure_total", Help: "Failed login attempts."},
	{ID: goGuard.MetricLoginLocked, Name: "goguard_login_locked_total", Help: "Login attempts rejected by account lockout."},
	{ID: goGuard.MetricRefreshSuccess, Name: "goguard_refresh_success_total", Help: "Successful refresh operations."},
	{ID: goGuard.MetricRefreshFailure, Name: "goguard_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: goGuard.MetricSessionCreated, Name: "goguard_session_created_total", Help: "Created sessions."},
	{ID: goGuard.MetricLogout, Name: "goguard_logout_total", Help: "Single-session logout operations."},
	{ID: goGuard.MetricLogoutAll, Name: "goguard_logout_all_total", Help: "Logout-all operations."},
	{ID: goGuard.MetricAccountCreationSuccess, Name: "goguard_account_creation_success_total", Help: "Successful account creations."},
	{ID: goGuard.MetricAccountCreationDuplicate, Name: "goguard_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: goGuard.MetricPasswordChangeSuccess, Name: "goguard_password_change_success_total", Help: "Successful password changes."},
	{ID: goGuard.MetricPasswordChangeFailure, Name: "goguard_password_change_failure_total", Help: "Rejected password changes."},
	{ID: goGuard.MetricPasswordUpgraded, Name: "goguard_password_upgraded_total", Help: "Stored hashes rewritten with current parameters."},
	{ID: goGuard.MetricPasswordResetRequest, Name: "goguard_password_reset_request_total", Help: "Password reset requests."},
	{ID: goGuard.MetricPasswordResetRateLimited, Name: "goguard_password_reset_rate_limited_total", Help: "Rate-limited password reset requests."},
	{ID: goGuard.MetricPasswordResetConfirmSuccess, Name: "goguard_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: goGuard.MetricPasswordResetConfirmFailure, Name: "goguard_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: goGuard.MetricRequestBlocked, Name: "goguard_request_blocked_total", Help: "Requests rejected from blocked IPs."},
	{ID: goGuard.MetricRequestThrottled, Name: "goguard_request_throttled_total", Help: "Requests rejected by IP throttling."},
	{ID: goGuard.MetricSuspiciousActivity, Name: "goguard_suspicious_activity_total", Help: "Requests flagged as suspicious."},
	{ID: goGuard.MetricIPAutoBlocked, Name: "goguard_ip_auto_blocked_total", Help: "IPs blocked automatically."},
	{ID: goGuard.MetricIPBlockedManual, Name: "goguard_ip_blocked_manual_total", Help: "IPs blocked by an operator."},
	{ID: goGuard.MetricPermissionDenied, Name: "goguard_permission_denied_total", Help: "Denied permission checks."},
	{ID: goGuard.MetricCSRFRejected, Name: "goguard_csrf_rejected_total", Help: "Requests with a missing or mismatched CSRF token."},
	{ID: goGuard.MetricTokenRejected, Name: "goguard_token_rejected_total", Help: "Rejected access tokens."},
}

var HistogramDefs = []HistogramDef{
	{ID: goGuard.MetricValidateLatency, Name: "goguard_validate_latency_seconds", Help: "Access token verification latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's eight
// latency buckets. The last bucket is unbounded.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, including +Inf, for exporters
// that flatten histograms into gauges.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
