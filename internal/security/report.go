package security

import (
	"sort"
	"time"
)

type PasswordReport struct {
	Algorithm  string
	Iterations int
	MinLength  int
	MaxBytes   int
}

type Report struct {
	ProductionMode      bool
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	Password            PasswordReport
	CSRFProtection      bool
	TrustProxyHeaders   bool
	LoginLockoutActive  bool
	IPThrottleActive    bool
	SuspiciousDetection bool
	PasswordResetActive bool
	PermissionsFailOpen bool
	FailOpenComponents  []string
	AuditEnabled        bool
	MetricsEnabled      bool
	HSTSEnabled         bool
}

type ReportInput struct {
	ProductionMode    bool
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	Password          PasswordReport
	CSRFProtection    bool
	TrustProxyHeaders bool
	HSTSMaxAge        time.Duration

	MaxLoginAttempts int
	LockoutDuration  time.Duration

	ThrottleEnabled     bool
	ThrottleMaxRequests int

	SuspiciousEnabled        bool
	SuspiciousBlockThreshold int

	PasswordResetEnabled bool
	PermissionsFailOpen  bool

	// FailOpen maps a component name to its fail-open flag.
	FailOpen map[string]bool

	AuditEnabled   bool
	MetricsEnabled bool
}

// BuildReport flattens input into a Report. FailOpenComponents is sorted.
func BuildReport(input ReportInput) Report {
	var failOpen []string
	for name, open := range input.FailOpen {
		if open {
			failOpen = append(failOpen, name)
		}
	}
	sort.Strings(failOpen)

	return Report{
		ProductionMode:      input.ProductionMode,
		AccessTTL:           input.AccessTTL,
		RefreshTTL:          input.RefreshTTL,
		Password:            input.Password,
		CSRFProtection:      input.CSRFProtection,
		TrustProxyHeaders:   input.TrustProxyHeaders,
		LoginLockoutActive:  input.MaxLoginAttempts > 0 && input.LockoutDuration > 0,
		IPThrottleActive:    input.ThrottleEnabled && input.ThrottleMaxRequests > 0,
		SuspiciousDetection: input.SuspiciousEnabled && input.SuspiciousBlockThreshold > 0,
		PasswordResetActive: input.PasswordResetEnabled,
		PermissionsFailOpen: input.PermissionsFailOpen,
		FailOpenComponents:  failOpen,
		AuditEnabled:        input.AuditEnabled,
		MetricsEnabled:      input.MetricsEnabled,
		HSTSEnabled:         input.ProductionMode && input.HSTSMaxAge > 0,
	}
}
