package goGuard

import "github.com/MrEthical07/goGuard/internal/security"

// SecurityReport summarizes the effective security posture of an engine.
type SecurityReport = security.Report

// PasswordConfigReport is the password part of SecurityReport.
type PasswordConfigReport = security.PasswordReport

// SecurityReport returns the posture derived from the engine's config.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	algorithm := cfg.Password.Algorithm
	if algorithm == "" {
		algorithm = "pbkdf2"
	}

	return security.BuildReport(security.ReportInput{
		ProductionMode: cfg.Security.ProductionMode,
		AccessTTL:      cfg.JWT.AccessTTL,
		RefreshTTL:     cfg.JWT.RefreshTTL,
		Password: security.PasswordReport{
			Algorithm:  algorithm,
			Iterations: cfg.Password.Iterations,
			MinLength:  cfg.Password.MinLength,
			MaxBytes:   cfg.Password.MaxBytes,
		},
		CSRFProtection:    cfg.Security.CSRFProtection,
		TrustProxyHeaders: cfg.Security.TrustProxyHeaders,
		HSTSMaxAge:        cfg.Security.HSTSMaxAge,

		MaxLoginAttempts: cfg.Login.MaxAttempts,
		LockoutDuration:  cfg.Login.LockoutDuration,

		ThrottleEnabled:     cfg.Throttle.Enabled,
		ThrottleMaxRequests: cfg.Throttle.MaxRequests,

		SuspiciousEnabled:        cfg.Suspicious.Enabled,
		SuspiciousBlockThreshold: cfg.Suspicious.BlockThreshold,

		PasswordResetEnabled: cfg.PasswordReset.Enabled,
		PermissionsFailOpen:  cfg.Permission.FailOpen,

		FailOpen: map[string]bool{
			"login_limiter":  cfg.Login.FailOpen,
			"ip_throttle":    cfg.Throttle.FailOpen,
			"ip_block":       cfg.IPBlock.FailOpen,
			"suspicious":     cfg.Suspicious.FailOpen,
			"password_reset": cfg.PasswordReset.FailOpen,
			"permissions":    cfg.Permission.FailOpen,
		},

		AuditEnabled:   cfg.Audit.Enabled,
		MetricsEnabled: cfg.Metrics.Enabled,
	})
}
