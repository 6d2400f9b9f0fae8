package goGuard

import (
	"errors"
	"time"

	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/permission"
)

// Config holds every threshold, lifetime and policy flag of an Engine.
// Obtain one from DefaultConfig and override fields; Build validates it.
type Config struct {
	JWT           JWTConfig
	Password      PasswordConfig
	Login         LoginConfig
	Throttle      ThrottleConfig
	IPBlock       IPBlockConfig
	Suspicious    SuspiciousConfig
	PasswordReset PasswordResetConfig
	Account       AccountConfig
	Permission    PermissionConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Security      SecurityConfig
	Store         StoreConfig

	// Clock overrides the wall clock for every component. Nil means time.Now.
	Clock func() time.Time
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures HS256 token issuance. The two secrets must be at
// least 32 bytes and must differ.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the credential hasher and the password policy.
type PasswordConfig struct {
	Algorithm  string // "pbkdf2" (default) or "argon2id"
	Iterations int
	SaltLength int
	KeyLength  int
	Argon2     password.Argon2Config

	MinLength      int
	MaxBytes       int
	UpgradeOnLogin bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// LoginConfig configures per-email brute-force protection.
type LoginConfig struct {
	MaxAttempts     int
	Window          time.Duration
	LockoutDuration time.Duration
	FailOpen        bool
}

// ThrottleConfig configures the per-IP fixed-window request throttle.
type ThrottleConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
	FailOpen    bool
}

// IPBlockConfig configures explicit and automatic IP blocks.
type IPBlockConfig struct {
	Duration time.Duration
	FailOpen bool
}

// SuspiciousConfig configures suspicious activity detection.
type SuspiciousConfig struct {
	Enabled              bool
	BlockThreshold       int
	Window               time.Duration
	FailedLoginThreshold int
	FailedLoginWindow    time.Duration
	MaxActivities        int
	// UserAgentPatterns replaces the built-in signature list when non-empty.
	UserAgentPatterns []string
	FailOpen          bool
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig configures single-use reset tokens.
type PasswordResetConfig struct {
	Enabled     bool
	TokenTTL    time.Duration
	MaxRequests int
	Window      time.Duration
	FailOpen    bool
}

// AccountConfig configures registration.
type AccountConfig struct {
	DefaultRole string
	AutoLogin   bool
}

// PermissionConfig configures the permission resolver. Roles lists the
// hierarchy lowest first.
type PermissionConfig struct {
	Roles     []string
	AdminRole string
	FailOpen  bool
}

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds HTTP hardening settings consumed by the middleware.
type SecurityConfig struct {
	ProductionMode        bool
	CSRFProtection        bool
	TrustProxyHeaders     bool
	ContentSecurityPolicy string
	ReferrerPolicy        string
	HSTSMaxAge            time.Duration
}

// StoreConfig configures key-value key layout.
type StoreConfig struct {
	// Namespace is prepended to every key when the Engine builds its own
	// Redis store.
	Namespace string
}

const (
	defaultCSP            = "default-src 'self'; frame-ancestors 'none'; base-uri 'self'; form-action 'self'"
	defaultReferrerPolicy = "strict-origin-when-cross-origin"
)

// DefaultConfig returns production defaults. JWT secrets are left empty and
// must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Algorithm:      password.AlgorithmPBKDF2,
			Iterations:     password.MinPBKDF2Iterations,
			SaltLength:     32,
			KeyLength:      32,
			Argon2:         password.DefaultArgon2Config(),
			MinLength:      8,
			MaxBytes:       password.DefaultMaxPasswordBytes,
			UpgradeOnLogin: true,
		},
		Login: LoginConfig{
			MaxAttempts:     5,
			Window:          15 * time.Minute,
			LockoutDuration: 15 * time.Minute,
			FailOpen:        true,
		},
		Throttle: ThrottleConfig{
			Enabled:     true,
			MaxRequests: 100,
			Window:      time.Minute,
			FailOpen:    true,
		},
		IPBlock: IPBlockConfig{
			Duration: 24 * time.Hour,
			FailOpen: true,
		},
		Suspicious: SuspiciousConfig{
			Enabled:              true,
			BlockThreshold:       5,
			Window:               time.Hour,
			FailedLoginThreshold: 10,
			FailedLoginWindow:    time.Hour,
			MaxActivities:        50,
			FailOpen:             true,
		},
		PasswordReset: PasswordResetConfig{
			Enabled:     true,
			TokenTTL:    15 * time.Minute,
			MaxRequests: 3,
			Window:      time.Hour,
			FailOpen:    true,
		},
		Account: AccountConfig{
			DefaultRole: permission.RoleViewer,
			AutoLogin:   true,
		},
		Permission: PermissionConfig{
			Roles:     permission.DefaultHierarchy().Roles(),
			AdminRole: permission.RoleAdmin,
			FailOpen:  false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			CSRFProtection:        true,
			ContentSecurityPolicy: defaultCSP,
			ReferrerPolicy:        defaultReferrerPolicy,
			HSTSMaxAge:            365 * 24 * time.Hour,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	out.Suspicious.UserAgentPatterns = cloneStrings(cfg.Suspicious.UserAgentPatterns)
	out.Permission.Roles = cloneStrings(cfg.Permission.Roles)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func (c *Config) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be greater than AccessTTL")
	}
	if len(c.JWT.AccessSecret) < 32 {
		return errors.New("JWT AccessSecret must be at least 32 bytes")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		return errors.New("JWT RefreshSecret must be at least 32 bytes")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	switch c.Password.Algorithm {
	case "", password.AlgorithmPBKDF2:
		if c.Password.Iterations < password.MinPBKDF2Iterations {
			return errors.New("Password Iterations must be >= 100000")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case password.AlgorithmArgon2id:
		if c.Password.Argon2.Memory < 8*1024 {
			return errors.New("Password Argon2 Memory must be >= 8192 KB")
		}
		if c.Password.Argon2.Time < 1 {
			return errors.New("Password Argon2 Time must be >= 1")
		}
		if c.Password.Argon2.Parallelism < 1 {
			return errors.New("Password Argon2 Parallelism must be >= 1")
		}
	default:
		return errors.New("Password Algorithm must be 'pbkdf2' or 'argon2id'")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxBytes < c.Password.MinLength {
		return errors.New("Password MaxBytes must be >= MinLength")
	}

	// Login
	if c.Login.MaxAttempts <= 0 {
		return errors.New("Login MaxAttempts must be > 0")
	}
	if c.Login.Window <= 0 {
		return errors.New("Login Window must be > 0")
	}
	if c.Login.LockoutDuration <= 0 {
		return errors.New("Login LockoutDuration must be > 0")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxRequests <= 0 {
			return errors.New("Throttle MaxRequests must be > 0")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0")
		}
	}

	// IP block
	if c.IPBlock.Duration <= 0 {
		return errors.New("IPBlock Duration must be > 0")
	}

	// Suspicious
	if c.Suspicious.Enabled {
		if c.Suspicious.BlockThreshold <= 0 {
			return errors.New("Suspicious BlockThreshold must be > 0")
		}
		if c.Suspicious.Window <= 0 {
			return errors.New("Suspicious Window must be > 0")
		}
		if c.Suspicious.FailedLoginThreshold <= 0 {
			return errors.New("Suspicious FailedLoginThreshold must be > 0")
		}
		if c.Suspicious.FailedLoginWindow <= 0 {
			return errors.New("Suspicious FailedLoginWindow must be > 0")
		}
		if c.Suspicious.MaxActivities < 0 {
			return errors.New("Suspicious MaxActivities must be >= 0")
		}
	}

	// Password reset
	if c.PasswordReset.Enabled {
		if c.PasswordReset.TokenTTL <= 0 {
			return errors.New("PasswordReset TokenTTL must be > 0")
		}
		if c.PasswordReset.MaxRequests <= 0 {
			return errors.New("PasswordReset MaxRequests must be > 0")
		}
		if c.PasswordReset.Window <= 0 {
			return errors.New("PasswordReset Window must be > 0")
		}
	}

	// Permission
	if len(c.Permission.Roles) == 0 {
		return errors.New("Permission Roles must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Permission.Roles))
	for _, r := range c.Permission.Roles {
		if r == "" {
			return errors.New("Permission Roles must not contain empty names")
		}
		if _, dup := seen[r]; dup {
			return errors.New("Permission Roles must be unique")
		}
		seen[r] = struct{}{}
	}
	if c.Permission.AdminRole != "" {
		if _, ok := seen[c.Permission.AdminRole]; !ok {
			return errors.New("Permission AdminRole must be one of Roles")
		}
	}
	if c.Account.DefaultRole == "" {
		return errors.New("Account DefaultRole must be set")
	}
	if _, ok := seen[c.Account.DefaultRole]; !ok {
		return errors.New("Account DefaultRole must be one of Permission Roles")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Security
	if c.Security.HSTSMaxAge < 0 {
		return errors.New("Security HSTSMaxAge must be >= 0")
	}
	if c.Security.ProductionMode && !c.Security.CSRFProtection {
		return errors.New("Security CSRFProtection must be enabled in ProductionMode")
	}

	return nil
}
