package goGuard

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/goGuard/csrf"
	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/internal/limiters"
	"github.com/MrEthical07/goGuard/internal/stores"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/kv"
	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/permission"
	"github.com/MrEthical07/goGuard/session"
	"github.com/redis/go-redis/v9"
)

const dummyPassword = "goGuard-timing-equalizer"

// Builder assembles an Engine. It is single use: configure it during
// initialization, call Build once and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  kv.Store

	roles     map[string][]string
	roleStore permission.Store

	userProvider UserProvider
	auditSink    AuditSink
	logger       *slog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing every store. It is ignored when
// WithStore is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets the key-value backend directly.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithRoles defines the permissions of each role for the built-in
// in-memory role store. It has no effect when WithRoleStore is used.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

// WithRoleStore sets the backend the permission resolver reads from.
func (b *Builder) WithRoleStore(store permission.Store) *Builder {
	b.roleStore = store
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger for warnings and fail-open
// decisions. The default discards output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or key-value store required")
		}
		store = kv.NewRedisStore(b.redis, cfg.Store.Namespace)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// -------- PASSWORDS --------
	hasher, err := password.New(password.Options{
		Algorithm: cfg.Password.Algorithm,
		PBKDF2: password.PBKDF2Config{
			Iterations: cfg.Password.Iterations,
			SaltLength: cfg.Password.SaltLength,
			KeyLength:  cfg.Password.KeyLength,
		},
		Argon2:           cfg.Password.Argon2,
		MaxPasswordBytes: cfg.Password.MaxBytes,
	})
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	// -------- TOKENS & SESSIONS --------
	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           cfg.Clock,
	})
	if err != nil {
		return nil, err
	}
	sessions := session.NewService(session.NewStore(store), tokens)

	// -------- PERMISSIONS --------
	roleStore := b.roleStore
	if roleStore == nil {
		static := permission.NewStaticStore(b.roles)
		for _, role := range cfg.Permission.Roles {
			if _, ok := b.roles[role]; !ok {
				static.DefineRole(role)
			}
		}
		roleStore = static
	}
	resolver := permission.NewResolver(roleStore, permission.Options{
		Hierarchy: permission.NewHierarchy(cfg.Permission.Roles...),
		AdminRole: cfg.Permission.AdminRole,
		FailOpen:  cfg.Permission.FailOpen,
		Logger:    logger,
	})

	// -------- LIMITERS --------
	rt := limiters.Runtime{Store: store, Now: cfg.Clock, Logger: logger}
	throttle := limiters.NewIPThrottle(rt, limiters.ThrottleConfig{
		MaxRequests: cfg.Throttle.MaxRequests,
		Window:      cfg.Throttle.Window,
		FailOpen:    cfg.Throttle.FailOpen,
	})
	blocker := limiters.NewIPBlocker(rt, limiters.BlockConfig{
		Duration: cfg.IPBlock.Duration,
		FailOpen: cfg.IPBlock.FailOpen,
	})
	ipFailures := limiters.NewIPFailureCounter(rt, limiters.FailureConfig{
		Window:   cfg.Suspicious.FailedLoginWindow,
		FailOpen: cfg.Suspicious.FailOpen,
	})

	engine := &Engine{
		config:    cfg,
		logger:    logger,
		store:     store,
		users:     b.userProvider,
		roleStore: roleStore,
		hasher:    hasher,
		dummyHash: dummyHash,
		tokens:    tokens,
		sessions:  sessions,
		csrf:      csrf.NewGuard(),
		resolver:  resolver,
		loginLimiter: limiters.NewLoginLimiter(rt, limiters.LoginConfig{
			MaxAttempts:     cfg.Login.MaxAttempts,
			Window:          cfg.Login.Window,
			LockoutDuration: cfg.Login.LockoutDuration,
			FailOpen:        cfg.Login.FailOpen,
		}),
		throttle:   throttle,
		blocker:    blocker,
		ipFailures: ipFailures,
		resets: stores.NewResetTokenStore(store, limiters.NewResetLimiter(rt, limiters.ResetConfig{
			MaxRequests: cfg.PasswordReset.MaxRequests,
			Window:      cfg.PasswordReset.Window,
			FailOpen:    cfg.PasswordReset.FailOpen,
		}), cfg.PasswordReset.TokenTTL, cfg.Clock),
		metrics: NewMetrics(cfg.Metrics),
	}

	if cfg.Audit.Enabled {
		engine.audit = internalaudit.NewDispatcher(b.auditSink, internalaudit.Options{
			Buffer: cfg.Audit.BufferSize,
			Lossy:  cfg.Audit.DropIfFull,
		})
	}

	if cfg.Suspicious.Enabled {
		engine.suspicious = limiters.NewSuspiciousDetector(rt, limiters.SuspiciousConfig{
			BlockThreshold:       cfg.Suspicious.BlockThreshold,
			Window:               cfg.Suspicious.Window,
			FailedLoginThreshold: cfg.Suspicious.FailedLoginThreshold,
			MaxActivities:        cfg.Suspicious.MaxActivities,
			UserAgentPatterns:    cloneStrings(cfg.Suspicious.UserAgentPatterns),
			FailOpen:             cfg.Suspicious.FailOpen,
		}, throttle, ipFailures, blocker)
	}

	engine.flows = engine.buildFlowDeps()

	b.built = true
	return engine, nil
}
