// Package config loads the goguard-server configuration from a YAML file
// with environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root server configuration. Sources, highest priority first:
//  1. the path passed to Load (the --config flag);
//  2. the file named by CONFIG_PATH;
//  3. ./goguard.yaml in the working directory;
//  4. environment variables alone.
//
// Environment variables are overlaid on top of any file that was read.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	DB       DBConfig       `yaml:"db"`
	Auth     AuthConfig     `yaml:"auth"`
	Security SecurityConfig `yaml:"security"`
	Limits   LimitsConfig   `yaml:"limits"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// RedisConfig selects the key-value backend. An empty Addr runs an
// embedded miniredis, which is only suitable for local development.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Namespace string `yaml:"namespace" env:"REDIS_NAMESPACE" env-default:"goguard"`
}

// DBConfig selects the user and role database. An empty URL keeps users and
// roles in memory.
type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

type AuthConfig struct {
	AccessSecret  string        `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret string        `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTTL     time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"15m"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"168h"`
	Issuer        string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"goguard"`
	DefaultRole   string        `yaml:"default_role" env:"DEFAULT_ROLE" env-default:"viewer"`
	// ExposeResetTokens returns password reset tokens in the HTTP response
	// instead of expecting an out-of-band channel. Never enable in prod.
	ExposeResetTokens bool `yaml:"expose_reset_tokens" env:"EXPOSE_RESET_TOKENS" env-default:"false"`
}

type SecurityConfig struct {
	Production        bool `yaml:"production" env:"SECURITY_PRODUCTION" env-default:"false"`
	CSRF              bool `yaml:"csrf" env:"SECURITY_CSRF" env-default:"true"`
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" env:"SECURITY_TRUST_PROXY" env-default:"false"`
	Audit             bool `yaml:"audit" env:"SECURITY_AUDIT" env-default:"true"`
}

type LimitsConfig struct {
	LoginMaxAttempts  int           `yaml:"login_max_attempts" env:"LOGIN_MAX_ATTEMPTS" env-default:"5"`
	LoginLockout      time.Duration `yaml:"login_lockout" env:"LOGIN_LOCKOUT" env-default:"15m"`
	RequestsPerWindow int           `yaml:"requests_per_window" env:"THROTTLE_MAX_REQUESTS" env-default:"100"`
	ThrottleWindow    time.Duration `yaml:"throttle_window" env:"THROTTLE_WINDOW" env-default:"1m"`
	BlockDuration     time.Duration `yaml:"block_duration" env:"IP_BLOCK_DURATION" env-default:"24h"`
}

type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"10s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		// ReadConfig overlays the environment after parsing the file.
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", p, err)
		}
		return &cfg, nil
	}

	if path != "" {
		return readFile(path)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}
	if _, err := os.Stat("goguard.yaml"); err == nil {
		return readFile("goguard.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, goguard.yaml or env vars: %w", err)
	}
	return &cfg, nil
}

// Engine maps the server configuration onto goGuard defaults.
func (c *Config) Engine() goGuard.Config {
	out := goGuard.DefaultConfig()

	out.JWT.AccessSecret = []byte(c.Auth.AccessSecret)
	out.JWT.RefreshSecret = []byte(c.Auth.RefreshSecret)
	out.JWT.AccessTTL = c.Auth.AccessTTL
	out.JWT.RefreshTTL = c.Auth.RefreshTTL
	out.JWT.Issuer = c.Auth.Issuer
	out.Account.DefaultRole = c.Auth.DefaultRole

	out.Login.MaxAttempts = c.Limits.LoginMaxAttempts
	out.Login.LockoutDuration = c.Limits.LoginLockout
	out.Throttle.MaxRequests = c.Limits.RequestsPerWindow
	out.Throttle.Window = c.Limits.ThrottleWindow
	out.IPBlock.Duration = c.Limits.BlockDuration

	out.Security.ProductionMode = c.Security.Production
	out.Security.CSRFProtection = c.Security.CSRF
	out.Security.TrustProxyHeaders = c.Security.TrustProxyHeaders
	out.Audit.Enabled = c.Security.Audit
	out.Metrics.EnableLatencyHistograms = true

	out.Store.Namespace = c.Redis.Namespace
	return out
}
