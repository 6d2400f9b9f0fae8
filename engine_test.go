package goGuard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type mockUserProvider struct {
	mu      sync.Mutex
	users   map[string]UserRecord
	byEmail map[string]string

	createErr error
	updateErr error

	getByEmailCalls     int
	updatePasswordCalls int
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		users:   make(map[string]UserRecord),
		byEmail: make(map[string]string),
	}
}

func (m *mockUserProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByEmailCalls++

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *mockUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, in CreateUserInput) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return UserRecord{}, m.createErr
	}
	key := strings.ToLower(in.Email)
	if _, ok := m.byEmail[key]; ok {
		return UserRecord{}, ErrAccountExists
	}
	u := UserRecord{
		UserID:       uuid.NewString(),
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
	}
	m.users[u.UserID] = u
	m.byEmail[key] = u.UserID
	return u, nil
}

func (m *mockUserProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++

	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = newHash
	m.users[userID] = u
	return nil
}

func (m *mockUserProvider) hash(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID].PasswordHash
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// steppingClock advances one millisecond per call so that session IDs
// issued inside one test never collide.
func steppingClock() func() time.Time {
	base := time.Now()
	var n atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Millisecond)
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-0123456789abcdefghijkl")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-0123456789abcdefghijk")
	cfg.JWT.Issuer = "goguard-test"
	cfg.Clock = steppingClock()
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *mockUserProvider, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	up := newMockUserProvider()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		WithRoles(map[string][]string{
			"guest":  {},
			"viewer": {"posts.read"},
			"editor": {"posts.read", "posts.write"},
			"admin":  {},
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, up, mr
}

func register(t *testing.T, e *Engine, email, password string) *AuthResult {
	t.Helper()

	res, err := e.Register(context.Background(), RegisterRequest{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return res
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	reg := register(t, engine, "alice@example.com", "correct-horse-1")
	if reg.Tokens == nil {
		t.Fatal("expected auto-login tokens on register")
	}
	if reg.Role != "viewer" {
		t.Fatalf("expected default role viewer, got %q", reg.Role)
	}

	res, err := engine.Login(ctx, "alice@example.com", "correct-horse-1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	id, err := engine.VerifyAccess(ctx, res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if id.UserID != reg.UserID || id.Email != "alice@example.com" || id.Role != "viewer" {
		t.Fatalf("unexpected identity: %+v", id)
	}

	access, err := engine.Refresh(ctx, res.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := engine.VerifyAccess(ctx, access); err != nil {
		t.Fatalf("refreshed access token rejected: %v", err)
	}

	// The refresh token stays valid after use.
	if _, err := engine.Refresh(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}

	n, err := engine.ActiveSessions(ctx, reg.UserID)
	if err != nil {
		t.Fatalf("ActiveSessions failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 sessions, got %d", n)
	}

	if err := engine.Logout(ctx, res.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, res.Tokens.RefreshToken); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound after logout, got %v", err)
	}
	if _, err := engine.Refresh(ctx, reg.Tokens.RefreshToken); err != nil {
		t.Fatalf("other session should survive single logout: %v", err)
	}
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	reg := register(t, engine, "bob@example.com", "correct-horse-1")
	res, err := engine.Login(ctx, "bob@example.com", "correct-horse-1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	n, err := engine.LogoutAll(ctx, reg.UserID)
	if err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked sessions, got %d", n)
	}

	for _, tok := range []string{reg.Tokens.RefreshToken, res.Tokens.RefreshToken} {
		if _, err := engine.Refresh(ctx, tok); !errors.Is(err, ErrRecordNotFound) {
			t.Fatalf("expected ErrRecordNotFound, got %v", err)
		}
	}

	// Access tokens are stateless and stay valid until they expire.
	if _, err := engine.VerifyAccess(ctx, res.Tokens.AccessToken); err != nil {
		t.Fatalf("access token should outlive logout: %v", err)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	reg := register(t, engine, "carol@example.com", "correct-horse-1")

	if _, err := engine.VerifyAccess(ctx, reg.Tokens.RefreshToken); err == nil {
		t.Fatal("refresh token must not verify as access token")
	}
	if _, err := engine.Refresh(ctx, reg.Tokens.AccessToken); err == nil {
		t.Fatal("access token must not refresh")
	}
	if got := engine.MetricsSnapshot().Counters[MetricTokenRejected]; got != 1 {
		t.Fatalf("expected one rejected token metric, got %d", got)
	}
}

func TestLoginUnknownUserAndWrongPassword(t *testing.T) {
	engine, up, _ := newTestEngine(t, nil)
	ctx := context.Background()

	register(t, engine, "dave@example.com", "correct-horse-1")

	if _, err := engine.Login(ctx, "nobody@example.com", "whatever-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := engine.Login(ctx, "dave@example.com", "wrong-horse-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := engine.Login(ctx, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
	if up.getByEmailCalls != 2 {
		t.Fatalf("empty input must not reach the provider, calls=%d", up.getByEmailCalls)
	}

	st, err := engine.LoginStatus(ctx, "dave@example.com")
	if err != nil {
		t.Fatalf("LoginStatus failed: %v", err)
	}
	if st.Attempts != 1 {
		t.Fatalf("expected 1 recorded attempt, got %d", st.Attempts)
	}
}

func TestLoginLockoutAfterMaxAttempts(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	register(t, engine, "erin@example.com", "correct-horse-1")

	for i := 1; i <= 4; i++ {
		if _, err := engine.Login(ctx, "erin@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := engine.Login(ctx, "erin@example.com", "wrong"); !errors.Is(err, ErrLocked) {
		t.Fatalf("fifth failure should lock, got %v", err)
	}
	if _, err := engine.Login(ctx, "erin@example.com", "correct-horse-1"); !errors.Is(err, ErrLocked) {
		t.Fatalf("correct password must be refused while locked, got %v", err)
	}

	if err := engine.ClearLoginAttempts(ctx, "erin@example.com"); err != nil {
		t.Fatalf("ClearLoginAttempts failed: %v", err)
	}
	if _, err := engine.Login(ctx, "erin@example.com", "correct-horse-1"); err != nil {
		t.Fatalf("login after clearing attempts failed: %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginLocked] < 1 {
		t.Fatal("expected login locked metric")
	}
}

func TestSuccessfulLoginResetsAttempts(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	register(t, engine, "frank@example.com", "correct-horse-1")
	for i := 0; i < 3; i++ {
		_, _ = engine.Login(ctx, "frank@example.com", "wrong")
	}
	if _, err := engine.Login(ctx, "frank@example.com", "correct-horse-1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	st, err := engine.LoginStatus(ctx, "frank@example.com")
	if err != nil {
		t.Fatalf("LoginStatus failed: %v", err)
	}
	if st.Attempts != 0 || st.Locked {
		t.Fatalf("expected cleared status, got %+v", st)
	}
}

func TestRegisterValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	register(t, engine, "gina@example.com", "correct-horse-1")

	if _, err := engine.Register(ctx, RegisterRequest{Email: "gina@example.com", Password: "another-pass-1"}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if _, err := engine.Register(ctx, RegisterRequest{Email: "hank@example.com", Password: "short"}); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if _, err := engine.Register(ctx, RegisterRequest{Email: "hank@example.com", Password: "correct-horse-1", Role: "overlord"}); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}

	res, err := engine.Register(ctx, RegisterRequest{Email: "hank@example.com", Password: "correct-horse-1", Role: "editor"})
	if err != nil {
		t.Fatalf("Register with role failed: %v", err)
	}
	if res.Role != "editor" {
		t.Fatalf("expected editor, got %q", res.Role)
	}
	if !engine.Can(ctx, res.UserID, "posts", "write") {
		t.Fatal("editor should be able to write posts")
	}
}

func TestRegisterWithoutAutoLogin(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(c *Config) {
		c.Account.AutoLogin = false
	})

	res := register(t, engine, "ivy@example.com", "correct-horse-1")
	if res.Tokens != nil {
		t.Fatal("expected no tokens without auto-login")
	}
	if res.UserID == "" {
		t.Fatal("expected user id")
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	engine, up, _ := newTestEngine(t, nil)
	ctx := context.Background()

	reg := register(t, engine, "jack@example.com", "correct-horse-1")

	if err := engine.ChangePassword(ctx, reg.UserID, "wrong-old-pass", "new-horse-22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := engine.ChangePassword(ctx, reg.UserID, "correct-horse-1", "correct-horse-1"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy for reuse, got %v", err)
	}

	before := up.hash(reg.UserID)
	if err := engine.ChangePassword(ctx, reg.UserID, "correct-horse-1", "new-horse-22"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if up.hash(reg.UserID) == before {
		t.Fatal("expected password hash to change")
	}

	if _, err := engine.Refresh(ctx, reg.Tokens.RefreshToken); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected sessions revoked, got %v", err)
	}
	if _, err := engine.Login(ctx, "jack@example.com", "correct-horse-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := engine.Login(ctx, "jack@example.com", "new-horse-22"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestStoreOutageKeepsAccessVerificationWorking(t *testing.T) {
	engine, _, mr := newTestEngine(t, nil)
	ctx := context.Background()

	reg := register(t, engine, "kate@example.com", "correct-horse-1")
	mr.Close()

	if _, err := engine.VerifyAccess(ctx, reg.Tokens.AccessToken); err != nil {
		t.Fatalf("VerifyAccess should not need the store: %v", err)
	}
	if _, err := engine.Refresh(ctx, reg.Tokens.RefreshToken); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := engine.Login(ctx, "kate@example.com", "correct-horse-1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("token issuance needs the store, got %v", err)
	}
}

func TestAuditEventsAreEmitted(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(64)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(newMockUserProvider()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	register(t, engine, "liam@example.com", "correct-horse-1")
	_, _ = engine.Login(ctx, "liam@example.com", "wrong")
	engine.Close()

	var sawCreate, sawFailure bool
	for {
		select {
		case ev := <-sink.Events():
			switch ev.Kind {
			case "account_creation_success":
				sawCreate = ev.Success
			case "login_failure":
				sawFailure = !ev.Success && ev.IP == "203.0.113.7" && ev.Code == "invalid_credentials"
			}
			continue
		default:
		}
		break
	}
	if !sawCreate || !sawFailure {
		t.Fatalf("missing audit events: create=%v failure=%v", sawCreate, sawFailure)
	}
}

func TestSecurityReportReflectsConfig(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(c *Config) {
		c.Permission.FailOpen = true
		c.Throttle.FailOpen = false
	})

	r := engine.SecurityReport()
	if !r.LoginLockoutActive || !r.IPThrottleActive || !r.SuspiciousDetection {
		t.Fatalf("expected default protections active: %+v", r)
	}
	if !r.PermissionsFailOpen {
		t.Fatal("expected permissions fail-open reported")
	}
	for _, c := range r.FailOpenComponents {
		if c == "ip_throttle" {
			t.Fatal("ip_throttle is fail-closed in this config")
		}
	}
	if r.Password.Algorithm != "pbkdf2" {
		t.Fatalf("unexpected algorithm %q", r.Password.Algorithm)
	}
}
