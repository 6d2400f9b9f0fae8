package goGuard

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/MrEthical07/goGuard/permission"
)

func TestAuthorizationFollowsRoles(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	viewer := register(t, engine, "v@example.com", "correct-horse-1")

	if !engine.Can(ctx, viewer.UserID, "posts", "read") {
		t.Fatal("viewer should read posts")
	}
	if engine.Can(ctx, viewer.UserID, "posts", "write") {
		t.Fatal("viewer must not write posts")
	}
	if !engine.HasMinimumRole(ctx, viewer.UserID, "guest") || engine.HasMinimumRole(ctx, viewer.UserID, "editor") {
		t.Fatal("unexpected role ranking for viewer")
	}
	if got := engine.Permissions(ctx, viewer.UserID); !slices.Equal(got, []string{"posts.read"}) {
		t.Fatalf("unexpected permissions %v", got)
	}

	if err := engine.AssignRole(ctx, viewer.UserID, "admin"); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	if !engine.Can(ctx, viewer.UserID, "billing", "delete") {
		t.Fatal("admin is allowed everything")
	}
	if got := engine.Roles(ctx, viewer.UserID); !slices.Equal(got, []string{"admin", "viewer"}) {
		t.Fatalf("unexpected roles %v", got)
	}

	res, err := engine.Login(ctx, "v@example.com", "correct-horse-1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Role != "admin" {
		t.Fatalf("token role should be the highest role, got %q", res.Role)
	}

	if err := engine.AssignRole(ctx, viewer.UserID, "overlord"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestAuthorizationUnknownUserDenied(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	if engine.Can(ctx, "missing", "posts", "read") {
		t.Fatal("unknown user must be denied")
	}
	if len(engine.Roles(ctx, "missing")) != 0 {
		t.Fatal("unknown user has no roles")
	}
	if got := engine.MetricsSnapshot().Counters[MetricPermissionDenied]; got != 1 {
		t.Fatalf("expected one denial metric, got %d", got)
	}
}

type failingRoleStore struct{}

func (failingRoleStore) UserRoles(context.Context, string) ([]string, error) {
	return nil, errors.New("db down")
}

func (failingRoleStore) RolePermissions(context.Context, []string) ([]string, error) {
	return nil, errors.New("db down")
}

func TestAuthorizationStoreFailure(t *testing.T) {
	for _, failOpen := range []bool{false, true} {
		mr, rdb := newTestRedis(t)

		cfg := testConfig()
		cfg.Permission.FailOpen = failOpen
		engine, err := New().
			WithConfig(cfg).
			WithRedis(rdb).
			WithUserProvider(newMockUserProvider()).
			WithRoleStore(failingRoleStore{}).
			Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}

		if got := engine.Can(context.Background(), "u1", "posts", "read"); got != failOpen {
			t.Fatalf("failOpen=%v: Can returned %v", failOpen, got)
		}
		if err := engine.AssignRole(context.Background(), "u1", permission.RoleViewer); !errors.Is(err, ErrEngineNotReady) {
			t.Fatalf("read-only role store should refuse assignments, got %v", err)
		}
		engine.Close()
		mr.Close()
	}
}
