package goGuard

import (
	"context"
	"strings"
	"testing"

	"github.com/MrEthical07/goGuard/kv"
)

func TestBuilderRequiresDependencies(t *testing.T) {
	_, rdb := newTestRedis(t)

	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil || !strings.Contains(err.Error(), "user provider") {
		t.Fatalf("expected user provider error, got %v", err)
	}
	if _, err := New().WithConfig(testConfig()).WithUserProvider(newMockUserProvider()).Build(); err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, err := New().WithRedis(rdb).WithUserProvider(newMockUserProvider()).Build(); err == nil {
		t.Fatal("expected default config without secrets to fail")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)

	b := New().WithConfig(testConfig()).WithRedis(rdb).WithUserProvider(newMockUserProvider())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuilderNamespacesKeys(t *testing.T) {
	mr, rdb := newTestRedis(t)

	cfg := testConfig()
	cfg.Store.Namespace = "tenant-a"
	engine, err := New().
		WithConfig(cfg).
		WithStore(kv.NewRedisStore(rdb, cfg.Store.Namespace)).
		WithUserProvider(newMockUserProvider()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if err := engine.BlockIP(context.Background(), "192.0.2.1", "test"); err != nil {
		t.Fatalf("BlockIP failed: %v", err)
	}
	for _, k := range mr.Keys() {
		if !strings.HasPrefix(k, "tenant-a:") {
			t.Fatalf("key %q outside namespace", k)
		}
	}
	if len(mr.Keys()) == 0 {
		t.Fatal("expected a stored block")
	}
}

func TestBuilderConfigIsCopied(t *testing.T) {
	_, rdb := newTestRedis(t)

	cfg := testConfig()
	engine, err := New().WithConfig(cfg).WithRedis(rdb).WithUserProvider(newMockUserProvider()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	cfg.JWT.AccessSecret[0] = 'Z'
	if engine.Config().JWT.AccessSecret[0] == 'Z' {
		t.Fatal("engine config aliased caller slice")
	}
}
