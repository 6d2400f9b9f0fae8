package stores

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/internal/limiters"
	"github.com/MrEthical07/goGuard/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newResetStoreTest(t *testing.T) (*ResetTokenStore, *miniredis.Miniredis, *testClock, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	backend := kv.NewRedisStore(rdb, "")

	limiter := limiters.NewResetLimiter(
		limiters.Runtime{Store: backend, Now: clock.Now},
		limiters.ResetConfig{MaxRequests: 3, Window: time.Hour, FailOpen: true},
	)
	store := NewResetTokenStore(backend, limiter, 15*time.Minute, clock.Now)
	return store, mr, clock, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestResetTokenSingleUse(t *testing.T) {
	store, mr, _, done := newResetStoreTest(t)
	defer done()
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1", "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if ttl := mr.TTL("reset_token:" + token); ttl != 15*time.Minute {
		t.Fatalf("expected 15m TTL, got %v", ttl)
	}

	rec, err := store.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if rec.UserID != "u1" || rec.Email != "a@x.com" {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, err := store.Verify(ctx, token); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("second verify: expected ErrResetInvalid, got %v", err)
	}
	if ErrResetInvalid.Error() != "reset token expired or invalid" {
		t.Fatalf("unexpected message %q", ErrResetInvalid.Error())
	}
}

func TestResetTokenConcurrentVerifyOnlyOneWins(t *testing.T) {
	store, _, _, done := newResetStoreTest(t)
	defer done()
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1", "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Verify(ctx, token); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one successful verify, got %d", wins)
	}
}

func TestResetTokenExpires(t *testing.T) {
	store, _, clock, done := newResetStoreTest(t)
	defer done()
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1", "a@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.Advance(16 * time.Minute)
	if _, err := store.Verify(ctx, token); !errors.Is(err, ErrResetInvalid) {
		t.Fatalf("expected ErrResetInvalid after expiry, got %v", err)
	}
}

func TestResetTokenUnknown(t *testing.T) {
	store, _, _, done := newResetStoreTest(t)
	defer done()

	for _, tok := range []string{"", "does-not-exist"} {
		if _, err := store.Verify(context.Background(), tok); !errors.Is(err, ErrResetInvalid) {
			t.Fatalf("token %q: expected ErrResetInvalid, got %v", tok, err)
		}
	}
}

func TestResetIssueRateLimited(t *testing.T) {
	store, _, _, done := newResetStoreTest(t)
	defer done()
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		tok, err := store.Issue(ctx, "u1", "a@x.com")
		if err != nil {
			t.Fatalf("issue %d: %v", i+1, err)
		}
		if seen[tok] {
			t.Fatal("expected unique tokens")
		}
		seen[tok] = true
	}
	if _, err := store.Issue(ctx, "u1", "a@x.com"); !errors.Is(err, limiters.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on fourth request, got %v", err)
	}
}
