package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goGuard/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newLimiterTest(t *testing.T) (Runtime, *miniredis.Miniredis, *testClock, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	rt := Runtime{Store: kv.NewRedisStore(rdb, ""), Now: clock.Now}
	return rt, mr, clock, func() {
		rdb.Close()
		mr.Close()
	}
}

func defaultLogin() LoginConfig {
	return LoginConfig{MaxAttempts: 5, Window: 15 * time.Minute, LockoutDuration: 15 * time.Minute, FailOpen: true}
}

func TestLoginLimiterLocksAtThreshold(t *testing.T) {
	rt, mr, clock, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	l := NewLoginLimiter(rt, defaultLogin())

	for i := 1; i <= 4; i++ {
		st, err := l.RecordFailure(ctx, "A@x.com")
		if err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		if st.Locked || st.Attempts != i {
			t.Fatalf("failure %d: unexpected status %+v", i, st)
		}
	}
	if err := l.Check(ctx, "a@x.com"); err != nil {
		t.Fatalf("expected unlocked after 4 failures, got %v", err)
	}

	st, err := l.RecordFailure(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("fifth failure: %v", err)
	}
	if !st.Locked || st.RetryAfter != 15*time.Minute {
		t.Fatalf("expected lock for 15m, got %+v", st)
	}
	if ttl := mr.TTL("login_attempts:a@x.com"); ttl != 15*time.Minute {
		t.Fatalf("expected lockout TTL, got %v", ttl)
	}
	if err := l.Check(ctx, "a@x.com"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	clock.Advance(5 * time.Minute)
	st, _ = l.RecordFailure(ctx, "a@x.com")
	if st.RetryAfter != 10*time.Minute {
		t.Fatalf("failure while locked must not extend lock, got %+v", st)
	}

	clock.Advance(10 * time.Minute)
	if err := l.Check(ctx, "a@x.com"); err != nil {
		t.Fatalf("expected lock to lapse, got %v", err)
	}
	if mr.Exists("login_attempts:a@x.com") {
		t.Fatal("expected lapsed record to be deleted")
	}
}

func TestLoginLimiterSuccessClears(t *testing.T) {
	rt, mr, _, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	l := NewLoginLimiter(rt, defaultLogin())

	for i := 0; i < 3; i++ {
		if _, err := l.RecordFailure(ctx, "a@x.com"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if err := l.RecordSuccess(ctx, "a@x.com"); err != nil {
		t.Fatalf("record success: %v", err)
	}
	if mr.Exists("login_attempts:a@x.com") {
		t.Fatal("expected success to delete the record")
	}
	st, err := l.Status(ctx, "a@x.com")
	if err != nil || st.Attempts != 0 || st.Remaining != 5 {
		t.Fatalf("expected clear status, got %+v err=%v", st, err)
	}
}

func TestLoginLimiterWindowTTLAndReset(t *testing.T) {
	rt, mr, clock, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	l := NewLoginLimiter(rt, defaultLogin())

	if _, err := l.RecordFailure(ctx, "a@x.com"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	clock.Advance(5 * time.Minute)
	if _, err := l.RecordFailure(ctx, "a@x.com"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if ttl := mr.TTL("login_attempts:a@x.com"); ttl != 10*time.Minute {
		t.Fatalf("expected remaining-window TTL of 10m, got %v", ttl)
	}

	clock.Advance(11 * time.Minute)
	st, err := l.RecordFailure(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if st.Attempts != 1 {
		t.Fatalf("expected a fresh window, got %+v", st)
	}
}

func TestIPThrottleWindow(t *testing.T) {
	rt, _, clock, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	th := NewIPThrottle(rt, ThrottleConfig{MaxRequests: 100, Window: time.Minute, FailOpen: true})

	for i := 0; i < 100; i++ {
		d, err := th.Check(ctx, "10.0.0.1")
		if err != nil || d.Limited {
			t.Fatalf("request %d: unexpected decision %+v err=%v", i+1, d, err)
		}
		if _, err := th.Record(ctx, "10.0.0.1"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	d, err := th.Check(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !d.Limited || d.RetryAfter <= 0 {
		t.Fatalf("expected 101st request to be limited, got %+v", d)
	}
	if !th.Active(ctx, "10.0.0.1") {
		t.Fatal("expected Active while limited")
	}
	if d, _ := th.Check(ctx, "10.0.0.2"); d.Limited {
		t.Fatal("other IPs must not be affected")
	}

	clock.Advance(time.Minute + time.Second)
	if d, _ := th.Check(ctx, "10.0.0.1"); d.Limited {
		t.Fatal("expected window to roll over")
	}
	n, err := th.Record(ctx, "10.0.0.1")
	if err != nil || n != 1 {
		t.Fatalf("expected fresh count 1, got %d err=%v", n, err)
	}
}

func TestIPBlocker(t *testing.T) {
	rt, mr, clock, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	b := NewIPBlocker(rt, BlockConfig{Duration: 24 * time.Hour, FailOpen: true})

	if err := b.Block(ctx, "10.0.0.9", "manual"); err != nil {
		t.Fatalf("block: %v", err)
	}
	if ttl := mr.TTL("ip_block:10.0.0.9"); ttl != 24*time.Hour {
		t.Fatalf("expected 24h TTL, got %v", ttl)
	}
	st, err := b.Status(ctx, "10.0.0.9")
	if err != nil || !st.Blocked || st.Reason != "manual" {
		t.Fatalf("unexpected status %+v err=%v", st, err)
	}

	if err := b.Unblock(ctx, "10.0.0.9"); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if blocked, _ := b.IsBlocked(ctx, "10.0.0.9"); blocked {
		t.Fatal("expected unblocked")
	}

	if err := b.Block(ctx, "10.0.0.9", "again"); err != nil {
		t.Fatalf("block: %v", err)
	}
	clock.Advance(24 * time.Hour)
	if blocked, _ := b.IsBlocked(ctx, "10.0.0.9"); blocked {
		t.Fatal("expected block to expire after 24h")
	}
}

func TestSuspiciousDetectorAutoBlocks(t *testing.T) {
	rt, _, _, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()

	throttle := NewIPThrottle(rt, ThrottleConfig{MaxRequests: 100, Window: time.Minute, FailOpen: true})
	failures := NewIPFailureCounter(rt, FailureConfig{Window: time.Hour, FailOpen: true})
	blocker := NewIPBlocker(rt, BlockConfig{Duration: 24 * time.Hour, FailOpen: true})
	d := NewSuspiciousDetector(rt, SuspiciousConfig{
		BlockThreshold:       5,
		Window:               time.Hour,
		FailedLoginThreshold: 10,
		MaxActivities:        3,
	}, throttle, failures, blocker)

	clean := Signal{IP: "10.0.0.5", UserAgent: "Mozilla/5.0 (X11; Linux x86_64)"}
	if f, err := d.Inspect(ctx, clean); err != nil || f.Suspicious {
		t.Fatalf("browser UA flagged: %+v err=%v", f, err)
	}

	bot := Signal{IP: "10.0.0.5", UserAgent: "curl/8.4.0", Path: "/login"}
	for i := 1; i <= 4; i++ {
		f, err := d.Inspect(ctx, bot)
		if err != nil {
			t.Fatalf("inspect %d: %v", i, err)
		}
		if !f.Suspicious || f.Count != i || f.Blocked {
			t.Fatalf("inspect %d: unexpected finding %+v", i, f)
		}
	}
	f, err := d.Inspect(ctx, bot)
	if err != nil {
		t.Fatalf("inspect 5: %v", err)
	}
	if !f.Blocked {
		t.Fatalf("expected fifth detection to block, got %+v", f)
	}
	if blocked, _ := blocker.IsBlocked(ctx, "10.0.0.5"); !blocked {
		t.Fatal("expected IP to be blocked")
	}

	acts, err := d.Activities(ctx, "10.0.0.5")
	if err != nil {
		t.Fatalf("activities: %v", err)
	}
	if len(acts) != 3 {
		t.Fatalf("expected activities capped at 3, got %d", len(acts))
	}
}

func TestSuspiciousDetectorFailedLogins(t *testing.T) {
	rt, _, _, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()

	failures := NewIPFailureCounter(rt, FailureConfig{Window: time.Hour, FailOpen: true})
	d := NewSuspiciousDetector(rt, SuspiciousConfig{
		BlockThreshold:       5,
		Window:               time.Hour,
		FailedLoginThreshold: 10,
	}, nil, failures, nil)

	sig := Signal{IP: "10.0.0.7", UserAgent: "Mozilla/5.0"}
	for i := 0; i < 10; i++ {
		if _, err := failures.RecordFailure(ctx, "10.0.0.7"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if f, _ := d.Inspect(ctx, sig); f.Suspicious {
		t.Fatal("10 failures must not trip the > 10 rule")
	}

	if _, err := failures.RecordFailure(ctx, "10.0.0.7"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	f, err := d.Inspect(ctx, sig)
	if err != nil || !f.Suspicious || f.Reasons[0] != ReasonFailedLogins {
		t.Fatalf("expected failed-login detection, got %+v err=%v", f, err)
	}
}

func TestIPFailuresCountTrailingWindow(t *testing.T) {
	rt, _, clock, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	failures := NewIPFailureCounter(rt, FailureConfig{Window: time.Hour, FailOpen: true})

	record := func(n int) int {
		t.Helper()
		var got int
		for i := 0; i < n; i++ {
			c, err := failures.RecordFailure(ctx, "10.0.0.8")
			if err != nil {
				t.Fatalf("record failure: %v", err)
			}
			got = c
		}
		return got
	}

	record(6)
	clock.Advance(59 * time.Minute)
	if got := record(6); got != 12 {
		t.Fatalf("expected 12 failures inside the hour, got %d", got)
	}

	// The first burst ages out; the second is still within the last hour even
	// though a fixed window would have reset here.
	clock.Advance(2 * time.Minute)
	if got, err := failures.Count(ctx, "10.0.0.8"); err != nil || got != 6 {
		t.Fatalf("expected 6 trailing failures, got %d err=%v", got, err)
	}
	if got := record(5); got != 11 {
		t.Fatalf("expected 11 failures in the trailing hour, got %d", got)
	}

	clock.Advance(time.Hour)
	if got, _ := failures.Count(ctx, "10.0.0.8"); got != 0 {
		t.Fatalf("expected failures to expire, got %d", got)
	}

	if got := record(maxTrackedFailures + 10); got != maxTrackedFailures {
		t.Fatalf("expected count capped at %d, got %d", maxTrackedFailures, got)
	}
}

func TestResetLimiter(t *testing.T) {
	rt, _, clock, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	l := NewResetLimiter(rt, ResetConfig{MaxRequests: 3, Window: time.Hour, FailOpen: true})

	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, "u1"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "u1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on fourth request, got %v", err)
	}
	if err := l.Allow(ctx, "u2"); err != nil {
		t.Fatalf("other users unaffected: %v", err)
	}

	clock.Advance(time.Hour + time.Second)
	if err := l.Allow(ctx, "u1"); err != nil {
		t.Fatalf("expected new window, got %v", err)
	}
}

func TestFailOpenAndFailClosed(t *testing.T) {
	rt, mr, _, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	mr.SetError("store down")

	open := NewIPThrottle(rt, ThrottleConfig{MaxRequests: 1, Window: time.Minute, FailOpen: true})
	d, err := open.Check(ctx, "10.0.0.1")
	if err != nil || d.Limited {
		t.Fatalf("fail-open throttle: expected not limited, got %+v err=%v", d, err)
	}

	closed := NewLoginLimiter(rt, LoginConfig{MaxAttempts: 5, Window: time.Minute, LockoutDuration: time.Minute})
	if err := closed.Check(ctx, "a@x.com"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("fail-closed login limiter: expected ErrStoreUnavailable, got %v", err)
	}

	blocker := NewIPBlocker(rt, BlockConfig{Duration: time.Hour, FailOpen: true})
	if blocked, err := blocker.IsBlocked(ctx, "10.0.0.1"); err != nil || blocked {
		t.Fatalf("fail-open blocker: got blocked=%v err=%v", blocked, err)
	}
	if err := blocker.Block(ctx, "10.0.0.1", "x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("block writes always surface errors, got %v", err)
	}
}

func TestMalformedRecordFailsOpen(t *testing.T) {
	rt, mr, _, done := newLimiterTest(t)
	defer done()

	if err := mr.Set("ip_rate_limit:10.0.0.1", "not-json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	th := NewIPThrottle(rt, ThrottleConfig{MaxRequests: 1, Window: time.Minute, FailOpen: true})
	if d, err := th.Check(context.Background(), "10.0.0.1"); err != nil || d.Limited {
		t.Fatalf("expected fail-open on malformed record, got %+v err=%v", d, err)
	}
}
