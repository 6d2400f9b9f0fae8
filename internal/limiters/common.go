package limiters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goGuard/internal/record"
	"github.com/MrEthical07/goGuard/kv"
)

var (
	// ErrLocked is returned while an identifier is inside its lockout period.
	ErrLocked = errors.New("too many failed attempts")
	// ErrRateLimited is returned when a request budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrBlocked is returned for requests from a blocked IP.
	ErrBlocked = errors.New("ip blocked")
	// ErrStoreUnavailable wraps key-value failures on fail-closed limiters.
	ErrStoreUnavailable = errors.New("limiter store unavailable")
)

// Runtime carries the collaborators every limiter shares.
type Runtime struct {
	Store  kv.Store
	Now    func() time.Time
	Logger *slog.Logger
}

type base struct {
	name     string
	store    kv.Store
	now      func() time.Time
	logger   *slog.Logger
	failOpen bool
}

func newBase(name string, rt Runtime, failOpen bool) base {
	now := rt.Now
	if now == nil {
		now = time.Now
	}
	logger := rt.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return base{
		name:     name,
		store:    rt.Store,
		now:      now,
		logger:   logger,
		failOpen: failOpen,
	}
}

// load decodes the record at key into v. found is false for a missing key.
func (b *base) load(ctx context.Context, key string, kind record.Kind, v any) (bool, error) {
	blob, err := b.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := record.Decode(blob, kind, v); err != nil {
		return false, err
	}
	return true, nil
}

func (b *base) save(ctx context.Context, key string, kind record.Kind, v any, ttl time.Duration) error {
	blob, err := record.Encode(kind, v)
	if err != nil {
		return err
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return b.store.Set(ctx, key, blob, ttl)
}

// degrade applies the fail policy to a store error. A fail-open limiter logs
// and returns nil so the caller proceeds as "not limited".
func (b *base) degrade(ctx context.Context, op, key string, err error) error {
	if b.failOpen {
		b.logger.WarnContext(ctx, "limiter store failure, failing open",
			slog.String("limiter", b.name),
			slog.String("op", op),
			slog.String("key", key),
			slog.Any("error", err),
		)
		return nil
	}
	return fmt.Errorf("%w: %s %s: %v", ErrStoreUnavailable, b.name, op, err)
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
