package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps every backend transport failure.
	ErrUnavailable = errors.New("kv: store unavailable")
)

// Store is the key-value collaborator used by limiters, stores and the
// token service. A zero ttl means "no expiry".
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Take atomically reads and deletes key.
	Take(ctx context.Context, key string) ([]byte, error)
	// Keys lists every live key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
