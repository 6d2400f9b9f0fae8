package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/internal/record"
	"github.com/MrEthical07/goGuard/kv"
)

var (
	// ErrRecordNotFound is returned when a refresh record is absent or expired.
	ErrRecordNotFound = errors.New("session: refresh record not found")
	// ErrStoreUnavailable wraps key-value failures.
	ErrStoreUnavailable = errors.New("session: store unavailable")
	// ErrMalformedRecord is returned when a stored record cannot be decoded.
	ErrMalformedRecord = record.ErrMalformed
)

const keyPrefix = "refresh_token:"

// Store persists refresh records in a kv.Store.
type Store struct {
	kv kv.Store
}

// NewStore wraps backend.
func NewStore(backend kv.Store) *Store {
	return &Store{kv: backend}
}

// RecordKey returns the storage key of one session.
func RecordKey(userID, sessionID string) string {
	return userPrefix(userID) + sessionID
}

func userPrefix(userID string) string {
	return keyPrefix + userID + ":"
}

// Save writes rec under rec.RecordKey with ttl.
func (s *Store) Save(ctx context.Context, rec *RefreshRecord, ttl time.Duration) error {
	blob, err := record.Encode(record.KindRefresh, rec)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, rec.RecordKey, blob, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get loads the record stored at key.
func (s *Store) Get(ctx context.Context, key string) (*RefreshRecord, error) {
	blob, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var rec RefreshRecord
	if err := record.Decode(blob, record.KindRefresh, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the record at key. Missing records are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every refresh record of userID and returns how
// many keys were targeted.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	keys, err := s.kv.Keys(ctx, userPrefix(userID))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return len(keys), nil
}

// CountForUser returns the number of live sessions of userID.
func (s *Store) CountForUser(ctx context.Context, userID string) (int, error) {
	keys, err := s.kv.Keys(ctx, userPrefix(userID))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return len(keys), nil
}
