package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/internal"
	"github.com/MrEthical07/goGuard/internal/limiters"
	"github.com/MrEthical07/goGuard/internal/record"
	"github.com/MrEthical07/goGuard/kv"
)

var (
	// ErrResetInvalid is returned for unknown, expired or already used tokens.
	ErrResetInvalid = errors.New("reset token expired or invalid")
	// ErrResetUnavailable wraps key-value failures.
	ErrResetUnavailable = errors.New("reset store unavailable")
)

const resetTokenBytes = 32

// ResetToken is the payload stored behind a reset token.
type ResetToken struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"`
}

// ResetTokenStore issues and consumes single-use password reset tokens.
type ResetTokenStore struct {
	kv      kv.Store
	limiter *limiters.ResetLimiter
	ttl     time.Duration
	now     func() time.Time
}

// NewResetTokenStore creates a store. limiter may be nil to disable per-user
// request limits.
func NewResetTokenStore(backend kv.Store, limiter *limiters.ResetLimiter, ttl time.Duration, now func() time.Time) *ResetTokenStore {
	if now == nil {
		now = time.Now
	}
	return &ResetTokenStore{kv: backend, limiter: limiter, ttl: ttl, now: now}
}

func resetTokenKey(token string) string {
	return "reset_token:" + token
}

// Issue checks the user's request budget, then stores a fresh 32-byte token
// for ttl. It returns limiters.ErrRateLimited once the budget is spent.
func (s *ResetTokenStore) Issue(ctx context.Context, userID, email string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, userID); err != nil {
			return "", err
		}
	}

	token, err := internal.RandomToken(resetTokenBytes)
	if err != nil {
		return "", err
	}

	blob, err := record.Encode(record.KindResetToken, ResetToken{
		UserID:    userID,
		Email:     email,
		CreatedAt: s.now().UnixMilli(),
	})
	if err != nil {
		return "", err
	}
	if err := s.kv.Set(ctx, resetTokenKey(token), blob, s.ttl); err != nil {
		return "", fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	return token, nil
}

// Verify consumes token. The first successful call deletes the record; any
// later call returns ErrResetInvalid.
func (s *ResetTokenStore) Verify(ctx context.Context, token string) (*ResetToken, error) {
	if token == "" {
		return nil, ErrResetInvalid
	}

	blob, err := s.kv.Take(ctx, resetTokenKey(token))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrResetInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}

	var rec ResetToken
	if err := record.Decode(blob, record.KindResetToken, &rec); err != nil {
		return nil, ErrResetInvalid
	}
	if s.now().Sub(time.UnixMilli(rec.CreatedAt)) > s.ttl {
		return nil, ErrResetInvalid
	}
	return &rec, nil
}
