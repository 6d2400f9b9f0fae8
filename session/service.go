package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goGuard/internal"
	"github.com/MrEthical07/goGuard/jwt"
)

// ErrInvalidSubject is returned by Issue for an empty user ID or one that
// contains the key separator.
var ErrInvalidSubject = errors.New("session: invalid subject")

// Service issues, refreshes and revokes token pairs.
type Service struct {
	store  *Store
	tokens *jwt.Manager
}

// NewService wires store and tokens.
func NewService(store *Store, tokens *jwt.Manager) *Service {
	return &Service{store: store, tokens: tokens}
}

// Store returns the underlying record store.
func (s *Service) Store() *Store {
	return s.store
}

// Issue signs an access and a refresh token for id and writes the refresh
// record with a TTL equal to the refresh lifetime.
func (s *Service) Issue(ctx context.Context, id jwt.Identity) (*TokenPair, error) {
	if id.UserID == "" || strings.Contains(id.UserID, ":") {
		return nil, ErrInvalidSubject
	}

	now := s.tokens.Now()
	sessionID, err := newSessionID(now)
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.CreateAccess(id)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.CreateRefresh(id, now, sessionID)
	if err != nil {
		return nil, err
	}

	rec := &RefreshRecord{
		UserID:    id.UserID,
		Email:     id.Email,
		Role:      id.Role,
		RecordKey: RecordKey(id.UserID, sessionID),
		IssuedAt:  now.UnixMilli(),
	}
	if err := s.store.Save(ctx, rec, s.tokens.RefreshTTL()); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(s.tokens.AccessTTL()),
		RefreshExpiresAt: now.Add(s.tokens.RefreshTTL()),
	}, nil
}

// newSessionID is the issue time in milliseconds plus a random tail, so two
// sessions opened in the same millisecond get distinct records.
func newSessionID(now time.Time) (string, error) {
	tail, err := internal.RandomToken(6)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + tail, nil
}

// VerifyAccess validates an access token. It never touches the store.
func (s *Service) VerifyAccess(token string) (*jwt.Claims, error) {
	return s.tokens.ParseAccess(token)
}

// Refresh validates refreshToken, confirms its record still exists and
// returns a new access token. The record is left untouched.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, rec, err := s.lookup(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if rec.UserID != claims.UserID {
		return "", ErrRecordNotFound
	}

	return s.tokens.CreateAccess(jwt.Identity{UserID: rec.UserID, Email: rec.Email, Role: rec.Role})
}

// Revoke deletes every refresh record of userID.
func (s *Service) Revoke(ctx context.Context, userID string) (int, error) {
	return s.store.DeleteAllForUser(ctx, userID)
}

// RevokeToken deletes the single record refreshToken points to. The token
// must still verify.
func (s *Service) RevokeToken(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return ErrRecordNotFound
	}
	return s.store.Delete(ctx, RecordKey(claims.UserID, claims.ID))
}

func (s *Service) lookup(ctx context.Context, refreshToken string) (*jwt.Claims, *RefreshRecord, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	if claims.ID == "" {
		return nil, nil, ErrRecordNotFound
	}

	rec, err := s.store.Get(ctx, RecordKey(claims.UserID, claims.ID))
	if err != nil {
		return nil, nil, err
	}
	return claims, rec, nil
}
