package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned for tokens that are not three
	// dot-separated base64url segments or do not decode.
	ErrMalformedToken = errors.New("jwt: malformed token")
	// ErrInvalidSignature is returned on HMAC mismatch or an unexpected alg.
	ErrInvalidSignature = errors.New("jwt: invalid signature")
	// ErrExpired is returned once the token's exp has passed.
	ErrExpired = errors.New("jwt: token expired")
	// ErrWrongTokenType is returned when an access token is presented where a
	// refresh token is expected, or the reverse.
	ErrWrongTokenType = errors.New("jwt: wrong token type")
	// ErrInvalidClaims covers every other claim failure (nbf, iss, missing exp).
	ErrInvalidClaims = errors.New("jwt: invalid claims")
)

const minSecretBytes = 32

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Identity is the subject data carried in every token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// Claims is the token payload. Refresh tokens also carry a jti naming their
// session record.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   Kind   `json:"type"`
	jwt.RegisteredClaims
}

// Identity returns the subject fields of c.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

// Config holds the signing secrets and lifetimes.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
	// Now overrides the wall clock for issuance and expiry checks.
	Now func() time.Time
}

// Manager creates and parses tokens of both kinds.
type Manager struct {
	config Config
}

// NewManager validates cfg. The two secrets must be at least 32 bytes and
// must differ.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.AccessSecret) < minSecretBytes || len(cfg.RefreshSecret) < minSecretBytes {
		return nil, fmt.Errorf("hs256 secrets must be at least %d bytes", minSecretBytes)
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg}, nil
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.config.Now()
}

// AccessTTL returns the access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// CreateAccess signs a short-lived access token for id.
func (m *Manager) CreateAccess(id Identity) (string, error) {
	now := m.config.Now()
	claims := m.claims(id, KindAccess, now, m.config.AccessTTL)
	return m.Sign(claims, m.config.AccessSecret)
}

// CreateRefresh signs a refresh token issued at issuedAt whose jti names the
// session record.
func (m *Manager) CreateRefresh(id Identity, issuedAt time.Time, sessionID string) (string, error) {
	claims := m.claims(id, KindRefresh, issuedAt, m.config.RefreshTTL)
	claims.ID = sessionID
	return m.Sign(claims, m.config.RefreshSecret)
}

func (m *Manager) claims(id Identity, kind Kind, now time.Time, ttl time.Duration) *Claims {
	return &Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		Type:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// Sign encodes claims as an HS256 token under secret.
func (m *Manager) Sign(claims *Claims, secret []byte) (string, error) {
	if claims == nil {
		return "", errors.New("nil claims")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify checks structure, signature and expiry of token under secret and
// returns its claims. It does not check the token kind.
//
// A token is valid strictly before its exp instant (plus Config.Leeway);
// at exp itself Verify already reports ErrExpired.
func (m *Manager) Verify(token string, secret []byte) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformedToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// ParseAccess verifies token with the access secret and requires
// type == access.
func (m *Manager) ParseAccess(token string) (*Claims, error) {
	return m.parseKind(token, m.config.AccessSecret, KindAccess)
}

// ParseRefresh verifies token with the refresh secret and requires
// type == refresh.
func (m *Manager) ParseRefresh(token string) (*Claims, error) {
	return m.parseKind(token, m.config.RefreshSecret, KindRefresh)
}

func (m *Manager) parseKind(token string, secret []byte, kind Kind) (*Claims, error) {
	claims, err := m.Verify(token, secret)
	if err != nil {
		return nil, err
	}
	if claims.Type != kind {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
}
