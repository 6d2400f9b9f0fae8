// Package csrf implements double-submit CSRF tokens: a random value set in a
// cookie and echoed back by the client in a header or form field.
package csrf

import (
	"crypto/subtle"
	"errors"

	"github.com/MrEthical07/goGuard/internal"
)

// ErrInvalidToken is returned by middleware when the presented token does
// not match the cookie.
var ErrInvalidToken = errors.New("csrf: invalid token")

// TokenBytes is the amount of randomness in an issued token.
const TokenBytes = 32

// Default transport names.
const (
	CookieName = "csrf-token"
	HeaderName = "X-CSRF-Token"
	FormField  = "_csrf"
)

// Guard issues and verifies tokens. It keeps no server-side state.
type Guard struct{}

// NewGuard returns a Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Issue returns 32 random bytes as unpadded base64url.
func (g *Guard) Issue() (string, error) {
	return internal.RandomToken(TokenBytes)
}

// Verify reports whether presented equals the cookie value. Empty values or
// a length mismatch are rejected before the constant-time compare.
func (g *Guard) Verify(cookie, presented string) bool {
	if cookie == "" || presented == "" {
		return false
	}
	if len(cookie) != len(presented) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(presented)) == 1
}
