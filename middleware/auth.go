package middleware

import (
	"net/http"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
)

// RequireAuth verifies the bearer access token and attaches the identity to
// the request context. Missing or invalid tokens get 401.
func RequireAuth(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, goGuard.ErrUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, goGuard.ErrUnauthorized)
				return
			}

			id, err := engine.VerifyAccess(r.Context(), token)
			if err != nil {
				WriteError(w, goGuard.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(goGuard.WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise passes the request through untouched.
func OptionalAuth(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine != nil {
				if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
					if id, err := engine.VerifyAccess(r.Context(), token); err == nil {
						r = r.WithContext(goGuard.WithIdentity(r.Context(), id))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
