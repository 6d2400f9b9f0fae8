package middleware

import (
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
)

// RequirePermission allows the request when the authenticated user may
// perform action on resource. It must run after RequireAuth; without an
// identity it answers 401.
func RequirePermission(engine *goGuard.Engine, resource, action string) func(http.Handler) http.Handler {
	return authorize(engine, func(r *http.Request, id *goGuard.Identity) bool {
		return engine.Can(r.Context(), id.UserID, resource, action)
	})
}

// RequireRole allows users whose highest role ranks at or above minRole.
func RequireRole(engine *goGuard.Engine, minRole string) func(http.Handler) http.Handler {
	return authorize(engine, func(r *http.Request, id *goGuard.Identity) bool {
		return engine.HasMinimumRole(r.Context(), id.UserID, minRole)
	})
}

func authorize(engine *goGuard.Engine, allowed func(*http.Request, *goGuard.Identity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := goGuard.IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, goGuard.ErrUnauthorized)
				return
			}
			if engine == nil || !allowed(r, id) {
				WriteError(w, goGuard.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
