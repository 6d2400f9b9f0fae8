package middleware

import (
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/csrf"
)

// CSRF enforces the double-submit cookie pattern. Safe methods pass and
// receive a token cookie when they have none; unsafe methods must present
// the cookie value in the X-CSRF-Token header or the _csrf form field.
//
// The current token is echoed in the X-CSRF-Token response header. When
// Config.Security.CSRFProtection is off the middleware is a pass-through.
func CSRF(engine *goGuard.Engine) func(http.Handler) http.Handler {
	cfg := engine.Config().Security

	return func(next http.Handler) http.Handler {
		if !cfg.CSRFProtection {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookieToken string
			if c, err := r.Cookie(csrf.CookieName); err == nil {
				cookieToken = c.Value
			}

			if isSafeMethod(r.Method) {
				if cookieToken == "" {
					tok, err := engine.IssueCSRF()
					if err != nil {
						WriteError(w, err)
						return
					}
					http.SetCookie(w, &http.Cookie{
						Name:     csrf.CookieName,
						Value:    tok,
						Path:     "/",
						HttpOnly: true,
						Secure:   cfg.ProductionMode,
						SameSite: http.SameSiteStrictMode,
					})
					cookieToken = tok
				}
				w.Header().Set(csrf.HeaderName, cookieToken)
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get(csrf.HeaderName)
			if presented == "" {
				presented = r.PostFormValue(csrf.FormField)
			}
			if !engine.VerifyCSRF(cookieToken, presented) {
				WriteError(w, goGuard.ErrInvalidCSRF)
				return
			}

			w.Header().Set(csrf.HeaderName, cookieToken)
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
