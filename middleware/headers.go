package middleware

import (
	"net/http"
	"strconv"

	goGuard "github.com/MrEthical07/goGuard"
)

// SecureHeaders sets the hardening response headers derived from
// Config.Security before calling next.
func SecureHeaders(engine *goGuard.Engine) func(http.Handler) http.Handler {
	cfg := engine.Config().Security
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			setSecureHeaders(w.Header(), cfg)
			next.ServeHTTP(w, r)
		})
	}
}

func setSecureHeaders(h http.Header, cfg goGuard.SecurityConfig) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	if cfg.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
	}
	if cfg.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", cfg.ReferrerPolicy)
	}
	if cfg.ProductionMode && cfg.HSTSMaxAge > 0 {
		h.Set("Strict-Transport-Security",
			"max-age="+strconv.FormatInt(int64(cfg.HSTSMaxAge.Seconds()), 10)+"; includeSubDomains")
	}
}
