package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	goGuard "github.com/MrEthical07/goGuard"
)

// Pipeline applies the hardening headers to every response, rejected ones
// included, then runs Engine.GuardRequest. Blocked clients get 403, throttled ones 429 with a
// Retry-After header. A request that triggers an automatic block is still
// served; the block applies from the next request on.
//
// The client IP and User-Agent are attached to the request context for
// later login and audit calls.
func Pipeline(engine *goGuard.Engine) func(http.Handler) http.Handler {
	cfg := engine.Config().Security
	logger := engine.Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, cfg.TrustProxyHeaders)
			ua := r.UserAgent()

			ctx := goGuard.WithClientIP(r.Context(), ip)
			ctx = goGuard.WithUserAgent(ctx, ua)

			setSecureHeaders(w.Header(), cfg)
			decision, err := engine.GuardRequest(ctx, goGuard.RequestInfo{
				IP:        ip,
				UserAgent: ua,
				Method:    r.Method,
				Path:      r.URL.Path,
			})
			if err != nil {
				if errors.Is(err, goGuard.ErrRateLimited) && decision != nil {
					w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter.Seconds()))
				}
				if StatusFor(err) >= http.StatusInternalServerError {
					logger.ErrorContext(ctx, "security pipeline failed", "ip", ip, "error", err)
				}
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func retryAfterSeconds(s float64) string {
	n := int64(math.Ceil(s))
	if n < 1 {
		n = 1
	}
	return strconv.FormatInt(n, 10)
}
