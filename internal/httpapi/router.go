// Package httpapi is the JSON HTTP surface of goguard-server.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/middleware"
	"github.com/MrEthical07/goGuard/permission"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options configures NewRouter.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	// ExposeResetTokens returns reset tokens in the response body.
	ExposeResetTokens bool
}

// NewRouter wires the engine's security pipeline in front of every API
// route. /livez and /metrics bypass the pipeline.
func NewRouter(engine *goGuard.Engine, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	root := chi.NewRouter()
	root.Use(
		middleware.RequestID,
		logging(opts.Logger),
		chimw.Recoverer,
	)

	root.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		root.Handle("/metrics", opts.Metrics)
	}

	h := &handlers{engine: engine, log: opts.Logger, exposeReset: opts.ExposeResetTokens}

	root.Group(func(r chi.Router) {
		r.Use(middleware.Pipeline(engine), middleware.CSRF(engine))
		if opts.Timeout > 0 {
			r.Use(chimw.Timeout(opts.Timeout))
		}
		registerRoutes(r, engine, h)
	})
	return root
}

func registerRoutes(r chi.Router, engine *goGuard.Engine, h *handlers) {
	r.Get("/auth/csrf", h.csrfToken)
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Post("/auth/refresh", h.refresh)
	r.Post("/auth/logout", h.logout)
	r.Post("/auth/password-reset", h.requestPasswordReset)
	r.Post("/auth/password-reset/confirm", h.confirmPasswordReset)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(engine))

		r.Get("/me", h.me)
		r.Post("/me/password", h.changePassword)
		r.Post("/me/logout-all", h.logoutAll)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(engine, permission.RoleAdmin))

			r.Get("/security-report", h.securityReport)
			r.Post("/ip-blocks", h.blockIP)
			r.Get("/ip-blocks/{ip}", h.ipStatus)
			r.Delete("/ip-blocks/{ip}", h.unblockIP)
			r.Get("/ip-blocks/{ip}/activity", h.ipActivity)
			r.Get("/login-status", h.loginStatus)
			r.Delete("/login-status", h.clearLoginAttempts)
			r.With(middleware.RequirePermission(engine, "users", "manage")).
				Post("/users/{id}/roles", h.assignRole)
		})
	})
}
