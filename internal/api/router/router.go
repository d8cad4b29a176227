package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/venuepulse/venuepulse/internal/api/handlers"
	"github.com/venuepulse/venuepulse/internal/api/middleware"
	"github.com/venuepulse/venuepulse/internal/config"
	"github.com/venuepulse/venuepulse/internal/domain/entitlement"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
	"github.com/venuepulse/venuepulse/internal/pkg/metrics"
)

type Handlers struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Entitlement *handlers.EntitlementHandler
}

// New assembles the HTTP surface. The guarded group is the only place
// paid-feature routes may be registered; everything inside it sees a
// resolved entitlement decision in the request context.
func New(cfg *config.Config, log *logger.Logger, svc entitlement.Service, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	r.Use(middleware.RateLimit(100, 200)) // 100 req/sec, burst of 200
	r.Use(metrics.Middleware)

	guard := middleware.GuardConfig{
		SignInURL:  cfg.Entitlement.SignInURL,
		BillingURL: cfg.Entitlement.BillingURL,
	}

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/swagger/*", httpSwagger.WrapHandler)

		r.Handle("/metrics", metrics.Handler())
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)

		r.Post("/api/v1/auth/register", h.Auth.Register)
		r.Post("/api/v1/auth/login", h.Auth.Login)
		r.Post("/api/v1/auth/refresh", h.Auth.RefreshToken)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))

		r.Get("/api/v1/auth/me", h.Auth.Me)
		r.Post("/api/v1/auth/logout", h.Auth.Logout)

		// Entitlement status is readable even when access is denied so
		// that banners and billing pages can explain why.
		r.Route("/api/v1/entitlement", func(r chi.Router) {
			r.Get("/", h.Entitlement.Get)
			r.Get("/trial", h.Entitlement.Trial)
		})

		r.Post("/api/v1/admin/impersonate", h.Entitlement.Impersonate)

		// Guarded routes (require an allowed entitlement decision)
		r.Group(func(r chi.Router) {
			r.Use(middleware.EntitlementGuard(svc, guard, log))

			r.Get("/api/v1/dashboard", handlers.Dashboard)
		})
	})

	return r
}
