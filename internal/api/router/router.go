package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/pratik-mahalle/jobtrail/internal/api/handlers"
	"github.com/pratik-mahalle/jobtrail/internal/api/middleware"
	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/metrics"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	User    *handlers.UserHandler
	Billing *handlers.BillingHandler
	Webhook *handlers.WebhookHandler
	// Premium backs the RequirePremium gate
	Premium middleware.UserLoader
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders(cfg.Server.Environment == "production"))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/swagger/*", httpSwagger.WrapHandler)
		r.Handle("/metrics", metrics.Handler())

		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)

		// Called by the payment gateway: no CORS, no auth, signature checked in the handler
		r.Post("/api/stripe/webhook", h.Webhook.Handle)
	})

	// Browser API
	r.Group(func(r chi.Router) {
		r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
		r.Use(middleware.RateLimit(20, 40))
		r.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
		r.Use(middleware.UserRateLimit(5, 20))

		r.Route("/api/v1/users", func(r chi.Router) {
			r.Post("/sync", h.User.Sync)
			r.Get("/me", h.User.Me)
		})

		r.Route("/api/v1/billing", billingRoutes(h))

		// Billing (alias for frontend compatibility)
		r.Route("/api/billing", billingRoutes(h))

		r.Route("/api/v1/premium", func(r chi.Router) {
			r.Use(middleware.RequirePremium(h.Premium))
			r.Get("/access", h.Billing.PremiumAccess)
		})
	})

	return r
}

func billingRoutes(h *Handlers) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/entitlement", h.Billing.Entitlement)
		r.Post("/checkout", h.Billing.Checkout)
		r.Post("/pwyw-intent", h.Billing.OneTimeIntent)
		r.Post("/pwyw-complete", h.Billing.OneTimeComplete)
		r.Post("/portal", h.Billing.Portal)
		r.Get("/subscription-status", h.Billing.SubscriptionStatus)
	}
}
