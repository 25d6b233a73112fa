package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simran251393/fraud-detection-system/internal/application"
)

// HTTPObserver records per-route request metrics.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// Options configures the optional parts of the HTTP surface.
type Options struct {
	// AdminAPIKey guards /api/admin when non-empty.
	AdminAPIKey string
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
	// Metrics receives per-request observations.
	Metrics HTTPObserver
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Handler binds the risk-auth use cases to HTTP.
type Handler struct {
	service *application.Service
	opts    Options
}

func NewHandler(service *application.Service, opts Options) *Handler {
	return &Handler{service: service, opts: opts}
}

// NewRouter registers the public, session and admin routes.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	if handler.opts.Metrics != nil {
		r.Use(metricsMiddleware(handler.opts.Metrics))
	}

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	if handler.opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", handler.opts.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.health)

		r.Post("/login/check", handler.checkLogin)
		r.Post("/login/passwordless", handler.passwordless)
		r.Post("/login/verify-otp", handler.verifyOTP)
		r.Post("/register", handler.register)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/session", handler.session)
			r.Post("/logout", handler.logout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(handler.adminMiddleware)
			r.Get("/stats", handler.adminStats)
			r.Get("/attempts", handler.adminAttempts)
			r.Post("/identities/{email}/unblock", handler.adminUnblock)
		})
	})

	return r
}
