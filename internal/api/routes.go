// Package api assembles the HTTP surface: public routes (/, /health, /metrics,
// /auth/*) and JWT-protected routes (/search, /image, /dashboard, /admin/*).
package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/explorer/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/explorer/internal/api/middleware"
	domainaudit "github.com/matiasleandrokruk/explorer/internal/domain/audit"
	domainauth "github.com/matiasleandrokruk/explorer/internal/domain/auth"
	"github.com/matiasleandrokruk/explorer/internal/domain/explore"
	"github.com/matiasleandrokruk/explorer/internal/domain/history"
	"github.com/matiasleandrokruk/explorer/internal/infra/logging"
	"github.com/matiasleandrokruk/explorer/internal/infra/metrics"
	"github.com/matiasleandrokruk/explorer/internal/infra/sqlite"
	pkgauth "github.com/matiasleandrokruk/explorer/pkg/auth"
)

// Deps are the collaborators the router needs. Server builds them once per process.
type Deps struct {
	DB       *sql.DB
	Issuer   *pkgauth.Issuer
	Auth     domainauth.AuthService
	History  *history.Service
	Audit    *domainaudit.AuditService
	Explorer *explore.Service
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	Version        string
	AllowedOrigins []string
}

// NewRouter creates and configures the chi router with all routes.
func NewRouter(d Deps) *chi.Mux {
	logger := logging.OrNop(d.Logger)
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apmiddleware.RequestLogger(logger.Named("http"), d.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// ===== PUBLIC ROUTES (no auth required) =====

	health := handlers.NewHealthHandler(d.Version, d.Explorer.Mode().String(), func(ctx context.Context) bool {
		return sqlite.Healthy(ctx, d.DB)
	})
	r.Get("/", health.Root)
	r.Get("/health", health.Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	requireAuth := apmiddleware.AuthMiddleware(d.Issuer, d.Auth)
	authHandler := handlers.NewAuthHandler(d.Auth, logger)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(requireAuth).Get("/profile", authHandler.Profile)
	})

	// ===== PROTECTED ROUTES (JWT required, every request audited) =====

	exploreHandler := handlers.NewExploreHandler(d.Explorer, d.History, logger)
	dashboardHandler := handlers.NewDashboardHandler(d.History, d.Auth, logger)
	adminHandler := handlers.NewAdminHandler(d.History, d.Audit, logger)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(apmiddleware.AuditMiddleware(d.Audit))

		r.Post("/search", exploreHandler.Search)
		r.Post("/image", exploreHandler.GenerateImage)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", dashboardHandler.Get)
			r.Delete("/search/{id}", dashboardHandler.DeleteSearch)
			r.Delete("/image/{id}", dashboardHandler.DeleteImage)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(apmiddleware.RequireAdmin)
			r.Get("/users", adminHandler.ListUsers)
			r.Get("/stats", adminHandler.Stats)
			r.Get("/audit", adminHandler.Audit)
		})
	})

	return r
}
