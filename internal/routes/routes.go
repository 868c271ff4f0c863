package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/tenantauth/internal/auth"
	"github.com/BradenHooton/tenantauth/internal/handlers"
	middlewareCustom "github.com/BradenHooton/tenantauth/internal/middleware"
	"github.com/BradenHooton/tenantauth/internal/repositories"
	"github.com/BradenHooton/tenantauth/internal/tenant"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds the router settings taken from server configuration.
type Config struct {
	Env                string
	APIPrefix          string
	AllowedOrigins     []string
	RateLimitPerMinute int
	AdminToken         string
	RequestTimeout     time.Duration
}

// Dependencies are the collaborators the router wires together.
type Dependencies struct {
	Logger          *slog.Logger
	Resolver        *tenant.Resolver
	Registry        *tenant.Registry[repositories.UserRepository]
	TokenManager    *auth.TokenManager
	AuthHandler     *handlers.AuthHandler
	UserHandler     *handlers.UserHandler
	InternalHandler *handlers.InternalHandler
	HealthHandler   *handlers.HealthHandler
}

// NewRouter builds the HTTP handler with the global middleware stack and
// every route mounted under cfg.APIPrefix.
func NewRouter(cfg Config, deps Dependencies) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(tenant.Middleware(deps.Resolver, deps.Registry, deps.Logger))
	router.Use(middlewareCustom.SecureLogger(deps.Logger, cfg.Env))
	router.Use(middleware.Recoverer)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.AllowedOrigins)))
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	if cfg.APIPrefix == "" {
		RegisterRoutes(router, cfg, deps)
	} else {
		router.Route(cfg.APIPrefix, func(r chi.Router) {
			RegisterRoutes(r, cfg, deps)
		})
	}

	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, cfg Config, deps Dependencies) {
	rateLimitConfig := middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.RateLimitPerMinute}

	router.Get("/health", deps.HealthHandler.Health)

	router.Route("/auth", func(r chi.Router) {
		// Public routes, each with its own per-IP budget
		r.With(middlewareCustom.RateLimitByIP(rateLimitConfig)).Post("/register", deps.AuthHandler.Register)
		r.With(middlewareCustom.RateLimitByIP(rateLimitConfig)).Post("/login", deps.AuthHandler.Login)
		r.With(middlewareCustom.RateLimitByIP(rateLimitConfig)).Post("/reset-password", deps.AuthHandler.ResetPassword)
		r.Post("/authorize", deps.AuthHandler.Authorize)

		// Protected routes - authentication required
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(deps.TokenManager))
			r.Post("/change-password", deps.AuthHandler.ChangePassword)
			r.Get("/me", deps.AuthHandler.Me)
		})
	})

	router.Get("/users", deps.UserHandler.ListUsers)

	// Migration endpoints for the identity provider
	router.Route("/internal", func(r chi.Router) {
		r.Use(auth.AdminTokenMiddleware(cfg.AdminToken, deps.Logger))
		r.Post("/password-check", deps.InternalHandler.PasswordCheck)
		r.Post("/mark-user-migrated", deps.InternalHandler.MarkUserMigrated)
		r.Post("/lookup-email", deps.InternalHandler.LookupEmail)
		r.Post("/forgot-password", deps.InternalHandler.ForgotPassword)
	})
}
