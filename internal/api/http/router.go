package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ims-service/internal/api/http/handlers"
	"github.com/spec-kit/ims-service/internal/auth"
	"github.com/spec-kit/ims-service/internal/config"
	"github.com/spec-kit/ims-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Registration   *handlers.RegistrationHandler
	Roles          *handlers.RolesHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	RateLimit      config.RateLimitConfig
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Get("/roles", cfg.Roles.ListRoles)
	api.Get("/classes", cfg.Roles.ListClasses)

	// Credential-bearing routes share one per-IP budget.
	limited := RateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", limited, cfg.Auth.Login)
	authGroup.Get("/session", cfg.AuthMiddleware.Handle, cfg.Auth.Session)

	api.Post("/students/register", limited, cfg.Registration.RegisterStudent)
	api.Post("/staff/register", limited, cfg.Registration.RegisterStaff)
}
