package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/ims-service/internal/config"
	"github.com/spec-kit/ims-service/internal/observability"
)

// multipartOverhead leaves room for form fields and part headers around the avatar.
const multipartOverhead = 1 << 20

// NewServer builds the fiber app with the shared middleware stack. Routes are added
// separately with RegisterRoutes. Immutable is set because form values reach the
// in-memory store and metric labels, both of which outlive the request.
func NewServer(cfg config.Config, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		Immutable:             true,
		BodyLimit:             cfg.Upload.MaxBytes + multipartOverhead,
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(requestid.New())
	app.Use(cors.New())
	RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	return app
}
