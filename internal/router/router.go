package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/labelgrid/labelgrid-api/internal/config"
	"github.com/labelgrid/labelgrid-api/internal/handler"
	"github.com/labelgrid/labelgrid-api/internal/middleware"
	"github.com/labelgrid/labelgrid-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AdminDashboardHandler *handler.AdminDashboardHandler
	AdminFeedHandler      *handler.AdminFeedHandler
	AdminMediaHandler     *handler.AdminMediaHandler
	AnnotationHandler     *handler.AnnotationHandler
	WorkflowHandler       *handler.WorkflowHandler
	TrainingHandler       *handler.TrainingHandler
	JWTMiddleware         fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Admin API: key-gated, raw response shapes.
	admin := app.Group("/admin/api", middleware.APIKey(cfg.AdminAPIKey, cfg.Debug))
	if deps.AdminDashboardHandler != nil {
		deps.AdminDashboardHandler.Register(admin)
	}
	if deps.AdminFeedHandler != nil {
		deps.AdminFeedHandler.Register(admin)
	}
	if deps.AdminMediaHandler != nil {
		deps.AdminMediaHandler.Register(admin)
	}

	// Annotator API: JWT-gated, enveloped responses.
	annotator := app.Group("/api/v1", jwtMiddleware)
	if deps.WorkflowHandler != nil {
		deps.WorkflowHandler.Register(annotator)
	}
	if deps.TrainingHandler != nil {
		deps.TrainingHandler.Register(annotator)
	}
	if deps.AnnotationHandler != nil {
		writes := annotator.Group("", middleware.RateLimit("annotations", 30, time.Minute))
		deps.AnnotationHandler.Register(writes)
	}
}
