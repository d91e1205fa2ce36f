package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nattapong2005/codementorai/internal/config"
	"github.com/nattapong2005/codementorai/internal/handler"
	"github.com/nattapong2005/codementorai/internal/middleware"
	"github.com/nattapong2005/codementorai/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ClassroomHandler  *handler.ClassroomHandler
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	AnalysisHandler   *handler.AnalysisHandler
	HealthProbes      map[string]handler.HealthProbe
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	classrooms := api.Group("/classrooms", jwtMiddleware)
	if deps.ClassroomHandler != nil {
		deps.ClassroomHandler.Register(classrooms)
	}

	assignments := api.Group("/assignments", jwtMiddleware)
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.RegisterClassroomRoutes(classrooms)
		deps.AssignmentHandler.Register(assignments)
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		submissions.Post("", middleware.RateLimit("submit", cfg.SubmitRateLimit, window))
		deps.SubmissionHandler.Register(submissions)
		deps.SubmissionHandler.RegisterAssignmentRoutes(assignments)
	}

	if deps.AnalysisHandler != nil {
		assignments.Post("/:id/analysis", middleware.RateLimit("analyze", cfg.AnalyzeRateLimit, window))
		deps.AnalysisHandler.Register(assignments)
	}
}
