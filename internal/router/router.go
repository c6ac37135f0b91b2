package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grader-api/internal/config"
	"github.com/noah-isme/gema-grader-api/internal/handler"
	"github.com/noah-isme/gema-grader-api/internal/middleware"
	"github.com/noah-isme/gema-grader-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	SubmissionHandler *handler.SubmissionHandler
	PaperHandler      *handler.PaperHandler
	DocumentHandler   *handler.DocumentHandler
	JWTMiddleware     fiber.Handler
	// GradingLimiter wraps every route that runs the grading pipeline.
	GradingLimiter fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	var pipeline []fiber.Handler
	if deps.GradingLimiter != nil {
		pipeline = append(pipeline, deps.GradingLimiter)
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(api.Group("/assignments", jwtMiddleware), pipeline...)
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware), pipeline...)
	}

	if deps.PaperHandler != nil {
		papers := api.Group("/papers", jwtMiddleware, middleware.RequireRole(middleware.RoleFaculty))
		deps.PaperHandler.Register(papers, pipeline...)
	}

	if deps.DocumentHandler != nil {
		deps.DocumentHandler.Register(api.Group("/documents", jwtMiddleware))
	}
}
