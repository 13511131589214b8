package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Routes
// ============================================================

// SetupRoutes регистрирует health-check, документацию и API отчетов.
func SetupRoutes(app *fiber.App, reports *ReportHandler, deps ...Pinger) {
	app.Get("/health/live", LivenessProbe)
	app.Get("/health/ready", ReadinessProbe(deps...))

	app.Get("/docs", SwaggerUI)
	app.Get("/docs/openapi.yaml", OpenAPISpec)

	api := app.Group("/api/v1")
	api.Post("/reports", reports.Generate)
	api.Get("/reports", reports.List)
	api.Get("/reports/:id", reports.Get)
}
