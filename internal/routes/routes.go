// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"gatepay/internal/handlers"
	"gatepay/internal/middleware"
	"gatepay/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Deps are the handlers and middleware the routes are wired to.
type Deps struct {
	Auth     *middleware.AuthMiddleware
	Tokens   *handlers.AuthHandler
	Payments *handlers.PaymentHandler
	Health   *handlers.HealthHandler
	// Metrics serves the prometheus exposition. Optional.
	Metrics fiber.Handler
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, d Deps) {
	app.Get("/health", d.Health.HealthCheck)
	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics)
	}

	api := app.Group("/api")
	api.Post("/token", d.Tokens.IssueToken)

	protected := api.Group("", d.Auth.Handler)
	protected.Post("/token/revoke", d.Tokens.RevokeTokens)

	read := middleware.RequireScope(models.ScopePaymentsRead)
	write := middleware.RequireScope(models.ScopePaymentsWrite)

	protected.Get("/gateways", read, d.Payments.ListGateways)
	setupGatewayRoutes(protected.Group("/gateways/:gateway"), d.Payments, read, write)
}

func setupGatewayRoutes(gw fiber.Router, h *handlers.PaymentHandler, read, write fiber.Handler) {
	gw.Get("/capabilities", read, h.Capabilities)
	gw.Get("/journal", read, h.Journal)

	instruments := gw.Group("/instruments")
	instruments.Get("/:id", read, h.GetInstrument)
	instruments.Delete("/:id", write, h.DeleteInstrument)
	instruments.Post("/:id/authorize", write, h.Authorize)
	instruments.Post("/:id/purchase", write, h.Purchase)
	instruments.Post("/:id/credit", write, h.Credit)
	instruments.Post("/:id/retain", write, h.RetainInstrument)

	operations := gw.Group("/operations")
	operations.Get("/:id", read, h.GetOperation)
	operations.Get("/:id/instrument", read, h.GetOperationInstrument)
	operations.Post("/:id/capture", write, h.Capture)
	operations.Post("/:id/refund", write, h.Refund)
	operations.Post("/:id/void", write, h.Void)

	submissions := gw.Group("/submissions")
	submissions.Post("/", write, h.PrepareSubmission)
	submissions.Post("/confirm", write, h.ConfirmSubmission)
}
