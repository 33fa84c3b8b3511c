package invoice

import (
	"github.com/gofiber/fiber/v3"
	"github.com/seedbuilders/agency-portal-api/internal/middleware"
)

// SetupRoutes registers the invoice routes.
func (s *InvoiceService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/invoices")
	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetInvoices)
	api.Post("/:id/pay", s.InitiatePayment)
	api.Get("/:id/verify", s.VerifyPayment)

	// Only the back-office raises invoices
	admin := app.Group("/api/admin/invoices")
	admin.Use(middleware.AuthMiddleware(s.jwtService))
	admin.Use(middleware.RequireAdmin())

	admin.Post("/", s.CreateInvoice)
}
