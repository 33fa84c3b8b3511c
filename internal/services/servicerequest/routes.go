package servicerequest

import (
	"github.com/gofiber/fiber/v3"
	"github.com/seedbuilders/agency-portal-api/internal/middleware"
)

// SetupRoutes registers the service request routes.
func (s *ServiceRequestService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/service-requests")
	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetServiceRequests)
	api.Post("/", s.CreateServiceRequest)
	api.Get("/:id", s.GetServiceRequest)

	// Admin back-office
	admin := app.Group("/api/admin/service-requests")
	admin.Use(middleware.AuthMiddleware(s.jwtService))
	admin.Use(middleware.RequireAdmin())

	admin.Get("/", s.GetAllServiceRequests)
	admin.Patch("/:id/status", s.UpdateStatus)
}
