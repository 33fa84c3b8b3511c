package catalog

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the catalogue routes. The catalogue is public so
// prospective clients can browse plans before signing in.
func (s *CatalogService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/services")

	api.Get("/", s.GetServices)
	api.Get("/:id", s.GetService)
}
