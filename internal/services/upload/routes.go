package upload

import (
	"github.com/gofiber/fiber/v3"
	"github.com/seedbuilders/agency-portal-api/internal/middleware"
)

// SetupRoutes registers the upload routes.
func (s *UploadService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	protected.Get("/upload/params", s.GenerateUploadParams)
}
