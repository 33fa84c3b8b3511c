package auth

import (
	"github.com/gofiber/fiber/v3"
	"github.com/seedbuilders/agency-portal-api/internal/middleware"
)

// SetupRoutes registers the auth routes.
func (s *AuthService) SetupRoutes(app *fiber.App) {
	app.Post("/api/auth/register", s.RegisterHandler)
	app.Post("/api/auth/login", s.LoginHandler)

	// Protected routes
	protected := app.Group("/api")
	protected.Use(middleware.AuthMiddleware(s.jwtService))

	protected.Get("/profile", s.ProfileHandler)
}
