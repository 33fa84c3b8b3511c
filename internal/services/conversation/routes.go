package conversation

import (
	"github.com/gofiber/fiber/v3"
	"github.com/seedbuilders/agency-portal-api/internal/middleware"
)

// SetupRoutes registers the conversation routes.
func (s *ConversationService) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/conversations")
	api.Use(middleware.AuthMiddleware(s.jwtService))

	api.Get("/", s.GetConversations)
	api.Get("/:serviceRequestID/messages", s.GetMessages)
	api.Get("/:serviceRequestID/presence", s.GetPresence)

	// Admin back-office sees every conversation
	admin := app.Group("/api/admin/conversations")
	admin.Use(middleware.AuthMiddleware(s.jwtService))
	admin.Use(middleware.RequireAdmin())

	admin.Get("/", s.GetAllConversations)
}
