package conversation

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seedbuilders/agency-portal-api/internal/config"
	"github.com/seedbuilders/agency-portal-api/internal/db"
	"github.com/seedbuilders/agency-portal-api/internal/models"
	"github.com/seedbuilders/agency-portal-api/internal/presence"
	"github.com/seedbuilders/agency-portal-api/internal/utils"
)

// ConversationService serves conversation listings and message history.
// Live messaging goes through the websocket hub; this service is the
// request/response side of the same data.
type ConversationService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
	presence   *presence.Store
}

// NewConversationService creates a new ConversationService instance.
func NewConversationService(cfg *config.Config, presenceStore *presence.Store) *ConversationService {
	return &ConversationService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		presence:   presenceStore,
	}
}

const conversationColumns = `
	SELECT c.id, c.service_request_id, sr.title, sr.status,
	       c.last_message_text, c.last_message_time, c.created_at
	FROM conversations c
	JOIN service_requests sr ON sr.id = c.service_request_id
`

// GetConversations returns the caller's own conversations, newest activity
// first, each carrying only the trailing message summary.
func (s *ConversationService) GetConversations(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, conversationColumns+`
		WHERE sr.user_id = $1
		ORDER BY c.last_message_time DESC NULLS LAST, c.created_at DESC
	`, userUUID)
	if err != nil {
		log.Printf("Failed to query conversations: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load conversations"})
	}
	defer rows.Close()

	conversations := scanConversations(rows)

	return c.JSON(fiber.Map{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// GetAllConversations returns every conversation in the system (admin only).
func (s *ConversationService) GetAllConversations(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	rows, err := db.Pool.Query(ctx, conversationColumns+`
		ORDER BY c.last_message_time DESC NULLS LAST, c.created_at DESC
	`)
	if err != nil {
		log.Printf("Failed to query conversations: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load conversations"})
	}
	defer rows.Close()

	conversations := scanConversations(rows)

	return c.JSON(fiber.Map{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// GetMessages returns the full ordered history for one conversation,
// addressed by its service request id.
func (s *ConversationService) GetMessages(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	role, _ := c.Locals("role").(string)

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	requestUUID, err := uuid.Parse(c.Params("serviceRequestID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service request ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Access check: the request owner or an admin.
	var ownerID uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		SELECT user_id FROM service_requests WHERE id = $1
	`, requestUUID).Scan(&ownerID)

	if err != nil {
		if err == pgx.ErrNoRows {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
		}
		log.Printf("Failed to check conversation access: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check conversation access"})
	}

	if ownerID != userUUID && role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this conversation"})
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT m.id, m.text, m.sender_id, u.full_name, m.created_at,
		       m.conversation_id, m.service_request_id, m.client_ref
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.service_request_id = $1
		ORDER BY m.created_at ASC
	`, requestUUID)
	if err != nil {
		log.Printf("Failed to query messages: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load messages"})
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var clientRef *string
		if err := rows.Scan(&msg.ID, &msg.Text, &msg.SenderID, &msg.SenderName, &msg.CreatedAt,
			&msg.ConversationID, &msg.Conversation.ServiceRequestID, &clientRef); err != nil {
			log.Printf("Failed to scan message row: %v", err)
			continue
		}
		if clientRef != nil {
			msg.ClientRef = *clientRef
		}
		messages = append(messages, msg)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    len(messages),
	})
}

// GetPresence returns the ids of users currently online in a conversation.
func (s *ConversationService) GetPresence(c fiber.Ctx) error {
	requestID := c.Params("serviceRequestID")
	if _, err := uuid.Parse(requestID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid service request ID"})
	}

	if s.presence == nil {
		return c.JSON(fiber.Map{"online": []string{}, "count": 0})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	users, err := s.presence.List(ctx, requestID)
	if err != nil {
		log.Printf("Failed to query presence: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load presence"})
	}

	return c.JSON(fiber.Map{
		"online": users,
		"count":  len(users),
	})
}

// scanConversations collects conversation rows, skipping bad rows.
func scanConversations(rows pgx.Rows) []models.Conversation {
	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var lastText *string
		if err := rows.Scan(&conv.ID, &conv.ServiceRequestID, &conv.ServiceTitle, &conv.Status,
			&lastText, &conv.LastMessageTime, &conv.CreatedAt); err != nil {
			log.Printf("Failed to scan conversation row: %v", err)
			continue
		}
		if lastText != nil {
			conv.LastMessageText = *lastText
		}
		conversations = append(conversations, conv)
	}
	return conversations
}
