package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/seedbuilders/agency-portal-api/internal/db"
	"github.com/seedbuilders/agency-portal-api/internal/models"
)

// Store is the persistence backend the websocket hub writes through. It
// satisfies ws.MessageStore.
type Store struct{}

// NewStore creates the pgx-backed message store.
func NewStore() *Store {
	return &Store{}
}

// CanAccess reports whether a user may join the conversation bound to a
// service request. Admins may join any room; clients only their own.
func (st *Store) CanAccess(ctx context.Context, serviceRequestID, userID uuid.UUID, role string) (bool, error) {
	if role == models.RoleAdmin {
		var exists bool
		err := db.Pool.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM service_requests WHERE id = $1)
		`, serviceRequestID).Scan(&exists)
		return exists, err
	}

	var exists bool
	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM service_requests WHERE id = $1 AND user_id = $2)
	`, serviceRequestID, userID).Scan(&exists)
	return exists, err
}

// SaveMessage persists a message against the conversation bound to the
// service request and refreshes the conversation's trailing summary. The
// returned message is the broadcast payload, sender name included.
func (st *Store) SaveMessage(ctx context.Context, serviceRequestID, senderID uuid.UUID, text, clientRef string) (*models.Message, error) {
	var conversationID uuid.UUID
	err := db.Pool.QueryRow(ctx, `
		SELECT id FROM conversations WHERE service_request_id = $1
	`, serviceRequestID).Scan(&conversationID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no conversation for service request %s", serviceRequestID)
		}
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	var senderName string
	err = db.Pool.QueryRow(ctx, `
		SELECT full_name FROM users WHERE id = $1
	`, senderID).Scan(&senderName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up sender: %w", err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	messageID := uuid.New()
	now := time.Now()

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, service_request_id, sender_id, text, client_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`, messageID, conversationID, serviceRequestID, senderID, text, clientRef, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE conversations
		SET last_message_text = $1, last_message_time = $2, updated_at = $2
		WHERE id = $3
	`, text, now, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation summary: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.Message{
		ID:             messageID,
		Text:           text,
		SenderID:       senderID,
		SenderName:     senderName,
		CreatedAt:      now,
		ConversationID: conversationID,
		Conversation:   models.ConversationRef{ServiceRequestID: serviceRequestID},
		ClientRef:      clientRef,
	}, nil
}
