package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation represents the chat thread bound 1:1 to a service request.
// Its status mirrors the status of the underlying request.
type Conversation struct {
	ID               uuid.UUID  `json:"id"`
	ServiceRequestID uuid.UUID  `json:"service_request_id"`
	ServiceTitle     string     `json:"service_title"`
	Status           string     `json:"status"`
	LastMessageText  string     `json:"last_message_text,omitempty"`
	LastMessageTime  *time.Time `json:"last_message_time,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`

	// Most recent message only; the listing endpoint never returns more.
	LastMessage *Message `json:"last_message,omitempty"`
}

// ConversationRef is the nested conversation object carried on every
// broadcast message so receivers can route it to the right room.
type ConversationRef struct {
	ServiceRequestID uuid.UUID `json:"service_request_id"`
}

// Message represents a single chat message.
//
// ClientRef is the sender-generated correlation id: it is echoed back on
// both the broadcast and the ack so the sending client can reconcile its
// optimistic copy instead of appending a duplicate.
type Message struct {
	ID             uuid.UUID       `json:"id"`
	Text           string          `json:"text"`
	SenderID       uuid.UUID       `json:"sender_id"`
	SenderName     string          `json:"sender"`
	CreatedAt      time.Time       `json:"created_at"`
	ConversationID uuid.UUID       `json:"conversation_id"`
	Conversation   ConversationRef `json:"conversation"`
	ClientRef      string          `json:"client_ref,omitempty"`
}
