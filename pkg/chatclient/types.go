// Package chatclient implements the portal side of the realtime
// conversation channel: one long-lived connection shared across views,
// room subscriptions scoped to a conversation, an optimistic per-view
// message store with delivery tracking, and the conversation list
// aggregation used by the inbox.
package chatclient

import (
	"errors"
	"time"
)

// Roles recognised by the portal.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// Conversation status filters. FilterAll is the identity filter.
const (
	FilterAll             = "all"
	StatusActive          = "ACTIVE"
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusCompleted       = "COMPLETED"
	StatusCancelled       = "CANCELLED"
)

var (
	// ErrNoEndpoint is returned by Dial when no realtime URL is configured.
	ErrNoEndpoint = errors.New("chatclient: realtime endpoint URL is not configured")

	// ErrNotConnected is returned when an emit is attempted on a
	// connection that is not in the connected state.
	ErrNotConnected = errors.New("chatclient: connection is not established")

	// ErrEmptyMessage is returned by Send for empty or whitespace-only text.
	ErrEmptyMessage = errors.New("chatclient: message text is empty")

	// ErrNoIdentity is returned by Send when the sender is not resolved.
	ErrNoIdentity = errors.New("chatclient: sender identity is not resolved")
)

// Identity is the resolved current user a view acts as.
type Identity struct {
	UserID string
	Name   string
	Role   string
}

// ConversationRef is the nested conversation object on every broadcast
// message; it carries the routing key for room isolation.
type ConversationRef struct {
	ServiceRequestID string `json:"service_request_id"`
}

// Message is the client's projection of one chat message.
type Message struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	SenderID       string          `json:"sender_id"`
	Sender         string          `json:"sender"`
	CreatedAt      time.Time       `json:"created_at"`
	ConversationID string          `json:"conversation_id"`
	Conversation   ConversationRef `json:"conversation"`
	ClientRef      string          `json:"client_ref,omitempty"`
}

// Conversation is the client's read-only projection of a chat thread.
// Status mirrors the underlying service request.
type Conversation struct {
	ID               string     `json:"id"`
	ServiceRequestID string     `json:"service_request_id"`
	ServiceTitle     string     `json:"service_title"`
	Status           string     `json:"status"`
	LastMessageText  string     `json:"last_message_text,omitempty"`
	LastMessageTime  *time.Time `json:"last_message_time,omitempty"`
}
