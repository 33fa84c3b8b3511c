package models

import (
	"time"

	"github.com/google/uuid"
)

// Service request statuses. Conversations mirror the status of the
// request they are bound to.
const (
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusActive          = "ACTIVE"
	StatusCompleted       = "COMPLETED"
	StatusCancelled       = "CANCELLED"
)

// ServiceRequest represents a client's request for an agency service.
type ServiceRequest struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	ServiceID   *uuid.UUID `json:"service_id,omitempty"`
	PlanID      *uuid.UUID `json:"plan_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Populated for API responses
	User *User `json:"user,omitempty"`
}

// ValidStatus reports whether s is a recognised service request status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPendingApproval, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TerminalStatus reports whether s admits no further transitions.
func TerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}
