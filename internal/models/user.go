package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles recognised by the portal.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// User represents a portal account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
