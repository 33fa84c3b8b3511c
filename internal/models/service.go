package models

import (
	"time"

	"github.com/google/uuid"
)

// Service represents an offering from the agency's catalogue.
type Service struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	// Populated for the detail endpoint
	Plans []Plan `json:"plans,omitempty"`
}

// Plan represents a priced tier of a service.
type Plan struct {
	ID         uuid.UUID `json:"id"`
	ServiceID  uuid.UUID `json:"service_id"`
	Name       string    `json:"name"`
	AmountKobo int64     `json:"amount_kobo"`
	Currency   string    `json:"currency"`
	Features   []string  `json:"features,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
