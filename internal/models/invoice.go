package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice payment statuses.
const (
	InvoicePending = "pending"
	InvoicePaid    = "paid"
	InvoiceFailed  = "failed"
)

// Invoice represents a bill raised against a service request.
type Invoice struct {
	ID               uuid.UUID  `json:"id"`
	ServiceRequestID uuid.UUID  `json:"service_request_id"`
	UserID           uuid.UUID  `json:"user_id"`
	Reference        string     `json:"reference"`
	AmountKobo       int64      `json:"amount_kobo"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	PaymentURL       string     `json:"payment_url,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}
