package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names on the realtime channel.
const (
	EventJoinRoom       = "joinRoom"
	EventLeaveRoom      = "leaveRoom"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventMessageAck     = "messageAck"
	EventError          = "error"
)

// Envelope frames every event on the wire.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendMessagePayload is what a client submits on sendMessage.
type SendMessagePayload struct {
	ServiceRequestID string `json:"service_request_id"`
	SenderID         string `json:"sender_id"`
	Text             string `json:"text"`
	ClientRef        string `json:"client_ref,omitempty"`
}

// MessageAckPayload confirms a sent message back to its sender, carrying
// the server-assigned id for the client's correlation ref.
type MessageAckPayload struct {
	ClientRef string    `json:"client_ref"`
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorPayload reports a rejected event back to the offending client.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewEnvelope marshals an event and its payload into a wire frame.
func NewEnvelope(event string, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}
