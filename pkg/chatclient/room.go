package chatclient

import (
	"encoding/json"
	"errors"
	"sync"
)

// MessageHandler receives messages accepted into a room subscription.
type MessageHandler func(Message)

// Subscription is the handle returned by JoinRoom. Closing it detaches the
// listener and leaves the room; the shared connection stays open.
type Subscription struct {
	conn *Conn
	ids  []int
	once sync.Once
}

// Close detaches the subscription's listeners exactly once. Further calls
// are no-ops.
func (s *Subscription) Close() {
	s.once.Do(func() {
		for _, id := range s.ids {
			s.conn.unsubscribe(id)
		}
		// Best effort: if the connection already dropped there is nothing
		// to leave.
		s.conn.emit(eventLeaveRoom, nil)
	})
}

// JoinRoom subscribes to one conversation's broadcasts, keyed by its
// service request id. Exactly one joinRoom frame is emitted and exactly one
// listener registered per call. The handler only ever sees messages
// addressed to this conversation.
func (c *Conn) JoinRoom(serviceRequestID string, handler MessageHandler) (*Subscription, error) {
	if serviceRequestID == "" {
		return nil, errors.New("chatclient: service request id is empty")
	}

	id := c.subscribe(func(env envelope) {
		if env.Event != eventReceiveMessage {
			return
		}
		var msg Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return
		}
		// Room isolation: drop anything addressed to another conversation.
		if msg.Conversation.ServiceRequestID != serviceRequestID {
			return
		}
		handler(msg)
	})

	if err := c.emit(eventJoinRoom, serviceRequestID); err != nil {
		c.unsubscribe(id)
		return nil, err
	}

	return &Subscription{conn: c, ids: []int{id}}, nil
}
