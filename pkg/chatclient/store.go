package chatclient

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DeliveryState tracks an entry's progress from optimistic append to
// server confirmation.
type DeliveryState int

const (
	DeliveryConfirmed DeliveryState = iota
	DeliveryPending
	DeliveryFailed
)

// String returns a display label for the state.
func (d DeliveryState) String() string {
	switch d {
	case DeliveryPending:
		return "pending"
	case DeliveryFailed:
		return "failed"
	default:
		return "confirmed"
	}
}

// Entry is one row of the visible message list.
type Entry struct {
	Message
	Delivery DeliveryState
}

const defaultAckTimeout = 10 * time.Second

// MessageStore holds the ordered, append-only message list for one open
// conversation. History seeds it once; local sends append optimistic
// entries immediately; server echoes and acks reconcile them in place by
// correlation ref, so the optimistic copy and its echo never both appear.
type MessageStore struct {
	conn             *Conn
	serviceRequestID string
	sender           Identity
	ackTimeout       time.Duration

	// OnChange, if set before Attach, runs after every list mutation. The
	// portal uses it to scroll the message pane to the newest entry.
	OnChange func()

	mu      sync.Mutex
	entries []Entry
	pending map[string]int // client ref -> index into entries
	timers  map[string]*time.Timer
	loaded  bool
}

// NewMessageStore creates the store for one conversation view.
func NewMessageStore(conn *Conn, serviceRequestID string, sender Identity) *MessageStore {
	return &MessageStore{
		conn:             conn,
		serviceRequestID: serviceRequestID,
		sender:           sender,
		ackTimeout:       defaultAckTimeout,
		pending:          make(map[string]int),
		timers:           make(map[string]*time.Timer),
	}
}

// SetAckTimeout overrides how long a send may stay pending before it is
// marked failed.
func (s *MessageStore) SetAckTimeout(d time.Duration) {
	s.ackTimeout = d
}

// Attach joins the conversation's room and wires inbound messages and acks
// into the store. The returned subscription is closed when the view goes
// away; the connection itself is left open.
func (s *MessageStore) Attach() (*Subscription, error) {
	sub, err := s.conn.JoinRoom(s.serviceRequestID, s.handleInbound)
	if err != nil {
		return nil, err
	}

	ackID := s.conn.subscribe(func(env envelope) {
		if env.Event != eventMessageAck {
			return
		}
		var ack messageAckPayload
		if err := json.Unmarshal(env.Payload, &ack); err != nil {
			return
		}
		s.handleAck(ack)
	})
	sub.ids = append(sub.ids, ackID)

	return sub, nil
}

// LoadHistory seeds the list from a history fetch. Only the first call has
// any effect; pushes that raced the fetch stay appended after it.
func (s *MessageStore) LoadHistory(history []Message) {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return
	}
	s.loaded = true

	seeded := make([]Entry, 0, len(history)+len(s.entries))
	for _, msg := range history {
		seeded = append(seeded, Entry{Message: msg, Delivery: DeliveryConfirmed})
	}
	s.entries = append(seeded, s.entries...)
	s.reindexPending()
	s.mu.Unlock()

	s.notify()
}

// Send validates, optimistically appends and emits one message. It returns
// the correlation ref of the new entry. All preconditions must hold or
// nothing happens: non-empty trimmed text, a resolved sender identity and
// a connected transport.
func (s *MessageStore) Send(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if s.sender.UserID == "" {
		return "", ErrNoIdentity
	}
	if !s.conn.Connected() {
		return "", ErrNotConnected
	}

	ref := uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	s.entries = append(s.entries, Entry{
		Message: Message{
			ID:           ref, // provisional until the server assigns one
			Text:         text,
			SenderID:     s.sender.UserID,
			Sender:       s.sender.Name,
			CreatedAt:    now,
			Conversation: ConversationRef{ServiceRequestID: s.serviceRequestID},
			ClientRef:    ref,
		},
		Delivery: DeliveryPending,
	})
	s.pending[ref] = len(s.entries) - 1
	s.mu.Unlock()

	err := s.conn.emit(eventSendMessage, sendMessagePayload{
		ServiceRequestID: s.serviceRequestID,
		SenderID:         s.sender.UserID,
		Text:             text,
		ClientRef:        ref,
	})
	if err != nil {
		// The entry stays visible, flagged instead of silently stuck.
		s.fail(ref)
		return ref, err
	}

	s.mu.Lock()
	s.timers[ref] = time.AfterFunc(s.ackTimeout, func() { s.fail(ref) })
	s.mu.Unlock()

	s.notify()
	return ref, nil
}

// Messages returns a snapshot of the visible list.
func (s *MessageStore) Messages() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of visible entries.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// handleInbound applies one room-accepted broadcast. An echo of our own
// pending send is reconciled in place; everything else appends.
func (s *MessageStore) handleInbound(msg Message) {
	s.mu.Lock()
	if msg.ClientRef != "" {
		if idx, ok := s.pending[msg.ClientRef]; ok {
			s.confirmLocked(idx, msg.ClientRef, msg.ID, msg.CreatedAt)
			s.mu.Unlock()
			s.notify()
			return
		}
	}
	s.entries = append(s.entries, Entry{Message: msg, Delivery: DeliveryConfirmed})
	s.mu.Unlock()

	s.notify()
}

// handleAck confirms a pending send by its correlation ref.
func (s *MessageStore) handleAck(ack messageAckPayload) {
	s.mu.Lock()
	idx, ok := s.pending[ack.ClientRef]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.confirmLocked(idx, ack.ClientRef, ack.ID, ack.CreatedAt)
	s.mu.Unlock()

	s.notify()
}

// confirmLocked marks a pending entry confirmed, adopting the server's id
// and timestamp. Callers hold s.mu.
func (s *MessageStore) confirmLocked(idx int, ref, serverID string, createdAt time.Time) {
	entry := &s.entries[idx]
	if serverID != "" {
		entry.Message.ID = serverID
	}
	if !createdAt.IsZero() {
		entry.Message.CreatedAt = createdAt
	}
	entry.Delivery = DeliveryConfirmed

	delete(s.pending, ref)
	if timer, ok := s.timers[ref]; ok {
		timer.Stop()
		delete(s.timers, ref)
	}
}

// fail flags a still-pending entry as failed.
func (s *MessageStore) fail(ref string) {
	s.mu.Lock()
	idx, ok := s.pending[ref]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.entries[idx].Delivery = DeliveryFailed
	delete(s.pending, ref)
	if timer, ok := s.timers[ref]; ok {
		timer.Stop()
		delete(s.timers, ref)
	}
	s.mu.Unlock()

	s.notify()
}

// reindexPending rebuilds the ref index after history is prepended.
// Callers hold s.mu.
func (s *MessageStore) reindexPending() {
	for ref := range s.pending {
		for i := range s.entries {
			if s.entries[i].ClientRef == ref && s.entries[i].Delivery == DeliveryPending {
				s.pending[ref] = i
				break
			}
		}
	}
}

// notify runs the OnChange hook outside the lock.
func (s *MessageStore) notify() {
	if s.OnChange != nil {
		s.OnChange()
	}
}
