package ws

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seedbuilders/agency-portal-api/internal/models"
)

// MessageStore is the persistence backend the hub writes through.
type MessageStore interface {
	CanAccess(ctx context.Context, serviceRequestID, userID uuid.UUID, role string) (bool, error)
	SaveMessage(ctx context.Context, serviceRequestID, senderID uuid.UUID, text, clientRef string) (*models.Message, error)
}

// PresenceTracker records which users are online in which conversation.
type PresenceTracker interface {
	Add(ctx context.Context, serviceRequestID, userID string) error
	Remove(ctx context.Context, serviceRequestID, userID string) error
}

// Manager is the central hub for all realtime connections. Each connection
// may occupy at most one conversation room at a time, matching the portal's
// one-open-conversation-per-view behaviour.
type Manager struct {
	store    MessageStore
	presence PresenceTracker

	clients      map[uuid.UUID]*Client
	clientsMutex sync.RWMutex

	rooms      map[string]map[uuid.UUID]*Client // serviceRequestID -> clients
	roomsMutex sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a new Manager instance. presence may be nil; presence
// failures never block messaging either way.
func NewManager(store MessageStore, presence PresenceTracker) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    store,
		presence: presence,
		clients:  make(map[uuid.UUID]*Client),
		rooms:    make(map[string]map[uuid.UUID]*Client),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// AddClient registers a new connection.
func (m *Manager) AddClient(client *Client) {
	m.clientsMutex.Lock()
	m.clients[client.ID] = client
	m.clientsMutex.Unlock()

	log.Printf("WebSocket client %s connected for user %s", client.ID, client.UserID)
}

// RemoveClient drops a connection and its room membership.
func (m *Manager) RemoveClient(clientID uuid.UUID) {
	m.clientsMutex.RLock()
	client, exists := m.clients[clientID]
	m.clientsMutex.RUnlock()

	if !exists {
		return
	}

	m.leaveCurrentRoom(client)

	m.clientsMutex.Lock()
	delete(m.clients, clientID)
	m.clientsMutex.Unlock()

	log.Printf("WebSocket client %s disconnected for user %s", clientID, client.UserID)
}

// JoinRoom subscribes a connection to a conversation's broadcasts after an
// access check. Joining a new room implicitly leaves the previous one.
func (m *Manager) JoinRoom(client *Client, serviceRequestID string) {
	requestUUID, err := uuid.Parse(serviceRequestID)
	if err != nil {
		m.sendError(client, "Invalid service request ID")
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
	defer cancel()

	allowed, err := m.store.CanAccess(ctx, requestUUID, client.UserID, client.Role)
	if err != nil {
		log.Printf("Failed to check room access for user %s: %v", client.UserID, err)
		m.sendError(client, "Failed to join conversation")
		return
	}
	if !allowed {
		m.sendError(client, "You do not have access to this conversation")
		return
	}

	m.leaveCurrentRoom(client)

	m.roomsMutex.Lock()
	if _, ok := m.rooms[serviceRequestID]; !ok {
		m.rooms[serviceRequestID] = make(map[uuid.UUID]*Client)
	}
	m.rooms[serviceRequestID][client.ID] = client
	client.room = serviceRequestID
	m.roomsMutex.Unlock()

	if m.presence != nil {
		if err := m.presence.Add(ctx, serviceRequestID, client.UserID.String()); err != nil {
			log.Printf("Failed to record presence: %v", err)
		}
	}

	log.Printf("Client %s joined room %s", client.ID, serviceRequestID)
}

// LeaveRoom unsubscribes a connection from its current room.
func (m *Manager) LeaveRoom(client *Client) {
	m.leaveCurrentRoom(client)
}

// leaveCurrentRoom removes the client from whatever room it occupies.
func (m *Manager) leaveCurrentRoom(client *Client) {
	m.roomsMutex.Lock()
	room := client.room
	if room != "" {
		if members, ok := m.rooms[room]; ok {
			delete(members, client.ID)
			if len(members) == 0 {
				delete(m.rooms, room)
			}
		}
		client.room = ""
	}
	m.roomsMutex.Unlock()

	if room == "" {
		return
	}

	if m.presence != nil {
		ctx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
		defer cancel()
		if err := m.presence.Remove(ctx, room, client.UserID.String()); err != nil {
			log.Printf("Failed to clear presence: %v", err)
		}
	}
}

// HandleSendMessage validates, persists and broadcasts a message, then
// answers the sender with an ack carrying the client's correlation ref.
func (m *Manager) HandleSendMessage(client *Client, payload SendMessagePayload) {
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		m.sendError(client, "Message text cannot be empty")
		return
	}

	// The sender field in the payload must match the authenticated
	// connection; anything else is a spoof attempt.
	if payload.SenderID != "" && payload.SenderID != client.UserID.String() {
		log.Printf("Sender mismatch from client %s: %s vs %s", client.ID, payload.SenderID, client.UserID)
		m.sendError(client, "Sender does not match authenticated user")
		return
	}

	m.roomsMutex.RLock()
	room := client.room
	m.roomsMutex.RUnlock()

	if room == "" || room != payload.ServiceRequestID {
		m.sendError(client, "Join the conversation before sending")
		return
	}

	requestUUID, err := uuid.Parse(payload.ServiceRequestID)
	if err != nil {
		m.sendError(client, "Invalid service request ID")
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
	defer cancel()

	message, err := m.store.SaveMessage(ctx, requestUUID, client.UserID, text, payload.ClientRef)
	if err != nil {
		log.Printf("Failed to save message: %v", err)
		m.sendError(client, "Failed to save message")
		return
	}

	// Broadcast to every room member, sender included: the sender's client
	// reconciles the echo by client_ref instead of filtering on sender.
	frame, err := NewEnvelope(EventReceiveMessage, message)
	if err != nil {
		log.Printf("Failed to marshal broadcast: %v", err)
		return
	}
	m.broadcastToRoom(room, frame)

	ack, err := NewEnvelope(EventMessageAck, MessageAckPayload{
		ClientRef: payload.ClientRef,
		ID:        message.ID,
		CreatedAt: message.CreatedAt,
	})
	if err != nil {
		log.Printf("Failed to marshal ack: %v", err)
		return
	}
	m.deliver(client, ack)
}

// broadcastToRoom sends a frame to every connection in a room.
func (m *Manager) broadcastToRoom(room string, frame []byte) {
	m.roomsMutex.RLock()
	members := make([]*Client, 0, len(m.rooms[room]))
	for _, member := range m.rooms[room] {
		members = append(members, member)
	}
	m.roomsMutex.RUnlock()

	for _, member := range members {
		m.deliver(member, frame)
	}
}

// deliver queues a frame on one connection, dropping the connection if its
// send buffer is full.
func (m *Manager) deliver(client *Client, frame []byte) {
	select {
	case client.send <- frame:
	default:
		log.Printf("Send channel full for client %s, closing connection", client.ID)
		client.conn.Close()
		m.RemoveClient(client.ID)
	}
}

// sendError reports a rejected event back to one client.
func (m *Manager) sendError(client *Client, message string) {
	frame, err := NewEnvelope(EventError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	m.deliver(client, frame)
}

// Shutdown closes every connection and stops the manager.
func (m *Manager) Shutdown() {
	m.cancel()

	m.clientsMutex.Lock()
	for _, client := range m.clients {
		client.conn.Close()
	}
	m.clients = make(map[uuid.UUID]*Client)
	m.clientsMutex.Unlock()

	m.roomsMutex.Lock()
	m.rooms = make(map[string]map[uuid.UUID]*Client)
	m.roomsMutex.Unlock()
}
