package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Maximum time to wait for a pong from the client
	pongWait = 60 * time.Second

	// Send pings at this interval
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size
	maxMessageSize = 512 * 1024 // 512KB

	// Outbound frame buffer per connection
	writeBufferSize = 256
)

// Client is a single realtime connection.
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Role   string

	conn      *websocket.Conn
	send      chan []byte
	manager   *Manager
	closeChan chan struct{}
	room      string // current conversation room, guarded by manager.roomsMutex
}

// NewClient creates a new Client instance.
func NewClient(userID uuid.UUID, role string, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:        uuid.New(),
		UserID:    userID,
		Role:      role,
		conn:      conn,
		send:      make(chan []byte, writeBufferSize),
		manager:   manager,
		closeChan: make(chan struct{}),
	}
}

// Start registers the client and launches its read and write pumps.
func (c *Client) Start() {
	c.manager.AddClient(c)

	go c.readPump()
	go c.writePump()
}

// readPump handles inbound frames from the connection.
func (c *Client) readPump() {
	defer func() {
		c.manager.RemoveClient(c.ID)
		c.conn.Close()
		close(c.closeChan)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close error: %v", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// writePump sends queued frames and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Error writing message: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeChan:
			return
		}
	}
}

// handleIncomingMessage parses one inbound frame and dispatches it.
func (c *Client) handleIncomingMessage(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Printf("Error unmarshaling event: %v", err)
		return
	}

	switch env.Event {
	case EventJoinRoom:
		var serviceRequestID string
		if err := json.Unmarshal(env.Payload, &serviceRequestID); err != nil {
			log.Printf("Invalid joinRoom payload: %v", err)
			return
		}
		c.manager.JoinRoom(c, serviceRequestID)

	case EventLeaveRoom:
		c.manager.LeaveRoom(c)

	case EventSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			log.Printf("Invalid sendMessage payload: %v", err)
			return
		}
		c.manager.HandleSendMessage(c, payload)

	default:
		log.Printf("Unhandled event type: %s", env.Event)
	}
}
