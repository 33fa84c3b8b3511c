package chatclient

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ConnState describes the connection lifecycle.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// Event names on the realtime channel.
const (
	eventJoinRoom       = "joinRoom"
	eventLeaveRoom      = "leaveRoom"
	eventSendMessage    = "sendMessage"
	eventReceiveMessage = "receiveMessage"
	eventMessageAck     = "messageAck"
)

// envelope frames every event on the wire.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// sendMessagePayload is the body of a sendMessage event.
type sendMessagePayload struct {
	ServiceRequestID string `json:"service_request_id"`
	SenderID         string `json:"sender_id"`
	Text             string `json:"text"`
	ClientRef        string `json:"client_ref,omitempty"`
}

// messageAckPayload confirms a sent message by its correlation ref.
type messageAckPayload struct {
	ClientRef string    `json:"client_ref"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Config configures Dial.
type Config struct {
	// URL of the realtime endpoint, e.g. wss://api.example.com/ws.
	URL string

	// Token is the portal access token, sent on the handshake.
	Token string

	// HandshakeTimeout bounds the dial; zero means 10 seconds.
	HandshakeTimeout time.Duration
}

// Conn is the single long-lived realtime connection for a session. It is
// created once and passed explicitly to every view that needs it; views
// attach and detach listeners but never close or replace it.
type Conn struct {
	ws    *websocket.Conn
	state atomic.Int32

	writeMu sync.Mutex // serialises frames onto the socket

	mu       sync.Mutex // guards handlers
	handlers map[int]func(envelope)
	nextID   int

	done     chan struct{}
	stopOnce sync.Once
}

// Dial establishes the realtime connection. A missing URL is a
// configuration error: no connection can ever be made, so fail outright.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	if cfg.URL == "" {
		return nil, ErrNoEndpoint
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Token != "" {
		q := u.Query()
		q.Set("token", cfg.Token)
		u.RawQuery = q.Encode()
	}

	timeout := cfg.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	c := &Conn{
		handlers: make(map[int]func(envelope)),
		done:     make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))

	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return nil, err
	}

	c.ws = ws
	c.state.Store(int32(StateConnected))
	log.Printf("Realtime connection established to %s", cfg.URL)

	go c.readLoop()

	return c, nil
}

// State returns the current connection state.
func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

// Connected reports whether the connection is usable for sends.
func (c *Conn) Connected() bool {
	return c.State() == StateConnected
}

// Done is closed when the connection has terminated.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close tears down the connection. Views never call this; it belongs to
// the owner that dialled.
func (c *Conn) Close() error {
	err := c.ws.Close()
	c.shutdown()
	return err
}

// readLoop reads frames until the connection dies and dispatches each one
// to the registered handlers in registration order semantics: handlers run
// sequentially on this single loop, so listeners observe events in
// transport delivery order.
func (c *Conn) readLoop() {
	defer c.shutdown()

	for {
		var env envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Realtime connection error: %v", err)
			}
			return
		}
		c.dispatch(env)
	}
}

// dispatch fans one event out to every registered handler.
func (c *Conn) dispatch(env envelope) {
	c.mu.Lock()
	handlers := make([]func(envelope), 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(env)
	}
}

// shutdown marks the connection dead exactly once.
func (c *Conn) shutdown() {
	c.stopOnce.Do(func() {
		c.state.Store(int32(StateDisconnected))
		close(c.done)
	})
}

// emit writes one event frame to the server.
func (c *Conn) emit(event string, payload interface{}) error {
	if !c.Connected() {
		return ErrNotConnected
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		raw = data
	}

	frame, err := json.Marshal(envelope{Event: event, Payload: raw})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// subscribe registers an event handler and returns its id.
func (c *Conn) subscribe(handler func(envelope)) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.handlers[id] = handler
	return id
}

// unsubscribe removes a handler; removing an absent id is a no-op.
func (c *Conn) unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, id)
}
