package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// testServer is a minimal realtime endpoint for exercising the client: it
// records every frame the client sends and can push frames back.
type testServer struct {
	srv    *httptest.Server
	frames chan envelope

	mu    sync.Mutex
	conns []*websocket.Conn
	dials int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{frames: make(chan envelope, 64)}
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		ts.mu.Lock()
		ts.conns = append(ts.conns, conn)
		ts.dials++
		ts.mu.Unlock()

		go func() {
			for {
				var env envelope
				if err := conn.ReadJSON(&env); err != nil {
					return
				}
				ts.frames <- env
			}
		}()
	}))
	t.Cleanup(ts.srv.Close)

	return ts
}

func (ts *testServer) url() string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http")
}

func (ts *testServer) dialCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.dials
}

// push sends an event to the most recent client connection.
func (ts *testServer) push(t *testing.T, event string, payload interface{}) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal push payload: %v", err)
	}

	ts.mu.Lock()
	conn := ts.conns[len(ts.conns)-1]
	ts.mu.Unlock()

	if err := conn.WriteJSON(envelope{Event: event, Payload: data}); err != nil {
		t.Fatalf("push frame: %v", err)
	}
}

// nextFrame waits for the next frame the client sent.
func (ts *testServer) nextFrame(t *testing.T) envelope {
	t.Helper()

	select {
	case env := <-ts.frames:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client frame")
		return envelope{}
	}
}

// expectNoFrame asserts the client stays quiet for a short window.
func (ts *testServer) expectNoFrame(t *testing.T) {
	t.Helper()

	select {
	case env := <-ts.frames:
		t.Fatalf("unexpected frame from client: %s", env.Event)
	case <-time.After(150 * time.Millisecond):
	}
}

// waitFor polls a condition until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func dialTest(t *testing.T, ts *testServer) *Conn {
	t.Helper()

	conn, err := Dial(context.Background(), Config{URL: ts.url()})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if !conn.Connected() {
		t.Fatal("connection should report connected after dial")
	}
	return conn
}

func (c *Conn) handlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

func TestDialWithoutEndpointFails(t *testing.T) {
	_, err := Dial(context.Background(), Config{})
	if err != ErrNoEndpoint {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestJoinRoomEmitsOnceAndCloseDetaches(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	sub, err := conn.JoinRoom("c0ffee00-0000-4000-8000-000000000001", func(Message) {})
	if err != nil {
		t.Fatalf("join room: %v", err)
	}

	env := ts.nextFrame(t)
	if env.Event != eventJoinRoom {
		t.Fatalf("expected joinRoom, got %s", env.Event)
	}
	var roomID string
	if err := json.Unmarshal(env.Payload, &roomID); err != nil {
		t.Fatalf("decode joinRoom payload: %v", err)
	}
	if roomID != "c0ffee00-0000-4000-8000-000000000001" {
		t.Fatalf("joined wrong room: %s", roomID)
	}
	ts.expectNoFrame(t) // exactly one join frame

	if got := conn.handlerCount(); got != 1 {
		t.Fatalf("expected 1 registered handler, got %d", got)
	}

	sub.Close()
	env = ts.nextFrame(t)
	if env.Event != eventLeaveRoom {
		t.Fatalf("expected leaveRoom, got %s", env.Event)
	}
	if got := conn.handlerCount(); got != 0 {
		t.Fatalf("expected handlers removed after close, got %d", got)
	}

	// Second close is a no-op: no duplicate leave, no panic.
	sub.Close()
	ts.expectNoFrame(t)
}

func TestRoomIsolation(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	roomA := "aaaaaaaa-0000-4000-8000-000000000001"
	roomB := "bbbbbbbb-0000-4000-8000-000000000002"

	var mu sync.Mutex
	var got []Message
	sub, err := conn.JoinRoom(roomA, func(m Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("join room: %v", err)
	}
	defer sub.Close()
	ts.nextFrame(t) // joinRoom

	ts.push(t, eventReceiveMessage, Message{
		ID: "m1", Text: "other room",
		Conversation: ConversationRef{ServiceRequestID: roomB},
	})
	ts.push(t, eventReceiveMessage, Message{
		ID: "m2", Text: "this room",
		Conversation: ConversationRef{ServiceRequestID: roomA},
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if got[0].ID != "m2" {
		t.Fatalf("accepted the wrong message: %+v", got[0])
	}
}

func TestConnectionSharedAcrossViews(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	first, err := conn.JoinRoom("11111111-0000-4000-8000-000000000001", func(Message) {})
	if err != nil {
		t.Fatalf("join first room: %v", err)
	}
	ts.nextFrame(t)
	first.Close()
	ts.nextFrame(t) // leaveRoom

	second, err := conn.JoinRoom("22222222-0000-4000-8000-000000000002", func(Message) {})
	if err != nil {
		t.Fatalf("join second room: %v", err)
	}
	defer second.Close()
	ts.nextFrame(t)

	if ts.dialCount() != 1 {
		t.Fatalf("expected a single shared connection, server saw %d dials", ts.dialCount())
	}
}

func TestEmitAfterDisconnectFails(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	conn.Close()
	waitFor(t, func() bool { return !conn.Connected() })

	if err := conn.emit(eventJoinRoom, "x"); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
