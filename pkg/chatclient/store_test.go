package chatclient

import (
	"encoding/json"
	"testing"
	"time"
)

const testRoom = "dddddddd-0000-4000-8000-000000000001"

var alice = Identity{UserID: "u1", Name: "Alice", Role: RoleClient}

// disconnectedConn builds a connection that was never established; the
// send preconditions reject before any transport use.
func disconnectedConn() *Conn {
	c := &Conn{
		handlers: make(map[int]func(envelope)),
		done:     make(chan struct{}),
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

func TestSendPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		sender  Identity
		wantErr error
	}{
		{"empty text", "", alice, ErrEmptyMessage},
		{"whitespace text", "   \n\t", alice, ErrEmptyMessage},
		{"unresolved identity", "hello", Identity{}, ErrNoIdentity},
		{"disconnected", "hello", alice, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMessageStore(disconnectedConn(), testRoom, tt.sender)

			_, err := store.Send(tt.text)
			if err != tt.wantErr {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if store.Len() != 0 {
				t.Fatalf("no-op send must not append; list has %d entries", store.Len())
			}
		})
	}
}

func TestOptimisticSend(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	store := NewMessageStore(conn, testRoom, alice)
	sub, err := store.Attach()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer sub.Close()
	ts.nextFrame(t) // joinRoom

	ref, err := store.Send("Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// The optimistic entry is visible immediately, before any echo.
	entries := store.Messages()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Text != "Hello" || entry.SenderID != "u1" || entry.Sender != "Alice" {
		t.Fatalf("unexpected optimistic entry: %+v", entry)
	}
	if entry.ID == "" || entry.ClientRef != ref {
		t.Fatalf("entry must carry a generated id and the correlation ref: %+v", entry)
	}
	if entry.Delivery != DeliveryPending {
		t.Fatalf("optimistic entry must start pending, got %v", entry.Delivery)
	}

	// And the emit carried the same correlation ref.
	env := ts.nextFrame(t)
	if env.Event != eventSendMessage {
		t.Fatalf("expected sendMessage frame, got %s", env.Event)
	}
	var payload sendMessagePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode sendMessage payload: %v", err)
	}
	if payload.ServiceRequestID != testRoom || payload.SenderID != "u1" ||
		payload.Text != "Hello" || payload.ClientRef != ref {
		t.Fatalf("unexpected sendMessage payload: %+v", payload)
	}
}

func TestEchoReconciledByClientRef(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	store := NewMessageStore(conn, testRoom, alice)
	sub, err := store.Attach()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer sub.Close()
	ts.nextFrame(t) // joinRoom

	ref, err := store.Send("Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	ts.nextFrame(t) // sendMessage

	// Server broadcasts the echo back to the room, sender included.
	serverTime := time.Now().Add(time.Second).Truncate(time.Millisecond)
	ts.push(t, eventReceiveMessage, Message{
		ID:           "srv-1",
		Text:         "Hello",
		SenderID:     "u1",
		Sender:       "Alice",
		CreatedAt:    serverTime,
		Conversation: ConversationRef{ServiceRequestID: testRoom},
		ClientRef:    ref,
	})

	waitFor(t, func() bool {
		entries := store.Messages()
		return len(entries) == 1 && entries[0].Delivery == DeliveryConfirmed
	})

	entry := store.Messages()[0]
	if entry.ID != "srv-1" {
		t.Fatalf("entry must adopt the server id, got %s", entry.ID)
	}
	if !entry.CreatedAt.Equal(serverTime) {
		t.Fatalf("entry must adopt the server timestamp")
	}
}

func TestAckConfirmsPendingSend(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	store := NewMessageStore(conn, testRoom, alice)
	sub, err := store.Attach()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer sub.Close()
	ts.nextFrame(t) // joinRoom

	ref, err := store.Send("Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	ts.nextFrame(t) // sendMessage

	ts.push(t, eventMessageAck, messageAckPayload{ClientRef: ref, ID: "srv-9", CreatedAt: time.Now()})

	waitFor(t, func() bool {
		entries := store.Messages()
		return len(entries) == 1 && entries[0].Delivery == DeliveryConfirmed && entries[0].ID == "srv-9"
	})
}

func TestUnackedSendIsFlaggedFailed(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	store := NewMessageStore(conn, testRoom, alice)
	store.SetAckTimeout(50 * time.Millisecond)
	sub, err := store.Attach()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer sub.Close()
	ts.nextFrame(t) // joinRoom

	if _, err := store.Send("Hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	waitFor(t, func() bool {
		entries := store.Messages()
		return len(entries) == 1 && entries[0].Delivery == DeliveryFailed
	})
}

func TestAppendOnlyOrdering(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	store := NewMessageStore(conn, testRoom, alice)
	sub, err := store.Attach()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer sub.Close()
	ts.nextFrame(t) // joinRoom

	store.LoadHistory([]Message{
		{ID: "h1", Text: "first", Conversation: ConversationRef{ServiceRequestID: testRoom}},
		{ID: "h2", Text: "second", Conversation: ConversationRef{ServiceRequestID: testRoom}},
	})

	ids := func() []string {
		var out []string
		for _, e := range store.Messages() {
			out = append(out, e.ID)
		}
		return out
	}

	// Each accepted event grows the list by exactly one; the prefix never
	// moves.
	for i, push := range []string{"m3", "m4", "m5"} {
		before := ids()
		ts.push(t, eventReceiveMessage, Message{
			ID: push, Text: push,
			Conversation: ConversationRef{ServiceRequestID: testRoom},
		})
		waitFor(t, func() bool { return store.Len() == len(before)+1 })

		after := ids()
		for j := range before {
			if after[j] != before[j] {
				t.Fatalf("push %d moved entry %d: %v -> %v", i, j, before, after)
			}
		}
		if after[len(after)-1] != push {
			t.Fatalf("push %d not appended last: %v", i, after)
		}
	}
}

func TestLoadHistorySeedsOnce(t *testing.T) {
	store := NewMessageStore(disconnectedConn(), testRoom, alice)

	store.LoadHistory([]Message{{ID: "h1"}, {ID: "h2"}})
	store.LoadHistory([]Message{{ID: "h3"}})

	if store.Len() != 2 {
		t.Fatalf("second history load must be ignored, got %d entries", store.Len())
	}
}

func TestInboundFromOthersAppends(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	store := NewMessageStore(conn, testRoom, alice)
	sub, err := store.Attach()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer sub.Close()
	ts.nextFrame(t) // joinRoom

	// A message from another participant carries a foreign ref (or none)
	// and must append rather than reconcile.
	ts.push(t, eventReceiveMessage, Message{
		ID: "srv-2", Text: "hi there", SenderID: "u2", Sender: "Bob",
		Conversation: ConversationRef{ServiceRequestID: testRoom},
		ClientRef:    "someone-elses-ref",
	})

	waitFor(t, func() bool { return store.Len() == 1 })

	entry := store.Messages()[0]
	if entry.SenderID != "u2" || entry.Delivery != DeliveryConfirmed {
		t.Fatalf("unexpected appended entry: %+v", entry)
	}
}

func TestOnChangeFiresOnEveryMutation(t *testing.T) {
	ts := newTestServer(t)
	conn := dialTest(t, ts)

	store := NewMessageStore(conn, testRoom, alice)
	changes := make(chan struct{}, 16)
	store.OnChange = func() { changes <- struct{}{} }

	sub, err := store.Attach()
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	defer sub.Close()
	ts.nextFrame(t) // joinRoom

	store.LoadHistory(nil)
	if _, err := store.Send("Hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	// History load + optimistic append.
	for i := 0; i < 2; i++ {
		select {
		case <-changes:
		case <-time.After(2 * time.Second):
			t.Fatalf("OnChange fired %d times, expected 2", i)
		}
	}
}
