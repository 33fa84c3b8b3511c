package chatclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

type fakeSource struct {
	mineCalls int
	allCalls  int
	mine      []Conversation
	all       []Conversation
}

func (f *fakeSource) FetchMine(ctx context.Context) ([]Conversation, error) {
	f.mineCalls++
	return f.mine, nil
}

func (f *fakeSource) FetchAll(ctx context.Context) ([]Conversation, error) {
	f.allCalls++
	return f.all, nil
}

func TestRoleSelectsExactlyOneSource(t *testing.T) {
	mine := []Conversation{{ID: "c1"}}
	all := []Conversation{{ID: "c1"}, {ID: "c2"}}

	t.Run("client fetches own conversations only", func(t *testing.T) {
		src := &fakeSource{mine: mine, all: all}
		got, err := FetchConversations(context.Background(), src, Identity{UserID: "u1", Role: RoleClient})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if src.mineCalls != 1 || src.allCalls != 0 {
			t.Fatalf("expected exactly one personal fetch, got mine=%d all=%d", src.mineCalls, src.allCalls)
		}
		if !reflect.DeepEqual(got, mine) {
			t.Fatalf("unexpected result: %+v", got)
		}
	})

	t.Run("admin fetches all conversations only", func(t *testing.T) {
		src := &fakeSource{mine: mine, all: all}
		got, err := FetchConversations(context.Background(), src, Identity{UserID: "a1", Role: RoleAdmin})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if src.mineCalls != 0 || src.allCalls != 1 {
			t.Fatalf("expected exactly one admin fetch, got mine=%d all=%d", src.mineCalls, src.allCalls)
		}
		if !reflect.DeepEqual(got, all) {
			t.Fatalf("unexpected result: %+v", got)
		}
	})
}

func TestFilterByStatus(t *testing.T) {
	conversations := []Conversation{
		{ID: "c1", Status: StatusActive},
		{ID: "c2", Status: StatusPendingApproval},
		{ID: "c3", Status: StatusCompleted},
		{ID: "c4", Status: StatusActive},
		{ID: "c5", Status: StatusCancelled},
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{FilterAll, []string{"c1", "c2", "c3", "c4", "c5"}},
		{StatusActive, []string{"c1", "c4"}},
		{StatusPendingApproval, []string{"c2"}},
		{StatusCompleted, []string{"c3"}},
		{StatusCancelled, []string{"c5"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got := FilterByStatus(conversations, tt.filter)

			var ids []string
			for _, conv := range got {
				ids = append(ids, conv.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Fatalf("filter %q: expected %v, got %v", tt.filter, tt.want, ids)
			}
		})
	}
}

func TestAPIClientFetchesAndAuthenticates(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		switch r.URL.Path {
		case "/api/conversations":
			w.Write([]byte(`{"conversations":[{"id":"c1","service_request_id":"sr1","status":"ACTIVE"}],"count":1}`))
		case "/api/conversations/sr1/messages":
			w.Write([]byte(`{"messages":[{"id":"m1","text":"hi","sender_id":"u2","sender":"Bob","conversation":{"service_request_id":"sr1"}}],"count":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, "tok-123")

	conversations, err := api.FetchMine(context.Background())
	if err != nil {
		t.Fatalf("fetch mine: %v", err)
	}
	if gotPath != "/api/conversations" || gotAuth != "Bearer tok-123" {
		t.Fatalf("unexpected request: path=%s auth=%s", gotPath, gotAuth)
	}
	if len(conversations) != 1 || conversations[0].ServiceRequestID != "sr1" {
		t.Fatalf("unexpected conversations: %+v", conversations)
	}

	history, err := api.FetchHistory(context.Background(), "sr1")
	if err != nil {
		t.Fatalf("fetch history: %v", err)
	}
	if len(history) != 1 || history[0].Conversation.ServiceRequestID != "sr1" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestAPIClientSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Admin access required"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	api := NewAPIClient(srv.URL, "tok-123")
	if _, err := api.FetchAll(context.Background()); err == nil {
		t.Fatal("expected an error for a 403 response")
	}
}
