package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient talks to the portal's request API for the fetches the chat
// subsystem needs: conversation listings and message history. It satisfies
// ConversationSource.
type APIClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewAPIClient creates an API client with a 30 second timeout.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchMine returns the caller's own conversations.
func (c *APIClient) FetchMine(ctx context.Context) ([]Conversation, error) {
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.getJSON(ctx, "/api/conversations", &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// FetchAll returns every conversation; the server enforces the admin role.
func (c *APIClient) FetchAll(ctx context.Context) ([]Conversation, error) {
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.getJSON(ctx, "/api/admin/conversations", &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// FetchHistory returns the full ordered history for one conversation.
func (c *APIClient) FetchHistory(ctx context.Context, serviceRequestID string) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	path := "/api/conversations/" + serviceRequestID + "/messages"
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// getJSON performs an authenticated GET and decodes the response body.
func (c *APIClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chatclient: GET %s returned %d: %s", path, resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
