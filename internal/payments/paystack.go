package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Paystack API base URL.
const paystackAPIBase = "https://api.paystack.co"

// Client is a minimal Paystack API client covering transaction
// initialisation and verification.
type Client struct {
	SecretKey  string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Paystack client with the production endpoint.
func NewClient(secretKey string) *Client {
	return &Client{
		SecretKey:  secretKey,
		BaseURL:    paystackAPIBase,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// InitializeRequest is the body for POST /transaction/initialize.
// Amount is in the currency's subunit (kobo for NGN).
type InitializeRequest struct {
	Email       string          `json:"email"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	CallbackURL string          `json:"callback_url,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// InitializeData is the useful part of the initialize response.
type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyData is the useful part of the verify response.
type VerifyData struct {
	Status    string     `json:"status"` // "success", "failed", "abandoned"
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	PaidAt    *time.Time `json:"paid_at"`
}

// envelope is Paystack's standard response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction creates a payment and returns the authorization URL
// the client is redirected to.
func (c *Client) InitializeTransaction(ctx context.Context, reqData InitializeRequest) (*InitializeData, error) {
	body, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	var data InitializeData
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// VerifyTransaction fetches the final state of a payment by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	var data VerifyData
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// do executes a request and unmarshals the data field of the envelope.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to Paystack failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Paystack response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to decode Paystack response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Status {
		return fmt.Errorf("paystack error (HTTP %d): %s", resp.StatusCode, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode Paystack data: %w", err)
		}
	}

	return nil
}
