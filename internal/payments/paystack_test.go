package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(srv *httptest.Server) *Client {
	c := NewClient("sk_test_xyz")
	c.BaseURL = srv.URL
	return c
}

func TestInitializeTransaction(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody InitializeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}

		w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code": "abc123",
				"reference": "INV-42"
			}
		}`))
	}))
	defer srv.Close()

	data, err := testClient(srv).InitializeTransaction(context.Background(), InitializeRequest{
		Email:     "client@example.com",
		Amount:    500000,
		Currency:  "NGN",
		Reference: "INV-42",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if gotAuth != "Bearer sk_test_xyz" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
	if gotPath != "/transaction/initialize" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody.Amount != 500000 || gotBody.Reference != "INV-42" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if data.AuthorizationURL != "https://checkout.paystack.com/abc123" || data.Reference != "INV-42" {
		t.Fatalf("unexpected response data: %+v", data)
	}
}

func TestErrorEnvelopeSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": false, "message": "Invalid amount"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv).InitializeTransaction(context.Background(), InitializeRequest{})
	if err == nil {
		t.Fatal("expected an error for a failed envelope")
	}
	if !strings.Contains(err.Error(), "Invalid amount") {
		t.Fatalf("error must carry the gateway message, got: %v", err)
	}
}

func TestVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/INV-42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"status": "success",
				"reference": "INV-42",
				"amount": 500000,
				"currency": "NGN"
			}
		}`))
	}))
	defer srv.Close()

	data, err := testClient(srv).VerifyTransaction(context.Background(), "INV-42")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if data.Status != "success" || data.Amount != 500000 {
		t.Fatalf("unexpected verify data: %+v", data)
	}
}
