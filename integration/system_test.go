//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"
)

// Runs against a deployment using a Stripe test-mode key.
var baseURL = getenv("E2E_BASE_URL", "http://localhost:3001")

func TestSystem_E2E_Checkout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var health map[string]any
	doJSON(t, http.MethodGet, baseURL+"/api/health", nil, &health, 200)
	if health["status"] != "OK" {
		t.Fatalf("unexpected health: %#v", health)
	}

	doJSON(t, http.MethodPost, baseURL+"/api/payments/create-intent", map[string]any{"amount": 0}, nil, 400)

	var intent struct {
		ClientSecret    string `json:"clientSecret"`
		PaymentIntentID string `json:"paymentIntentId"`
	}
	doJSON(t, http.MethodPost, baseURL+"/api/payments/create-intent", map[string]any{
		"amount":   4999,
		"currency": "usd",
		"items": []map[string]any{
			{"id": 1, "name": "Widget", "quantity": 1, "price": 49.99},
		},
	}, &intent, 200)
	if intent.PaymentIntentID == "" || intent.ClientSecret == "" {
		t.Fatalf("intent missing fields: %#v", intent)
	}

	var status struct {
		Status       string         `json:"status"`
		Amount       float64        `json:"amount"`
		OrderDetails map[string]any `json:"orderDetails"`
	}
	doJSON(t, http.MethodGet, baseURL+"/api/payments/status/"+intent.PaymentIntentID, nil, &status, 200)
	if status.Amount != 49.99 || status.OrderDetails != nil {
		t.Fatalf("unexpected status: %#v", status)
	}

	// Unpaid intents cannot become orders.
	doJSON(t, http.MethodPost, baseURL+"/api/orders", map[string]any{
		"paymentIntentId": intent.PaymentIntentID,
		"items":           []map[string]any{},
		"total":           49.99,
	}, nil, 400)
	doJSON(t, http.MethodGet, baseURL+"/api/orders/payment/"+intent.PaymentIntentID, nil, nil, 404)

	doJSON(t, http.MethodPost, baseURL+"/api/webhooks/stripe", map[string]any{"type": "payment_intent.succeeded"}, nil, 400)

	if os.Getenv("E2E_RESTART_STOREFRONT") == "1" {
		restartService(t, ctx, getenv("E2E_SERVICE", "storefront"))
		waitReady(t, ctx, baseURL+"/readyz")
		doJSON(t, http.MethodGet, baseURL+"/api/payments/status/"+intent.PaymentIntentID, nil, &status, 200)
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
