package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recusapp.app/cloud/handlers"
	"recusapp.app/cloud/ledger"
	"recusapp.app/cloud/license"
	"recusapp.app/cloud/models"
	"recusapp.app/cloud/storage"
)

// Secret is the derivation secret used by all test servers.
const Secret = "test-secret"

// Clock is a settable time source for tests.
type Clock struct {
	Current time.Time
}

func (c *Clock) Now() time.Time {
	return c.Current
}

// NewClock starts at a fixed, hyphen-free reference instant.
func NewClock() *Clock {
	return &Clock{Current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

// NewTestLedger builds a ledger over a fresh memory store with a fixed clock.
func NewTestLedger() (*ledger.Ledger, *storage.MemoryStore, *Clock) {
	store := storage.NewMemoryStore()
	clock := NewClock()
	engine := license.NewEngine(Secret)
	engine.Now = clock.Now
	led := ledger.New(store, engine)
	led.Now = clock.Now
	return led, store, clock
}

// NewTestServer builds a server in test mode with no payment gateway.
func NewTestServer() (*handlers.Server, *storage.MemoryStore, *Clock) {
	led, store, clock := NewTestLedger()
	srv := handlers.NewServer(led, nil, nil, handlers.Config{
		Version:  "test",
		TestMode: true,
	})
	return srv, store, clock
}

// CreatePaidTransaction drives a transaction through creation and payment and
// returns it with its activation code set.
func CreatePaidTransaction(t *testing.T, led *ledger.Ledger, businessName, deviceID string) *models.Transaction {
	t.Helper()

	ctx := context.Background()
	tx, err := led.CreateTransaction(ctx, businessName, deviceID, "")
	if err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}

	paid, err := led.MarkPaid(ctx, tx.ID, fmt.Sprintf("ref_%s", tx.ID))
	if err != nil {
		t.Fatalf("Failed to mark transaction paid: %v", err)
	}
	return paid
}

// PostJSON sends a JSON POST through the server's router.
func PostJSON(t *testing.T, srv *handlers.Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	return w
}

// Get sends a GET through the server's router.
func Get(t *testing.T, srv *handlers.Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	return w
}

// Decode unmarshals a recorded response body into out.
func Decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// AssertStatus fails the test when the recorded status differs.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()

	if w.Code != want {
		t.Errorf("Expected status %d, got %d (body: %s)", want, w.Code, w.Body.String())
	}
}

// StripeEventPayload builds a raw webhook event body the way Stripe sends it.
func StripeEventPayload(eventType string, session map[string]interface{}) []byte {
	event := map[string]interface{}{
		"id":   "evt_test123",
		"type": eventType,
		"data": map[string]interface{}{
			"object": session,
		},
	}

	payload, _ := json.Marshal(event)
	return payload
}

// CheckoutSession builds the object half of a checkout webhook event.
func CheckoutSession(providerReference, paymentStatus, customerEmail string) map[string]interface{} {
	return map[string]interface{}{
		"id":             providerReference,
		"payment_status": paymentStatus,
		"customer_details": map[string]interface{}{
			"email": customerEmail,
		},
	}
}

// PostWebhook sends a raw webhook payload with a placeholder signature.
func PostWebhook(t *testing.T, srv *handlers.Server, payload []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "test-signature")

	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	return w
}
