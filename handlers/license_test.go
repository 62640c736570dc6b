package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recusapp.app/cloud/ledger"
	"recusapp.app/cloud/license"
	"recusapp.app/cloud/models"
	"recusapp.app/cloud/storage"
)

type testClock struct {
	now time.Time
}

func (c *testClock) time() time.Time {
	return c.now
}

func newTestServer() (*Server, *storage.MemoryStore, *testClock) {
	store := storage.NewMemoryStore()
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := license.NewEngine("test-secret")
	engine.Now = clock.time
	led := ledger.New(store, engine)
	led.Now = clock.time

	srv := NewServer(led, nil, nil, Config{
		Version:  "test",
		TestMode: true,
	})
	return srv, store, clock
}

func payTransaction(t *testing.T, srv *Server, businessName, deviceID string) *models.Transaction {
	t.Helper()

	ctx := context.Background()
	tx, err := srv.Ledger.CreateTransaction(ctx, businessName, deviceID, "")
	if err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}
	paid, err := srv.Ledger.MarkPaid(ctx, tx.ID, "ref_"+tx.ID)
	if err != nil {
		t.Fatalf("Failed to mark paid: %v", err)
	}
	return paid
}

func postJSON(t *testing.T, srv *Server, path string, body interface{}) *httptest.ResponseRecorder {
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

func TestValidateLicense_Success(t *testing.T) {
	srv, _, _ := newTestServer()
	paid := payTransaction(t, srv, "Boutique Marie", "A1B2C3D4E5")

	w := postJSON(t, srv, "/api/v1/licenses/validate", ValidateRequest{
		Code:         paid.Code,
		BusinessName: "Boutique Marie",
		DeviceID:     "A1B2C3D4E5",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (body: %s)", w.Code, w.Body.String())
	}

	var resp ValidateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Valid {
		t.Errorf("Expected valid license, got reason %q", resp.Reason)
	}
	if resp.BusinessName != "Boutique Marie" {
		t.Errorf("Expected business name 'Boutique Marie', got %q", resp.BusinessName)
	}
	if resp.ExpiresAt == nil {
		t.Fatalf("Expected expiry in response")
	}
	wantExpiry := time.Date(2027, 3, 10, 12, 0, 0, 0, time.UTC)
	if !resp.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("Expected expiry %v, got %v", wantExpiry, resp.ExpiresAt)
	}
}

func TestValidateLicense_DeviceMismatch(t *testing.T) {
	srv, _, _ := newTestServer()
	paid := payTransaction(t, srv, "Boutique Marie", "A1B2C3D4E5")

	w := postJSON(t, srv, "/api/v1/licenses/validate", ValidateRequest{
		Code:         paid.Code,
		BusinessName: "Boutique Marie",
		DeviceID:     "OTHER",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp ValidateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Valid {
		t.Errorf("Expected rejection for wrong device")
	}
	if resp.Reason != ledger.ReasonDeviceMismatch {
		t.Errorf("Expected reason %q, got %q", ledger.ReasonDeviceMismatch, resp.Reason)
	}
	if resp.Message != "Code not valid for this device" {
		t.Errorf("Unexpected message %q", resp.Message)
	}
}

func TestValidateLicense_InvalidCode(t *testing.T) {
	srv, _, _ := newTestServer()

	w := postJSON(t, srv, "/api/v1/licenses/validate", ValidateRequest{
		Code:         "AAAA-BBBB-CCCC",
		BusinessName: "Boutique Marie",
		DeviceID:     "A1B2C3D4E5",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp ValidateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Valid {
		t.Errorf("Expected rejection for unknown code")
	}
	if resp.Reason != ledger.ReasonInvalidCode {
		t.Errorf("Expected reason %q, got %q", ledger.ReasonInvalidCode, resp.Reason)
	}
}

func TestValidateLicense_Expired(t *testing.T) {
	srv, _, clock := newTestServer()
	paid := payTransaction(t, srv, "Boutique Marie", "A1B2C3D4E5")

	clock.now = clock.now.AddDate(0, 0, models.ValidityDays).Add(time.Second)

	w := postJSON(t, srv, "/api/v1/licenses/validate", ValidateRequest{
		Code:         paid.Code,
		BusinessName: "Boutique Marie",
		DeviceID:     "A1B2C3D4E5",
	})

	var resp ValidateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Valid {
		t.Errorf("Expected expired license to be rejected")
	}
	if resp.Reason != ledger.ReasonExpired {
		t.Errorf("Expected reason %q, got %q", ledger.ReasonExpired, resp.Reason)
	}
}

func TestValidateLicense_MissingFields(t *testing.T) {
	srv, _, _ := newTestServer()

	w := postJSON(t, srv, "/api/v1/licenses/validate", ValidateRequest{
		BusinessName: "Boutique Marie",
		DeviceID:     "A1B2C3D4E5",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing code, got %d", w.Code)
	}
}

func TestValidateLicense_InvalidBody(t *testing.T) {
	srv, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/licenses/validate", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed body, got %d", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	srv, _, _ := newTestServer()

	payTransaction(t, srv, "Boutique Marie", "A1B2C3D4E5")
	payTransaction(t, srv, "Salon Awa", "F6G7H8I9J0")
	if _, err := srv.Ledger.CreateTransaction(context.Background(), "Kiosque K", "K1K2K3K4K5", ""); err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.PaidCount != 2 {
		t.Errorf("Expected 2 paid transactions, got %d", resp.PaidCount)
	}
	if resp.PendingCount != 1 {
		t.Errorf("Expected 1 pending transaction, got %d", resp.PendingCount)
	}
	if resp.ActiveLicenses != 2 {
		t.Errorf("Expected 2 active licenses, got %d", resp.ActiveLicenses)
	}
	if resp.Revenue != 2*models.LicensePrice {
		t.Errorf("Expected revenue %d, got %d", 2*models.LicensePrice, resp.Revenue)
	}
}
