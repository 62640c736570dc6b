package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"recusapp.app/cloud/internal/logger"
	"recusapp.app/cloud/ledger"
)

type ValidateRequest struct {
	Code         string `json:"code"`
	BusinessName string `json:"business_name"`
	DeviceID     string `json:"device_id"`
}

type ValidateResponse struct {
	Valid        bool       `json:"valid"`
	Reason       string     `json:"reason,omitempty"`
	Message      string     `json:"message"`
	BusinessName string     `json:"business_name,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// ValidateLicense checks a candidate code. Negative outcomes are reported
// as 200 with valid=false and a reason tag; they are classifications, not
// request failures.
func (s *Server) ValidateLicense(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}

	outcome, err := s.Ledger.ValidateLicense(r.Context(), req.Code, req.BusinessName, req.DeviceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !outcome.Valid {
		logger.Info("License validation rejected", map[string]interface{}{
			"reason": outcome.Reason,
		})
		render.JSON(w, r, ValidateResponse{
			Valid:   false,
			Reason:  outcome.Reason,
			Message: rejectionMessage(outcome.Reason),
		})
		return
	}

	expiresAt := outcome.ExpiresAt
	render.JSON(w, r, ValidateResponse{
		Valid:        true,
		Message:      "License valid",
		BusinessName: outcome.BusinessName,
		ExpiresAt:    &expiresAt,
	})
}

func rejectionMessage(reason string) string {
	switch reason {
	case ledger.ReasonDeviceMismatch:
		return "Code not valid for this device"
	case ledger.ReasonExpired:
		return "License expired"
	default:
		return "Invalid code"
	}
}

type StatsResponse struct {
	PaidCount        int   `json:"paid_count"`
	PendingCount     int   `json:"pending_count"`
	ActiveLicenses   int   `json:"active_licenses"`
	Revenue          int64 `json:"revenue"`
	WebhookReceived  int64 `json:"webhook_events_received"`
	WebhookProcessed int64 `json:"webhook_events_processed"`
}

func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Ledger.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, StatsResponse{
		PaidCount:        stats.PaidCount,
		PendingCount:     stats.PendingCount,
		ActiveLicenses:   stats.ActiveLicenses,
		Revenue:          stats.Revenue,
		WebhookReceived:  s.webhookReceived.Load(),
		WebhookProcessed: s.webhookProcessed.Load(),
	})
}
