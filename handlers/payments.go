package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"recusapp.app/cloud/internal/logger"
	"recusapp.app/cloud/models"
)

type CreatePaymentRequest struct {
	BusinessName string `json:"business_name"`
	DeviceID     string `json:"device_id"`
	PhoneNumber  string `json:"phone_number,omitempty"`
}

type CreatePaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentURL    string `json:"payment_url,omitempty"`
}

// CreatePayment opens a pending transaction and, when a gateway is
// configured, a hosted checkout session. The gateway call happens after the
// ledger write, never inside it.
func (s *Server) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}

	tx, err := s.Ledger.CreateTransaction(r.Context(), req.BusinessName, req.DeviceID, req.PhoneNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("Transaction created", map[string]interface{}{
		"transaction_id": tx.ID,
		"business_name":  tx.BusinessName,
	})

	resp := CreatePaymentResponse{
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Currency:      models.Currency,
	}

	if s.Gateway != nil {
		checkout, err := s.Gateway.CreateCheckout(r.Context(), tx)
		if err != nil {
			// The transaction stays pending; it can still be settled
			// through manual confirmation.
			logger.Error("Failed to create checkout session", map[string]interface{}{
				"error":          err.Error(),
				"transaction_id": tx.ID,
			})
		} else {
			if _, err := s.Ledger.AttachProviderReference(r.Context(), tx.ID, checkout.ProviderReference); err != nil {
				writeError(w, r, err)
				return
			}
			resp.PaymentURL = checkout.RedirectURL
		}
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

type PaymentStatusResponse struct {
	TransactionID string     `json:"transaction_id"`
	Status        string     `json:"status"`
	Code          string     `json:"code,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func (s *Server) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tx, err := s.Ledger.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, PaymentStatusResponse{
		TransactionID: tx.ID,
		Status:        tx.Status,
		Code:          tx.Code,
		PaidAt:        tx.PaidAt,
	})
}

type ConfirmPaymentRequest struct {
	Reference string `json:"reference"`
}

type ConfirmPaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Code          string `json:"code"`
}

// ConfirmPayment settles a transaction on a manual, free-text reference.
// Safe to retry: an already-paid transaction keeps its code.
func (s *Server) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "Invalid request body")
		return
	}

	tx, err := s.Ledger.MarkPaid(r.Context(), id, req.Reference)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Info("Transaction confirmed", map[string]interface{}{
		"transaction_id": tx.ID,
	})

	render.JSON(w, r, ConfirmPaymentResponse{
		TransactionID: tx.ID,
		Status:        tx.Status,
		Code:          tx.Code,
	})
}
