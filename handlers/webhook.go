package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v82"

	"recusapp.app/cloud/internal/logger"
	"recusapp.app/cloud/ledger"
	"recusapp.app/cloud/models"
	"recusapp.app/cloud/payment"
)

const maxWebhookBodyBytes = int64(65536)

// StripeWebhook receives asynchronous payment notifications. The payload is
// reduced to a canonical payment.Notice before anything touches the ledger;
// only an approved notice triggers the paid transition.
func (s *Server) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	s.webhookReceived.Inc()

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read webhook payload", map[string]interface{}{
			"error": err.Error(),
		})
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var event stripe.Event
	if s.cfg.TestMode {
		logger.Debug("Skipping webhook signature verification (test mode)")
		if err := json.Unmarshal(payload, &event); err != nil {
			logger.Error("Failed to parse webhook JSON", map[string]interface{}{
				"error": err.Error(),
			})
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	} else {
		event, err = payment.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"), s.cfg.WebhookSecret)
		if err != nil {
			logger.Error("Webhook signature verification failed", map[string]interface{}{
				"error": err.Error(),
			})
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	logger.Info("Stripe event received", map[string]interface{}{
		"event_type": event.Type,
		"event_id":   event.ID,
	})

	notice, err := payment.NoticeFromEvent(event)
	if err != nil {
		logger.Error("Failed to normalize webhook event", map[string]interface{}{
			"error":    err.Error(),
			"event_id": event.ID,
		})
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if notice == nil || (!notice.Paid() && !notice.Failed()) {
		logger.Info("Webhook event ignored", map[string]interface{}{
			"event_type": event.Type,
			"event_id":   event.ID,
		})
		render.JSON(w, r, map[string]string{"received": "true"})
		return
	}

	if err := s.applyNotice(r, notice); err != nil {
		if ledger.IsNotFound(err) {
			logger.Warn("No transaction for provider reference", map[string]interface{}{
				"provider_reference": notice.ProviderReference,
			})
			writeError(w, r, err)
			return
		}
		logger.Error("Failed to process payment notice", map[string]interface{}{
			"error":              err.Error(),
			"provider_reference": notice.ProviderReference,
		})
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	s.webhookProcessed.Inc()
	render.JSON(w, r, map[string]string{"received": "true"})
}

func (s *Server) applyNotice(r *http.Request, notice *payment.Notice) error {
	ctx := r.Context()

	tx, err := s.Ledger.TransactionByProviderReference(ctx, notice.ProviderReference)
	if err != nil {
		return err
	}

	if notice.Failed() {
		_, err := s.Ledger.MarkFailed(ctx, tx.ID)
		return err
	}

	paid, err := s.Ledger.MarkPaid(ctx, tx.ID, notice.ProviderReference)
	if err != nil {
		return err
	}

	logger.Info("Transaction settled", map[string]interface{}{
		"transaction_id":     paid.ID,
		"provider_reference": notice.ProviderReference,
	})

	expiresAt := paid.PaidAt.AddDate(0, 0, models.ValidityDays)
	s.sendCodeEmail(paid.Code, paid.BusinessName, notice.PayerEmail, expiresAt)
	return nil
}

// sendCodeEmail is best effort: the license exists whether or not the mail
// goes out.
func (s *Server) sendCodeEmail(code, businessName, to string, expiresAt time.Time) {
	if to == "" || s.Email == nil || !s.Email.Configured() {
		return
	}

	if err := s.Email.SendActivationCode(to, code, businessName, expiresAt); err != nil {
		logger.Error("Failed to send activation email", map[string]interface{}{
			"error": err.Error(),
			"email": to,
		})
		return
	}

	logger.Info("Activation email sent", map[string]interface{}{
		"email": to,
	})
}
