package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"recusapp.app/cloud/models"
)

const productName = "RecusApp licence (1 an)"

// StripeGateway implements Gateway with Stripe hosted checkout. The
// checkout session id doubles as the provider reference.
type StripeGateway struct {
	SuccessURL string
	CancelURL  string
}

func NewStripeGateway(apiKey, successURL, cancelURL string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, tx *models.Transaction) (*Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(models.Currency)),
					UnitAmount: stripe.Int64(tx.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(productName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.SuccessURL),
		CancelURL:  stripe.String(g.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("transaction_id", tx.ID)
	params.AddMetadata("business_name", tx.BusinessName)

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &Checkout{
		ProviderReference: sess.ID,
		RedirectURL:       sess.URL,
	}, nil
}

// VerifyWebhook checks the Stripe signature and parses the event.
func VerifyWebhook(payload []byte, signature, endpointSecret string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, endpointSecret)
}

// NoticeFromEvent reduces a Stripe event to the canonical Notice. Events
// that do not settle a payment one way or the other return (nil, nil) and
// are acknowledged without reaching the ledger.
func NoticeFromEvent(event stripe.Event) (*Notice, error) {
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded", "checkout.session.async_payment_failed":
	default:
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	notice := &Notice{ProviderReference: sess.ID}

	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		notice.PayerEmail = sess.CustomerDetails.Email
	} else {
		notice.PayerEmail = sess.CustomerEmail
	}

	switch {
	case event.Type == "checkout.session.async_payment_failed":
		notice.Status = StatusFailed
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		notice.Status = StatusApproved
	default:
		// Completed but unpaid: an async payment method still settling
		notice.Status = string(sess.PaymentStatus)
	}

	return notice, nil
}
