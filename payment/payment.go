// Package payment isolates the third-party payment gateway. The rest of the
// system only ever sees the Gateway interface and the canonical Notice shape;
// provider-specific payload layouts stop at this boundary.
package payment

import (
	"context"

	"recusapp.app/cloud/models"
)

// Checkout is the result of initiating a hosted checkout session.
type Checkout struct {
	ProviderReference string
	RedirectURL       string
}

// Gateway creates hosted checkout sessions with the payment provider.
type Gateway interface {
	CreateCheckout(ctx context.Context, tx *models.Transaction) (*Checkout, error)
}

// Canonical provider statuses after normalization.
const (
	StatusApproved = "approved"
	StatusFailed   = "failed"
)

// Notice is the single shape every inbound payment notification is reduced
// to before it reaches the ledger.
type Notice struct {
	ProviderReference string
	Status            string
	PayerEmail        string
}

// Paid reports whether the provider confirmed the payment.
func (n *Notice) Paid() bool {
	return n.Status == StatusApproved
}

func (n *Notice) Failed() bool {
	return n.Status == StatusFailed
}
