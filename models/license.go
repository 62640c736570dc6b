package models

import "time"

const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// ValidityDays is the fixed validity window of a license.
const ValidityDays = 365

// License is the durable grant resulting from a paid transaction. It is
// created once, never mutated and never deleted; expiry is a computed view.
type License struct {
	ID                  string    `json:"id"`
	Code                string    `json:"code"`
	BusinessName        string    `json:"business_name"`
	DeviceID            string    `json:"device_id"`
	ActivatedAt         time.Time `json:"activated_at"`
	ExpiresAt           time.Time `json:"expires_at"`
	Status              string    `json:"status"`
	SourceTransactionID string    `json:"source_transaction_id,omitempty"`
}

// Expired reports whether the license is past its validity window at the
// given instant. A license is still valid at the exact expiry instant.
func (l *License) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// EffectiveStatus resolves the read-time status, folding expiry in.
func (l *License) EffectiveStatus(now time.Time) string {
	if l.Expired(now) {
		return StatusExpired
	}
	return l.Status
}
