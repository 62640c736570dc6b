package models

import "time"

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

// LicensePrice is the fixed price of a one-year license, in CFA francs.
const LicensePrice int64 = 2500

const Currency = "XOF"

// Transaction records one payment attempt. Code is set exactly once, when
// the transaction transitions to paid, and never changes afterwards.
type Transaction struct {
	ID                string     `json:"id"`
	BusinessName      string     `json:"business_name"`
	DeviceID          string     `json:"device_id"`
	PhoneNumber       string     `json:"phone_number,omitempty"`
	Amount            int64      `json:"amount"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	Code              string     `json:"code,omitempty"`
	ProviderReference string     `json:"provider_reference,omitempty"`
}

func (t *Transaction) Paid() bool {
	return t.Status == StatusPaid
}
