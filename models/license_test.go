package models

import (
	"testing"
	"time"
)

func TestLicense_Expired(t *testing.T) {
	expiresAt := time.Date(2027, 3, 10, 12, 0, 0, 0, time.UTC)
	license := License{
		Code:      "ABCD-1234-EF56",
		ExpiresAt: expiresAt,
		Status:    StatusActive,
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before expiry", expiresAt.AddDate(0, -6, 0), false},
		{"at the expiry instant", expiresAt, false},
		{"one second after", expiresAt.Add(time.Second), true},
		{"a year after", expiresAt.AddDate(1, 0, 0), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := license.Expired(tc.now); got != tc.want {
				t.Errorf("Expired(%v) = %v, want %v", tc.now, got, tc.want)
			}
		})
	}
}

func TestLicense_EffectiveStatus(t *testing.T) {
	expiresAt := time.Date(2027, 3, 10, 12, 0, 0, 0, time.UTC)
	license := License{Status: StatusActive, ExpiresAt: expiresAt}

	if got := license.EffectiveStatus(expiresAt.AddDate(0, -1, 0)); got != StatusActive {
		t.Errorf("Expected %q before expiry, got %q", StatusActive, got)
	}
	if got := license.EffectiveStatus(expiresAt.Add(time.Second)); got != StatusExpired {
		t.Errorf("Expected %q after expiry, got %q", StatusExpired, got)
	}
}

func TestTransaction_Paid(t *testing.T) {
	tx := Transaction{Status: StatusPending}
	if tx.Paid() {
		t.Errorf("Expected pending transaction not to be paid")
	}

	tx.Status = StatusPaid
	if !tx.Paid() {
		t.Errorf("Expected paid transaction to report paid")
	}

	tx.Status = StatusFailed
	if tx.Paid() {
		t.Errorf("Expected failed transaction not to be paid")
	}
}
