// Package ledger tracks payment transactions and the licenses they produce.
// It is the only component that mutates shared state; code derivation is
// delegated to the license engine.
package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"recusapp.app/cloud/license"
	"recusapp.app/cloud/models"
	"recusapp.app/cloud/storage"
)

type Ledger struct {
	store  storage.Store
	engine *license.Engine

	// Now is the clock used for timestamps and expiry checks.
	// Nil means time.Now.
	Now func() time.Time

	// mu serializes every read-modify-write on the shared collections.
	// Gateway I/O never happens while this is held.
	mu sync.Mutex
}

func New(store storage.Store, engine *license.Engine) *Ledger {
	return &Ledger{
		store:  store,
		engine: engine,
		Now:    time.Now,
	}
}

// NewTransactionID returns a fresh opaque token: 32 uppercase hex characters.
func NewTransactionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate transaction id: %w", err)
	}
	return fmt.Sprintf("%X", bytes), nil
}

// CreateTransaction inserts a pending transaction at the fixed license
// price. It does not contact any payment system.
func (l *Ledger) CreateTransaction(ctx context.Context, businessName, deviceID, phoneNumber string) (*models.Transaction, error) {
	if strings.TrimSpace(businessName) == "" {
		return nil, newError(ReasonValidationError, "business_name is required")
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, newError(ReasonValidationError, "device_id is required")
	}

	id, err := NewTransactionID()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &models.Transaction{
		ID:           id,
		BusinessName: businessName,
		DeviceID:     deviceID,
		PhoneNumber:  phoneNumber,
		Amount:       models.LicensePrice,
		Status:       models.StatusPending,
		CreatedAt:    l.now(),
	}

	if err := l.store.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	return tx, nil
}

// AttachProviderReference records the payment gateway's own id for a
// transaction once the hosted checkout has been created.
func (l *Ledger) AttachProviderReference(ctx context.Context, id, reference string) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, newError(ReasonNotFound, "transaction %s not found", id)
	}

	tx.ProviderReference = reference
	if err := l.store.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	return tx, nil
}

// GetTransaction looks up a transaction by id.
func (l *Ledger) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, newError(ReasonNotFound, "transaction %s not found", id)
	}
	return tx, nil
}

// TransactionByProviderReference correlates an asynchronous payment
// confirmation back to the locally created transaction.
func (l *Ledger) TransactionByProviderReference(ctx context.Context, reference string) (*models.Transaction, error) {
	tx, err := l.store.FindTransactionByProviderReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, newError(ReasonNotFound, "no transaction for provider reference %s", reference)
	}
	return tx, nil
}

// MarkPaid transitions a transaction to paid, derives its activation code
// and stores the resulting license. Idempotent: a transaction that is
// already paid keeps its original code. The derivation is day-sensitive,
// so re-deriving on a later retry would mint a second code for the same
// payment. The check happens before any derivation, under the lock.
func (l *Ledger) MarkPaid(ctx context.Context, id, providerReference string) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, newError(ReasonNotFound, "transaction %s not found", id)
	}

	if tx.Paid() {
		return tx, nil
	}

	now := l.now()
	code := l.engine.Derive(tx.BusinessName, tx.DeviceID, now)

	tx.Status = models.StatusPaid
	tx.PaidAt = &now
	tx.Code = code
	if providerReference != "" {
		tx.ProviderReference = providerReference
	}

	if err := l.store.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	lic := &models.License{
		ID:                  uuid.Must(uuid.NewRandom()).String(),
		Code:                code,
		BusinessName:        tx.BusinessName,
		DeviceID:            tx.DeviceID,
		ActivatedAt:         now,
		ExpiresAt:           now.AddDate(0, 0, models.ValidityDays),
		Status:              models.StatusActive,
		SourceTransactionID: tx.ID,
	}

	if err := l.store.SaveLicense(ctx, lic); err != nil {
		return nil, fmt.Errorf("failed to save license: %w", err)
	}

	return tx, nil
}

// MarkFailed records a failed payment. Paid transactions are left alone.
func (l *Ledger) MarkFailed(ctx context.Context, id string) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, newError(ReasonNotFound, "transaction %s not found", id)
	}

	if tx.Paid() {
		return tx, nil
	}

	tx.Status = models.StatusFailed
	if err := l.store.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	return tx, nil
}

// ValidationOutcome is the structured result of a license check. Negative
// outcomes carry a machine reason tag; they are classifications, not errors.
type ValidationOutcome struct {
	Valid        bool
	Reason       string
	BusinessName string
	ExpiresAt    time.Time
}

// ValidateLicense checks a candidate code for a business/device pair.
// The stored license record is authoritative; window re-derivation is the
// fallback for codes the store never saw, and a fallback hit lazily
// materializes a license with a fresh validity window.
func (l *Ledger) ValidateLicense(ctx context.Context, code, businessName, deviceID string) (*ValidationOutcome, error) {
	if strings.TrimSpace(code) == "" {
		return nil, newError(ReasonValidationError, "code is required")
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, newError(ReasonValidationError, "device_id is required")
	}

	canonical := license.Format(license.Normalize(code))

	l.mu.Lock()
	defer l.mu.Unlock()

	lic, err := l.store.GetLicense(ctx, canonical)
	if err != nil {
		return nil, err
	}

	if lic != nil {
		if lic.DeviceID != deviceID {
			return &ValidationOutcome{Valid: false, Reason: ReasonDeviceMismatch}, nil
		}
		if lic.Expired(l.now()) {
			return &ValidationOutcome{Valid: false, Reason: ReasonExpired}, nil
		}
		return &ValidationOutcome{
			Valid:        true,
			BusinessName: lic.BusinessName,
			ExpiresAt:    lic.ExpiresAt,
		}, nil
	}

	if l.engine.ValidateWindow(code, businessName, deviceID, license.DefaultWindowDays) {
		now := l.now()
		lic := &models.License{
			ID:           uuid.Must(uuid.NewRandom()).String(),
			Code:         canonical,
			BusinessName: businessName,
			DeviceID:     deviceID,
			ActivatedAt:  now,
			ExpiresAt:    now.AddDate(0, 0, models.ValidityDays),
			Status:       models.StatusActive,
		}
		if err := l.store.SaveLicense(ctx, lic); err != nil {
			return nil, fmt.Errorf("failed to save license: %w", err)
		}
		return &ValidationOutcome{
			Valid:        true,
			BusinessName: lic.BusinessName,
			ExpiresAt:    lic.ExpiresAt,
		}, nil
	}

	return &ValidationOutcome{Valid: false, Reason: ReasonInvalidCode}, nil
}

// Stats aggregates the ledger's counters. Read-only.
type Stats struct {
	PaidCount      int
	PendingCount   int
	ActiveLicenses int
	Revenue        int64
}

func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	transactions, err := l.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, tx := range transactions {
		switch tx.Status {
		case models.StatusPaid:
			stats.PaidCount++
		case models.StatusPending:
			stats.PendingCount++
		}
	}
	stats.Revenue = int64(stats.PaidCount) * models.LicensePrice

	licenses, err := l.store.ListLicenses(ctx)
	if err != nil {
		return nil, err
	}
	now := l.now()
	for _, lic := range licenses {
		if lic.EffectiveStatus(now) == models.StatusActive {
			stats.ActiveLicenses++
		}
	}

	return stats, nil
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
