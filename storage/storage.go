package storage

import (
	"context"
	"sync"

	"recusapp.app/cloud/models"
)

// Store owns the two keyed collections the ledger works against:
// transactions by id and licenses by code. A missing record is reported as
// (nil, nil); errors are reserved for infrastructure faults.
type Store interface {
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	FindTransactionByProviderReference(ctx context.Context, reference string) (*models.Transaction, error)
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	SaveTransaction(ctx context.Context, tx *models.Transaction) error

	GetLicense(ctx context.Context, code string) (*models.License, error)
	ListLicenses(ctx context.Context) ([]*models.License, error)
	SaveLicense(ctx context.Context, license *models.License) error

	Close() error
}

// MemoryStore keeps all state in process memory. This is the reference
// behavior: state does not survive a restart. Safe for concurrent use;
// readers and writers can arrive on different goroutines.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]models.Transaction
	licenses     map[string]models.License
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]models.Transaction),
		licenses:     make(map[string]models.License),
	}
}

func (m *MemoryStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, exists := m.transactions[id]
	if !exists {
		return nil, nil
	}
	return &tx, nil
}

func (m *MemoryStore) FindTransactionByProviderReference(ctx context.Context, reference string) (*models.Transaction, error) {
	if reference == "" {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, tx := range m.transactions {
		if tx.ProviderReference == reference {
			txCopy := tx
			return &txCopy, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var transactions []*models.Transaction
	for _, tx := range m.transactions {
		txCopy := tx
		transactions = append(transactions, &txCopy)
	}
	return transactions, nil
}

func (m *MemoryStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transactions == nil {
		m.transactions = make(map[string]models.Transaction)
	}
	m.transactions[tx.ID] = *tx
	return nil
}

func (m *MemoryStore) GetLicense(ctx context.Context, code string) (*models.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	license, exists := m.licenses[code]
	if !exists {
		return nil, nil
	}
	return &license, nil
}

func (m *MemoryStore) ListLicenses(ctx context.Context) ([]*models.License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var licenses []*models.License
	for _, license := range m.licenses {
		licenseCopy := license
		licenses = append(licenses, &licenseCopy)
	}
	return licenses, nil
}

func (m *MemoryStore) SaveLicense(ctx context.Context, license *models.License) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.licenses == nil {
		m.licenses = make(map[string]models.License)
	}
	m.licenses[license.Code] = *license
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
