package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"recusapp.app/cloud/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore backs the ledger with a durable SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:   db,
		path: path,
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	query := `SELECT id, business_name, device_id, phone_number, amount, status, created_at, paid_at, code, provider_reference FROM transactions WHERE id = ?`
	return s.scanTransaction(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) FindTransactionByProviderReference(ctx context.Context, reference string) (*models.Transaction, error) {
	if reference == "" {
		return nil, nil
	}
	query := `SELECT id, business_name, device_id, phone_number, amount, status, created_at, paid_at, code, provider_reference FROM transactions WHERE provider_reference = ?`
	return s.scanTransaction(s.db.QueryRowContext(ctx, query, reference))
}

func (s *SQLiteStore) scanTransaction(row *sql.Row) (*models.Transaction, error) {
	var tx models.Transaction
	var paidAt sql.NullTime
	err := row.Scan(
		&tx.ID,
		&tx.BusinessName,
		&tx.DeviceID,
		&tx.PhoneNumber,
		&tx.Amount,
		&tx.Status,
		&tx.CreatedAt,
		&paidAt,
		&tx.Code,
		&tx.ProviderReference,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if paidAt.Valid {
		tx.PaidAt = &paidAt.Time
	}
	return &tx, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	query := `SELECT id, business_name, device_id, phone_number, amount, status, created_at, paid_at, code, provider_reference FROM transactions`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var paidAt sql.NullTime
		err := rows.Scan(
			&tx.ID,
			&tx.BusinessName,
			&tx.DeviceID,
			&tx.PhoneNumber,
			&tx.Amount,
			&tx.Status,
			&tx.CreatedAt,
			&paidAt,
			&tx.Code,
			&tx.ProviderReference,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if paidAt.Valid {
			tx.PaidAt = &paidAt.Time
		}
		transactions = append(transactions, &tx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func (s *SQLiteStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `INSERT OR REPLACE INTO transactions (id, business_name, device_id, phone_number, amount, status, created_at, paid_at, code, provider_reference) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var paidAt sql.NullTime
	if tx.PaidAt != nil {
		paidAt = sql.NullTime{Time: *tx.PaidAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.BusinessName,
		tx.DeviceID,
		tx.PhoneNumber,
		tx.Amount,
		tx.Status,
		tx.CreatedAt,
		paidAt,
		tx.Code,
		tx.ProviderReference,
	)

	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	return nil
}

func (s *SQLiteStore) GetLicense(ctx context.Context, code string) (*models.License, error) {
	query := `SELECT id, code, business_name, device_id, activated_at, expires_at, status, source_transaction_id FROM licenses WHERE code = ?`

	var license models.License
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&license.ID,
		&license.Code,
		&license.BusinessName,
		&license.DeviceID,
		&license.ActivatedAt,
		&license.ExpiresAt,
		&license.Status,
		&license.SourceTransactionID,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &license, nil
}

func (s *SQLiteStore) ListLicenses(ctx context.Context) ([]*models.License, error) {
	query := `SELECT id, code, business_name, device_id, activated_at, expires_at, status, source_transaction_id FROM licenses`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query licenses: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	var licenses []*models.License
	for rows.Next() {
		var license models.License
		err := rows.Scan(
			&license.ID,
			&license.Code,
			&license.BusinessName,
			&license.DeviceID,
			&license.ActivatedAt,
			&license.ExpiresAt,
			&license.Status,
			&license.SourceTransactionID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan license: %w", err)
		}
		licenses = append(licenses, &license)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating licenses: %w", err)
	}

	return licenses, nil
}

func (s *SQLiteStore) SaveLicense(ctx context.Context, license *models.License) error {
	query := `INSERT OR REPLACE INTO licenses (id, code, business_name, device_id, activated_at, expires_at, status, source_transaction_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		license.ID,
		license.Code,
		license.BusinessName,
		license.DeviceID,
		license.ActivatedAt,
		license.ExpiresAt,
		license.Status,
		license.SourceTransactionID,
	)

	if err != nil {
		return fmt.Errorf("failed to save license: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
