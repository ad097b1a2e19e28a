package confirmation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"redline/internal/adapters/storage"
	"redline/internal/domain/payment"
)

// SQLiteStore implements Store over payment_confirmation.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a ledger store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByOrderID loads one ledger row.
func (s *SQLiteStore) GetByOrderID(ctx context.Context, orderID string) (payment.Record, error) {
	var r payment.Record
	var confirmedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT order_id, payment_key, amount, status, confirmed_at FROM payment_confirmation WHERE order_id = ?`,
		orderID).Scan(&r.OrderID, &r.PaymentKey, &r.Amount, &r.Status, &confirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Record{}, ErrNotFound
	}
	if err != nil {
		return payment.Record{}, fmt.Errorf("get confirmation %s: %w", orderID, err)
	}
	r.ConfirmedAt, _ = time.Parse(time.RFC3339Nano, confirmedAt)
	return r, nil
}

// Insert writes a new ledger row.
func (s *SQLiteStore) Insert(ctx context.Context, r payment.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_confirmation (order_id, payment_key, amount, status, confirmed_at) VALUES (?, ?, ?, ?, ?)`,
		r.OrderID, r.PaymentKey, r.Amount, r.Status, r.ConfirmedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert confirmation %s: %w", r.OrderID, err)
	}
	return nil
}
