package confirmation

import (
	"context"
	"errors"

	"redline/internal/domain/payment"
)

// ErrNotFound is returned when no confirmation exists for an order.
var ErrNotFound = errors.New("confirmation not found")

// Store is the ledger of confirmed orders.
type Store interface {
	// GetByOrderID returns the record for orderID or ErrNotFound.
	GetByOrderID(ctx context.Context, orderID string) (payment.Record, error)

	// Insert records a confirmation. Inserting an order twice fails.
	Insert(ctx context.Context, r payment.Record) error
}
