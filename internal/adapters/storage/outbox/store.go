package outbox

import (
	"context"

	domain "redline/internal/domain/outbox"
)

// Store defines persistence for outbox entries.
type Store interface {
	// GetByID retrieves an entry.
	// PRE: id is non-empty
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save inserts or updates an entry.
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns pending or retrying entries, oldest first.
	// PRE: limit > 0
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListFailed returns entries that exhausted their attempts, most
	// recently attempted first.
	// PRE: limit > 0
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)
}
