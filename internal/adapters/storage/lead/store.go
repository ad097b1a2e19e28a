package lead

import (
	"context"

	domain "redline/internal/domain/lead"
)

// Store defines persistence for captured leads.
type Store interface {
	// Save inserts a lead.
	// PRE: l has been validated
	Save(ctx context.Context, l domain.Lead) error

	// Count returns how many leads have been captured.
	Count(ctx context.Context) (int, error)
}
