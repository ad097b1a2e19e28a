package lead

import (
	"context"
	"fmt"
	"time"

	"redline/internal/adapters/storage"
	domain "redline/internal/domain/lead"
)

// SQLiteStore implements Store over the lead table.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a lead store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts l.
func (s *SQLiteStore) Save(ctx context.Context, l domain.Lead) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lead (id, email, lang, created_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.Email, l.Lang, l.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// Count returns the number of stored leads.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lead`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}
