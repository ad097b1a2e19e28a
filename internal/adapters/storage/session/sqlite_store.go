package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"redline/internal/adapters/storage"
)

// timeLayout is fixed-width so updated_at compares correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps session values in the session_value table.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a session store over db.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, sid, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_value WHERE session_hash = ? AND key = ?`, sid, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session value %s: %w", key, err)
	}
	return v, true, nil
}

// All returns every value for sid.
func (s *SQLiteStore) All(ctx context.Context, sid string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM session_value WHERE session_hash = ?`, sid)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan session value: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set upserts the value and bumps updated_at on every row of the session so
// that Purge treats the whole session as active.
func (s *SQLiteStore) Set(ctx context.Context, sid, key, value string) error {
	now := s.now().UTC().Format(timeLayout)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO session_value (session_hash, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_hash, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sid, key, value, now); err != nil {
		return fmt.Errorf("set session value %s: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE session_value SET updated_at = ? WHERE session_hash = ? AND key <> ?`, now, sid, key); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Clear deletes key for sid.
func (s *SQLiteStore) Clear(ctx context.Context, sid, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_value WHERE session_hash = ? AND key = ?`, sid, key); err != nil {
		return fmt.Errorf("clear session value %s: %w", key, err)
	}
	return nil
}

// Purge deletes rows not updated since idleBefore.
func (s *SQLiteStore) Purge(ctx context.Context, idleBefore time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_value WHERE updated_at < ?`, idleBefore.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
