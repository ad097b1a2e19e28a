package storage

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"redline/internal/adapters/http/perf"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var _ SQLDB = (*sql.DB)(nil)

// DefaultSlowQuery is the threshold above which a query is logged at warn.
const DefaultSlowQuery = 50 * time.Millisecond

// SlowQueryFromEnv reads REDLINE_SLOW_QUERY_MS, falling back to DefaultSlowQuery.
func SlowQueryFromEnv() time.Duration {
	if v := os.Getenv("REDLINE_SLOW_QUERY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return DefaultSlowQuery
}

// TimedDB wraps a *sql.DB to log slow queries and feed the perf collector.
type TimedDB struct {
	db        *sql.DB
	log       *zap.Logger
	collector *perf.Collector
	threshold time.Duration
}

var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db with timing instrumentation. collector may be nil.
// PRE: db is a valid database connection
// POST: Returns a TimedDB that logs slow queries and records to collector
func NewTimedDB(db *sql.DB, log *zap.Logger, collector *perf.Collector, threshold time.Duration) *TimedDB {
	if log == nil {
		log = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, log: log.Named("db"), collector: collector, threshold: threshold}
}

// RawDB returns the underlying *sql.DB for migrations and pool config.
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

func (t *TimedDB) observe(op, query string, start time.Time, err error) {
	elapsed := time.Since(start)
	fields := []zap.Field{
		zap.String("op", op),
		zap.Duration("duration", elapsed),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if elapsed >= t.threshold {
		t.log.Warn("slow_query", append(fields, zap.String("query", firstLine(query)))...)
	} else if ce := t.log.Check(zap.DebugLevel, "query"); ce != nil {
		ce.Write(fields...)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       op + " " + firstLine(query),
			DurationMs: float64(elapsed.Microseconds()) / 1000.0,
			Failed:     err != nil,
			Timestamp:  start,
		})
	}
}

// ExecContext wraps sql.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	t.observe("exec", query, start, err)
	return result, err
}

// QueryContext wraps sql.DB.QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe("query", query, start, err)
	return rows, err
}

// QueryRowContext wraps sql.DB.QueryRowContext with timing. Errors surface
// on Scan, so they are not visible here.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe("query_row", query, start, nil)
	return row
}

// BeginTx wraps sql.DB.BeginTx with timing.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.observe("begin", "BEGIN", start, err)
	return tx, err
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// PingContext verifies the database connection.
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// firstLine trims a query to its first line, capped at 80 bytes, for log and
// collector keys.
func firstLine(q string) string {
	for i := 0; i < len(q); i++ {
		if q[i] == '\n' {
			q = q[:i]
			break
		}
	}
	if len(q) > 80 {
		q = q[:80]
	}
	return q
}
