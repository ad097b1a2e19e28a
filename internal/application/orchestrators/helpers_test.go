package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"redline/internal/adapters/producer"
	"redline/internal/adapters/storage"
	"redline/internal/adapters/storage/confirmation"
	sessionstore "redline/internal/adapters/storage/session"
	"redline/internal/application/sessionstate"
	"redline/internal/domain/payment"
	"redline/internal/domain/report"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestState(t *testing.T) *sessionstate.State {
	t.Helper()
	return sessionstate.New(sessionstore.NewSQLiteStore(openTestDB(t)), nil)
}

func sampleReport() report.Report {
	return report.Report{
		KeyRisks: []report.KeyRisk{
			{Type: report.RiskVagueClaim, Quote: "q1", Analysis: "a1", InterviewerIntent: "i1"},
			{Type: report.RiskExaggeration, Quote: "q2", Analysis: "a2", InterviewerIntent: "i2"},
		},
		PressureQuestions: []report.PressureQuestion{{Question: "Why?", Goal: "g"}},
	}
}

// stubProducer records calls and can observe the session while running.
type stubProducer struct {
	report report.Report
	err    error
	calls  int
	lastIn producer.Input
	onCall func()
}

func (s *stubProducer) ProduceReport(_ context.Context, in producer.Input) (report.Report, error) {
	s.calls++
	s.lastIn = in
	if s.onCall != nil {
		s.onCall()
	}
	return s.report, s.err
}

// countingConfirmer counts calls and returns a fixed result.
type countingConfirmer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingConfirmer) Confirm(_ context.Context, p payment.ReturnParams) (payment.Confirmation, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return payment.Confirmation{}, c.err
	}
	return payment.Confirmation{OrderID: p.OrderID, Amount: p.Amount}, nil
}

// memLedger is an in-memory confirmation.Store.
type memLedger struct {
	mu      sync.Mutex
	records map[string]payment.Record
}

func newMemLedger() *memLedger { return &memLedger{records: map[string]payment.Record{}} }

func (m *memLedger) GetByOrderID(_ context.Context, orderID string) (payment.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[orderID]
	if !ok {
		return payment.Record{}, confirmation.ErrNotFound
	}
	return r, nil
}

func (m *memLedger) Insert(_ context.Context, r payment.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.OrderID]; ok {
		return errors.New("duplicate order")
	}
	m.records[r.OrderID] = r
	return nil
}

// fakeAPI is a gateway.PaymentsAPI that counts calls.
type fakeAPI struct {
	calls int
	err   error
}

func (f *fakeAPI) Confirm(context.Context, string, string, int64) error {
	f.calls++
	return f.err
}
