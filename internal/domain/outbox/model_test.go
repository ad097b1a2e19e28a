package outbox_test

import (
	"errors"
	"testing"
	"time"

	"redline/internal/domain/outbox"
)

func TestEntry_Validate(t *testing.T) {
	e := outbox.Entry{ActionType: outbox.ActionTypeLeadNotification, Payload: "{}", CreatedAt: time.Now()}
	if err := e.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if e.MaxAttempts != outbox.DefaultMaxAttempts || e.Status != outbox.StatusPending {
		t.Errorf("defaults not applied: %+v", e)
	}

	missing := []outbox.Entry{
		{Payload: "{}", CreatedAt: time.Now()},
		{ActionType: "x", CreatedAt: time.Now()},
		{ActionType: "x", Payload: "{}"},
	}
	for i, m := range missing {
		if err := m.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestEntry_Lifecycle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := outbox.Entry{ActionType: outbox.ActionTypeLeadNotification, Payload: "{}", CreatedAt: now, MaxAttempts: 2, Status: outbox.StatusPending}

	if !e.Due(now, time.Second, time.Minute) {
		t.Fatal("fresh entry should be due")
	}
	e.MarkAttempt(now)
	e.MarkFailed(errors.New("smtp down"))
	if e.Status != outbox.StatusRetrying {
		t.Fatalf("Status = %q after first failure", e.Status)
	}
	if e.Due(now, time.Second, time.Minute) {
		t.Error("entry should wait for backoff")
	}
	if !e.Due(now.Add(time.Second), time.Second, time.Minute) {
		t.Error("entry should be due after backoff")
	}

	e.MarkAttempt(now.Add(time.Second))
	e.MarkFailed(errors.New("smtp down"))
	if e.Status != outbox.StatusFailed {
		t.Fatalf("Status = %q, want failed after max attempts", e.Status)
	}
	if e.Due(now.Add(time.Hour), time.Second, time.Minute) {
		t.Error("failed entry must not be due")
	}
}

func TestEntry_NextRetryDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		e := outbox.Entry{Attempts: tt.attempts}
		if got := e.NextRetryDelay(time.Second, 30*time.Second); got != tt.want {
			t.Errorf("attempts=%d: got %v, want %v", tt.attempts, got, tt.want)
		}
	}
}
