package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	leadStore "redline/internal/adapters/storage/lead"
	outboxStore "redline/internal/adapters/storage/outbox"
	domain "redline/internal/domain/lead"
	domainOutbox "redline/internal/domain/outbox"
)

// CaptureLeadCommand is a fake-door submission. Email may be empty.
type CaptureLeadCommand struct {
	Email string
	Lang  string
}

// CaptureLeadDeps are the collaborators for ExecuteCaptureLead.
type CaptureLeadDeps struct {
	Leads  leadStore.Store
	Outbox outboxStore.Store
	// NotifyTo receives a notification per lead. Empty disables it.
	NotifyTo   string
	GenerateID func() string
	Now        func() time.Time
	Log        *zap.Logger
}

// LeadNotificationPayload is the outbox payload for ActionTypeLeadNotification.
type LeadNotificationPayload struct {
	To        string    `json:"to"`
	LeadID    string    `json:"lead_id"`
	Email     string    `json:"email"`
	Lang      string    `json:"lang"`
	CreatedAt time.Time `json:"created_at"`
}

// ExecuteCaptureLead stores the lead and queues the team notification.
// PRE: none
// POST: lead persisted; when NotifyTo is set an outbox entry is pending
// INVARIANT: a failure to queue the notification does not fail the capture
func ExecuteCaptureLead(ctx context.Context, cmd CaptureLeadCommand, deps CaptureLeadDeps) (domain.Lead, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	genID := deps.GenerateID
	if genID == nil {
		genID = uuid.NewString
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	l := domain.Lead{ID: genID(), Email: cmd.Email, Lang: cmd.Lang, CreatedAt: now().UTC()}
	l.Normalize()
	if err := l.Validate(); err != nil {
		return domain.Lead{}, err
	}
	if err := deps.Leads.Save(ctx, l); err != nil {
		return domain.Lead{}, fmt.Errorf("save lead: %w", err)
	}
	log.Info("lead_captured", zap.String("lead_id", l.ID), zap.Bool("has_email", l.HasEmail()))

	if deps.NotifyTo == "" || deps.Outbox == nil {
		return l, nil
	}
	if err := enqueueLeadNotification(ctx, deps, l, genID()); err != nil {
		log.Error("lead_notification_enqueue_failed", zap.String("lead_id", l.ID), zap.Error(err))
	}
	return l, nil
}

func enqueueLeadNotification(ctx context.Context, deps CaptureLeadDeps, l domain.Lead, entryID string) error {
	payload, err := json.Marshal(LeadNotificationPayload{
		To:        deps.NotifyTo,
		LeadID:    l.ID,
		Email:     l.Email,
		Lang:      l.Lang,
		CreatedAt: l.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	entry := domainOutbox.Entry{
		ID:         entryID,
		ActionType: domainOutbox.ActionTypeLeadNotification,
		Payload:    string(payload),
		CreatedAt:  l.CreatedAt,
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return deps.Outbox.Save(ctx, entry)
}
