package orchestrators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"redline/internal/adapters/email"
	outboxStore "redline/internal/adapters/storage/outbox"
	domain "redline/internal/domain/outbox"
)

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the action with the given payload and returns the
	// provider's id for it.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor delivers queued side effects with exponential backoff.
type OutboxProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	log       *zap.Logger
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// NewOutboxProcessor creates a processor with the default backoff.
func NewOutboxProcessor(store outboxStore.Store, executors map[string]ActionExecutor, log *zap.Logger) *OutboxProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		log:       log.Named("outbox"),
		now:       time.Now,
		baseDelay: 30 * time.Second,
		maxDelay:  time.Hour,
		batchSize: 10,
	}
}

// ProcessPending attempts every due entry once.
// PRE: Context is valid
// POST: attempted entries are saved with their new status
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}

	for _, entry := range entries {
		if err := p.processEntry(ctx, entry); err != nil {
			p.log.Error("outbox_process_failed", zap.String("entry_id", entry.ID), zap.String("action_type", entry.ActionType), zap.Error(err))
		}
	}
	return nil
}

func (p *OutboxProcessor) processEntry(ctx context.Context, entry domain.Entry) error {
	now := p.now()
	if !entry.Due(now, p.baseDelay, p.maxDelay) {
		return nil
	}

	executor, ok := p.executors[entry.ActionType]
	entry.MarkAttempt(now)
	if !ok {
		entry.MaxAttempts = entry.Attempts
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		return p.store.Save(ctx, entry)
	}

	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		p.log.Warn("outbox_action_failed", zap.String("entry_id", entry.ID), zap.Int("attempt", entry.Attempts), zap.Error(err))
	} else {
		entry.MarkSuccess(externalID)
		p.log.Info("outbox_action_succeeded", zap.String("entry_id", entry.ID), zap.String("action_type", entry.ActionType), zap.String("external_id", externalID))
	}
	return p.store.Save(ctx, entry)
}

// Run processes pending entries every interval until ctx is done.
func (p *OutboxProcessor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if err := p.ProcessPending(runCtx); err != nil {
				p.log.Error("outbox_background_process_failed", zap.Error(err))
			}
			cancel()
		case <-ctx.Done():
			p.log.Info("outbox_background_worker_stopped")
			return
		}
	}
}

// LeadNotificationExecutor emails the team about a captured lead.
type LeadNotificationExecutor struct {
	Sender email.Sender
}

// Execute sends the notification described by a LeadNotificationPayload.
// PRE: payload is valid JSON matching LeadNotificationPayload
// POST: email handed to the sender, returns its message ID
func (e *LeadNotificationExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p LeadNotificationPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.To == "" {
		return "", fmt.Errorf("lead notification has no recipient")
	}

	contact := p.Email
	if contact == "" {
		contact = "_no email left_"
	}
	md := fmt.Sprintf("## New REDLINE lead\n\n- **Email:** %s\n- **Language:** %s\n- **Captured:** %s\n",
		contact, p.Lang, p.CreatedAt.Format(time.RFC3339))
	var html bytes.Buffer
	if err := goldmark.Convert([]byte(md), &html); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}

	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:      []string{p.To},
		Subject: "New REDLINE lead",
		HTML:    html.String(),
		ReplyTo: p.Email,
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
