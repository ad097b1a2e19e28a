package email

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// NoopSender logs sends without delivering them. Used when no Resend key is
// configured.
type NoopSender struct {
	log *zap.Logger
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender(log *zap.Logger) *NoopSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoopSender{log: log.Named("email")}
}

// Send logs the email but does not deliver it.
// POST: Returns a noop result without actual delivery
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	s.log.Info("noop_email_send", zap.Strings("to", req.To), zap.String("subject", req.Subject))
	now := time.Now()
	return SendResult{
		MessageID: fmt.Sprintf("noop-%d", now.UnixNano()),
		SentAt:    now,
	}, nil
}
