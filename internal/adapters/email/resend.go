package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
	log     *zap.Logger
}

// NewResendSender creates a sender with the given API key and default
// from/reply-to addresses.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
func NewResendSender(apiKey, from, replyTo string, log *zap.Logger) *ResendSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResendSender{
		client:  resend.NewClient(apiKey),
		from:    from,
		replyTo: replyTo,
		log:     log.Named("email"),
	}
}

// Send sends a single email via Resend.
// PRE: req has at least one recipient and a subject
// POST: Email is queued for delivery; returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if len(req.To) == 0 {
		return SendResult{}, errors.New("resend send: no recipients")
	}
	from := req.From
	if from == "" {
		from = s.from
	}
	replyTo := req.ReplyTo
	if replyTo == "" {
		replyTo = s.replyTo
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
	}
	if replyTo != "" {
		params.ReplyTo = replyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.log.Error("resend_send_failed", zap.Error(err), zap.Strings("to", req.To), zap.String("subject", req.Subject))
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	s.log.Info("resend_sent", zap.String("message_id", sent.Id), zap.Strings("to", req.To), zap.String("subject", req.Subject))
	return SendResult{
		MessageID: sent.Id,
		SentAt:    time.Now(),
	}, nil
}
