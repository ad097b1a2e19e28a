package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"redline/internal/adapters/http/perf"
	"redline/internal/domain/payment"
)

// Confirmer verifies a returned payment with the confirmation backend.
type Confirmer interface {
	// Confirm returns *payment.RejectionError when the backend refused, or
	// any other error for transport failures.
	Confirm(ctx context.Context, p payment.ReturnParams) (payment.Confirmation, error)
}

// RemoteConfirmer posts to a separately deployed confirmation endpoint.
type RemoteConfirmer struct {
	endpoint  string
	client    *http.Client
	log       *zap.Logger
	collector *perf.Collector
}

// NewRemoteConfirmer creates a confirmer for endpoint.
func NewRemoteConfirmer(endpoint string, timeout time.Duration, log *zap.Logger, collector *perf.Collector) *RemoteConfirmer {
	if log == nil {
		log = zap.NewNop()
	}
	return &RemoteConfirmer{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		log:       log.Named("confirmer"),
		collector: collector,
	}
}

// Confirm posts {paymentKey, orderId, amount}.
func (c *RemoteConfirmer) Confirm(ctx context.Context, p payment.ReturnParams) (conf payment.Confirmation, err error) {
	done := c.collector.Track("confirm.remote")
	defer func() { done(err) }()

	body, err := json.Marshal(payment.ConfirmRequest{PaymentKey: p.PaymentKey, OrderID: p.OrderID, Amount: p.Amount})
	if err != nil {
		return payment.Confirmation{}, fmt.Errorf("encode confirm: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return payment.Confirmation{}, fmt.Errorf("build confirm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return payment.Confirmation{}, fmt.Errorf("confirm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return payment.Confirmation{OrderID: p.OrderID, Amount: p.Amount}, nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	c.log.Info("confirm_rejected", zap.String("order_id", p.OrderID), zap.Int("status", resp.StatusCode))
	return payment.Confirmation{}, &payment.RejectionError{Rejection: DecodeRejection(raw)}
}
