package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"redline/internal/adapters/http/perf"
	"redline/internal/domain/payment"
)

// PaymentsAPI is the provider's server-side confirmation call.
type PaymentsAPI interface {
	// Confirm finalises a payment. A refusal by the provider is returned as
	// *payment.RejectionError.
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) error
}

// TossAPI calls POST /v1/payments/confirm.
type TossAPI struct {
	baseURL   string
	secretKey string
	client    *http.Client
	log       *zap.Logger
	collector *perf.Collector
}

// NewTossAPI creates a client against baseURL, e.g. https://api.tosspayments.com.
func NewTossAPI(baseURL, secretKey string, timeout time.Duration, log *zap.Logger, collector *perf.Collector) *TossAPI {
	if log == nil {
		log = zap.NewNop()
	}
	return &TossAPI{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
		log:       log.Named("toss"),
		collector: collector,
	}
}

// IdempotencyKey derives the key Toss uses to collapse retried confirms.
func IdempotencyKey(paymentKey, orderID string, amount int64) string {
	sum := sha256.Sum256([]byte(paymentKey + ":" + orderID + ":" + strconv.FormatInt(amount, 10)))
	return hex.EncodeToString(sum[:])
}

// Confirm sends the confirmation request.
func (t *TossAPI) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (err error) {
	done := t.collector.Track("toss.confirm")
	defer func() { done(err) }()

	if t.secretKey == "" {
		return payment.NewError(payment.CodeConfigMissing, "payment secret key is not configured.", nil)
	}

	body, err := json.Marshal(map[string]any{
		"paymentKey": paymentKey,
		"orderId":    orderID,
		"amount":     amount,
	})
	if err != nil {
		return fmt.Errorf("encode confirm body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/payments/confirm", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build confirm request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(t.secretKey+":")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", IdempotencyKey(paymentKey, orderID, amount))

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Warn("toss_confirm_network_error", zap.String("order_id", orderID), zap.Error(err))
		return fmt.Errorf("toss confirm: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	rej := DecodeRejection(raw)
	t.log.Warn("toss_confirm_rejected",
		zap.String("order_id", orderID),
		zap.Int("status", resp.StatusCode),
		zap.Stringp("code", rej.Code),
	)
	return &payment.RejectionError{Rejection: rej}
}

// SandboxPaymentsAPI accepts payment keys minted by SandboxGateway.
type SandboxPaymentsAPI struct{}

// Confirm succeeds for sandbox keys and rejects anything else.
func (SandboxPaymentsAPI) Confirm(_ context.Context, paymentKey, _ string, _ int64) error {
	if strings.HasPrefix(paymentKey, SandboxKeyPrefix) {
		return nil
	}
	code, msg := "INVALID_PAYMENT_KEY", "Unknown sandbox payment key."
	return &payment.RejectionError{Rejection: payment.Rejection{Code: &code, Message: &msg}}
}

// DecodeRejection reads an error body in any of the shapes confirmation
// backends produce: {"code","message"}, {"detail":{"code","message"}} or
// {"detail":"<json or text>"}. Whatever cannot be read is left nil so the
// defaults apply.
func DecodeRejection(raw []byte) payment.Rejection {
	var top struct {
		payment.Rejection
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &top); err != nil {
		return payment.Rejection{}
	}
	if top.Code != nil || top.Message != nil {
		return top.Rejection
	}
	if len(top.Detail) == 0 {
		return payment.Rejection{}
	}

	var nested payment.Rejection
	if err := json.Unmarshal(top.Detail, &nested); err == nil {
		return nested
	}
	var text string
	if err := json.Unmarshal(top.Detail, &text); err == nil {
		if err := json.Unmarshal([]byte(text), &nested); err == nil {
			return nested
		}
	}
	return payment.Rejection{}
}
