// Package gateway talks to the hosted payment provider: it loads the
// browser SDK, prepares the checkout handoff and confirms returned payments.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// PaymentRequest is what the browser SDK is asked to charge.
type PaymentRequest struct {
	Method     string `json:"-"`
	Amount     int64  `json:"amount"`
	OrderID    string `json:"orderId"`
	OrderName  string `json:"orderName"`
	SuccessURL string `json:"successUrl"`
	FailURL    string `json:"failUrl"`
}

// Validate rejects requests the provider would refuse.
func (r PaymentRequest) Validate() error {
	switch {
	case r.Amount <= 0:
		return errors.New("amount must be positive")
	case r.OrderID == "":
		return errors.New("order id is required")
	case r.SuccessURL == "" || r.FailURL == "":
		return errors.New("return urls are required")
	}
	return nil
}

// HandoffKind says how the browser leaves for the gateway.
type HandoffKind int

const (
	// HandoffCheckout renders a page that runs the gateway SDK.
	HandoffCheckout HandoffKind = iota + 1
	// HandoffRedirect sends the browser straight to RedirectURL.
	HandoffRedirect
)

// Handoff is the result of initiating a payment.
type Handoff struct {
	Kind        HandoffKind
	RedirectURL string
	ClientKey   string
	Request     PaymentRequest
}

// Gateway starts a payment.
type Gateway interface {
	RequestPayment(ctx context.Context, req PaymentRequest) (Handoff, error)
}

// TossGateway hands the request to the Toss Payments browser SDK.
type TossGateway struct {
	clientKey string
}

// NewTossGateway creates a gateway for clientKey.
func NewTossGateway(clientKey string) *TossGateway {
	return &TossGateway{clientKey: clientKey}
}

// RequestPayment prepares a checkout page handoff.
func (g *TossGateway) RequestPayment(_ context.Context, req PaymentRequest) (Handoff, error) {
	if err := req.Validate(); err != nil {
		return Handoff{}, fmt.Errorf("toss request: %w", err)
	}
	return Handoff{Kind: HandoffCheckout, ClientKey: g.clientKey, Request: req}, nil
}

// SandboxKeyPrefix marks payment keys issued by SandboxGateway.
const SandboxKeyPrefix = "sandbox_"

// SandboxGateway approves every payment without leaving the app.
type SandboxGateway struct{}

// RequestPayment redirects to the success URL with a sandbox payment key.
func (SandboxGateway) RequestPayment(_ context.Context, req PaymentRequest) (Handoff, error) {
	if err := req.Validate(); err != nil {
		return Handoff{}, fmt.Errorf("sandbox request: %w", err)
	}
	u, err := url.Parse(req.SuccessURL)
	if err != nil {
		return Handoff{}, fmt.Errorf("sandbox success url: %w", err)
	}
	q := u.Query()
	q.Set("paymentKey", SandboxKeyPrefix+uuid.NewString())
	q.Set("orderId", req.OrderID)
	q.Set("amount", strconv.FormatInt(req.Amount, 10))
	u.RawQuery = q.Encode()
	return Handoff{Kind: HandoffRedirect, RedirectURL: u.String(), Request: req}, nil
}
