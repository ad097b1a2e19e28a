package payment

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Confirmation statuses recorded in the ledger.
const (
	StatusConfirmed = "confirmed"
)

// Domain errors
var (
	ErrEmptyPaymentKey = errors.New("paymentKey is required")
	ErrEmptyOrderID    = errors.New("orderId is required")
	ErrAmountNotPos    = errors.New("amount must be positive")
)

// newRandomID is swapped in tests to exercise the fallback.
var newRandomID = func() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Order is a single payment attempt. It lives only for the handoff to the
// gateway and is never persisted by the client flow.
type Order struct {
	ID        string
	Amount    int64
	CreatedAt time.Time
}

// NewOrder creates an order with a random id, falling back to a
// time-derived id when the randomness source fails.
// PRE: amount > 0
// POST: ID is non-empty
func NewOrder(amount int64, now time.Time) Order {
	id, err := newRandomID()
	if err != nil || id == "" {
		id = fmt.Sprintf("redline-%d", now.UnixMilli())
	}
	return Order{ID: id, Amount: amount, CreatedAt: now}
}

// ReturnParams are the query values the gateway appends to the success URL.
type ReturnParams struct {
	PaymentKey string
	OrderID    string
	Amount     float64
}

// ParseSuccessReturn extracts paymentKey, orderId and amount. All three must
// be present and amount must parse to a finite number.
func ParseSuccessReturn(q url.Values) (ReturnParams, error) {
	paymentKey := strings.TrimSpace(q.Get("paymentKey"))
	orderID := strings.TrimSpace(q.Get("orderId"))
	rawAmount := strings.TrimSpace(q.Get("amount"))
	if paymentKey == "" || orderID == "" || rawAmount == "" {
		return ReturnParams{}, NewError(CodeMissingQueryParams, MessageMissingQueryParams, nil)
	}
	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ReturnParams{}, NewError(CodeMissingQueryParams, MessageMissingQueryParams, err)
	}
	return ReturnParams{PaymentKey: paymentKey, OrderID: orderID, Amount: amount}, nil
}

// ParseFailReturn reads the code and message the gateway appends to the
// fail URL. Either may be empty.
func ParseFailReturn(q url.Values) Failure {
	return Failure{Code: q.Get("code"), Message: q.Get("message")}
}

// Confirmation is what the reconciler learns on success.
type Confirmation struct {
	OrderID string
	Amount  float64
}

// ConfirmRequest is the body of a server-side confirmation call.
type ConfirmRequest struct {
	PaymentKey string  `json:"paymentKey"`
	OrderID    string  `json:"orderId"`
	Amount     float64 `json:"amount"`
}

// Validate checks the request against the configured price.
// PRE: price > 0
// POST: Returns an *Error with CodeInvalidRequest on failure
func (r ConfirmRequest) Validate(price int64) error {
	switch {
	case strings.TrimSpace(r.PaymentKey) == "":
		return NewError(CodeInvalidRequest, ErrEmptyPaymentKey.Error()+".", ErrEmptyPaymentKey)
	case strings.TrimSpace(r.OrderID) == "":
		return NewError(CodeInvalidRequest, ErrEmptyOrderID.Error()+".", ErrEmptyOrderID)
	case r.Amount <= 0:
		return NewError(CodeInvalidRequest, ErrAmountNotPos.Error()+".", ErrAmountNotPos)
	case r.Amount != float64(price):
		return NewError(CodeInvalidRequest, fmt.Sprintf("amount must be exactly %d.", price), nil)
	}
	return nil
}

// Record is a ledger row for a confirmed order.
type Record struct {
	OrderID     string
	PaymentKey  string
	Amount      int64
	Status      string
	ConfirmedAt time.Time
}
