package orchestrators

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"redline/internal/adapters/gateway"
	"redline/internal/domain/payment"
)

// Return paths relative to the base path.
const (
	SuccessPath = "/payment/success"
	FailPath    = "/payment/fail"
)

// InitiatePaymentCommand starts a payment for one session.
type InitiatePaymentCommand struct {
	SessionID string
	// Origin is the scheme and host of the initiating request, used when
	// no public app URL is configured.
	Origin string
}

// InitiatePaymentDeps carries payment configuration and collaborators.
type InitiatePaymentDeps struct {
	ClientKey string
	Amount    int64
	OrderName string
	Method    string
	AppURL    string
	BasePath  string

	SDK     gateway.SDKSource
	Gateway gateway.Gateway
	// Flight collapses concurrent initiations from the same session.
	Flight *singleflight.Group
	Now    func() time.Time
	Log    *zap.Logger
}

// ExecuteInitiatePayment prepares the handoff to the payment gateway.
// PRE: cmd.SessionID identifies the caller's session
// POST: returns a handoff, or a *payment.Error coded CONFIG_MISSING,
// SDK_LOAD_ERROR or PAYMENT_FAIL
// INVARIANT: the SDK is never loaded when the client key is missing
func ExecuteInitiatePayment(ctx context.Context, cmd InitiatePaymentCommand, deps InitiatePaymentDeps) (gateway.Handoff, error) {
	if strings.TrimSpace(deps.ClientKey) == "" {
		return gateway.Handoff{}, payment.NewError(payment.CodeConfigMissing, payment.MessageConfigMissing, nil)
	}
	if deps.Flight == nil {
		return initiatePayment(ctx, cmd, deps)
	}
	// The shared call must not die with whichever request happened to start it.
	v, err, shared := deps.Flight.Do("initiate:"+cmd.SessionID, func() (any, error) {
		return initiatePayment(context.WithoutCancel(ctx), cmd, deps)
	})
	if shared && deps.Log != nil {
		deps.Log.Debug("payment_initiation_shared")
	}
	if err != nil {
		return gateway.Handoff{}, err
	}
	return v.(gateway.Handoff), nil
}

func initiatePayment(ctx context.Context, cmd InitiatePaymentCommand, deps InitiatePaymentDeps) (gateway.Handoff, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := deps.SDK.Load(ctx); err != nil {
		return gateway.Handoff{}, payment.NewError(payment.CodeSDKLoadError, payment.MessageSDKLoadError, err)
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	order := payment.NewOrder(deps.Amount, now())

	origin := strings.TrimRight(deps.AppURL, "/")
	if origin == "" {
		origin = strings.TrimRight(cmd.Origin, "/")
	}
	req := gateway.PaymentRequest{
		Method:     deps.Method,
		Amount:     order.Amount,
		OrderID:    order.ID,
		OrderName:  deps.OrderName,
		SuccessURL: origin + deps.BasePath + SuccessPath,
		FailURL:    origin + deps.BasePath + FailPath,
	}
	handoff, err := deps.Gateway.RequestPayment(ctx, req)
	if err != nil {
		log.Warn("payment_request_failed", zap.String("order_id", order.ID), zap.Error(err))
		return gateway.Handoff{}, payment.NewError(payment.CodePaymentFail, payment.MessagePaymentFail, err)
	}
	log.Info("payment_initiated", zap.String("order_id", order.ID), zap.Int64("amount", order.Amount))
	return handoff, nil
}
