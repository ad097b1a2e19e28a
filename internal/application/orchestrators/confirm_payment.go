package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"redline/internal/adapters/gateway"
	"redline/internal/adapters/storage/confirmation"
	"redline/internal/domain/payment"
)

// MessageAlreadyConfirmed is returned when an order was confirmed with a
// different payment key.
const MessageAlreadyConfirmed = "This order has already been confirmed."

// ConfirmPaymentDeps are the collaborators for the server-side confirmation.
type ConfirmPaymentDeps struct {
	Ledger confirmation.Store
	API    gateway.PaymentsAPI
	// Price is the only amount accepted.
	Price int64
	Now   func() time.Time
	Log   *zap.Logger
}

// ExecuteConfirmPayment validates a returned payment and confirms it with
// the provider, once per order.
// PRE: deps.Price > 0
// POST: the order is in the ledger, or an error is returned: *payment.Error
// for invalid requests and ledger conflicts, *payment.RejectionError when the
// provider refused
// INVARIANT: a repeated confirm with the same payment key succeeds without
// calling the provider again
func ExecuteConfirmPayment(ctx context.Context, req payment.ConfirmRequest, deps ConfirmPaymentDeps) (payment.Record, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if err := req.Validate(deps.Price); err != nil {
		return payment.Record{}, err
	}

	if rec, done, err := ledgerLookup(ctx, deps.Ledger, req); done || err != nil {
		return rec, err
	}

	amount := int64(req.Amount)
	if err := deps.API.Confirm(ctx, req.PaymentKey, req.OrderID, amount); err != nil {
		log.Warn("payment_confirm_failed", zap.String("order_id", req.OrderID), zap.Error(err))
		return payment.Record{}, err
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	rec := payment.Record{
		OrderID:     req.OrderID,
		PaymentKey:  req.PaymentKey,
		Amount:      amount,
		Status:      payment.StatusConfirmed,
		ConfirmedAt: now().UTC(),
	}
	if err := deps.Ledger.Insert(ctx, rec); err != nil {
		// A concurrent confirm of the same order may have won the insert.
		if existing, done, lerr := ledgerLookup(ctx, deps.Ledger, req); done || lerr != nil {
			return existing, lerr
		}
		return payment.Record{}, fmt.Errorf("record confirmation: %w", err)
	}
	log.Info("payment_confirmed", zap.String("order_id", rec.OrderID), zap.Int64("amount", rec.Amount))
	return rec, nil
}

// ledgerLookup reports done=true when the order is already settled for this
// payment key.
func ledgerLookup(ctx context.Context, ledger confirmation.Store, req payment.ConfirmRequest) (payment.Record, bool, error) {
	rec, err := ledger.GetByOrderID(ctx, req.OrderID)
	switch {
	case errors.Is(err, confirmation.ErrNotFound):
		return payment.Record{}, false, nil
	case err != nil:
		return payment.Record{}, false, fmt.Errorf("lookup confirmation: %w", err)
	case rec.PaymentKey != req.PaymentKey:
		return payment.Record{}, false, payment.NewError(payment.CodeAlreadyConfirmedOrder, MessageAlreadyConfirmed, nil)
	}
	return rec, true, nil
}

// LocalConfirmer runs ExecuteConfirmPayment in-process for the reconciler.
type LocalConfirmer struct {
	Deps ConfirmPaymentDeps
}

// Confirm implements gateway.Confirmer.
func (c LocalConfirmer) Confirm(ctx context.Context, p payment.ReturnParams) (payment.Confirmation, error) {
	req := payment.ConfirmRequest{PaymentKey: p.PaymentKey, OrderID: p.OrderID, Amount: p.Amount}
	rec, err := ExecuteConfirmPayment(ctx, req, c.Deps)
	if err != nil {
		return payment.Confirmation{}, err
	}
	return payment.Confirmation{OrderID: rec.OrderID, Amount: float64(rec.Amount)}, nil
}
