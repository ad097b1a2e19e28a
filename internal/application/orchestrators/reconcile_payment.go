package orchestrators

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"redline/internal/adapters/gateway"
	"redline/internal/application/sessionstate"
	"redline/internal/domain/payment"
)

// ReconcileState is the terminal state of a reconciliation.
type ReconcileState int

const (
	ReconcileFailed ReconcileState = iota
	ReconcileConfirmed
)

// ReconcileOutcome is what the success-return handler acts on.
type ReconcileOutcome struct {
	State        ReconcileState
	Confirmation payment.Confirmation
	Failure      payment.Failure
}

// ReconcilePaymentCommand is a landing on the success return URL.
type ReconcilePaymentCommand struct {
	SessionID string
	Query     url.Values
}

// ReconcilePaymentDeps are the collaborators for ExecuteReconcilePayment.
type ReconcilePaymentDeps struct {
	State     *sessionstate.State
	Confirmer gateway.Confirmer
	Log       *zap.Logger
}

// ExecuteReconcilePayment confirms a returned payment and unlocks the session.
// PRE: cmd.Query holds the success return URL's query values
// POST: Confirmed means the session is unlocked; Failed carries a
// user-facing code and message
// INVARIANT: the confirmer is never called with incomplete parameters, and
// a rejected confirmation is never retried
func ExecuteReconcilePayment(ctx context.Context, cmd ReconcilePaymentCommand, deps ReconcilePaymentDeps) ReconcileOutcome {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	params, err := payment.ParseSuccessReturn(cmd.Query)
	if err != nil {
		log.Info("payment_return_incomplete")
		return ReconcileOutcome{State: ReconcileFailed, Failure: payment.FailureOf(err)}
	}

	conf, err := deps.Confirmer.Confirm(ctx, params)
	if err != nil {
		f := payment.FailureOf(err)
		log.Warn("payment_reconcile_rejected",
			zap.String("order_id", params.OrderID),
			zap.String("code", f.Code),
			zap.Error(err),
		)
		return ReconcileOutcome{State: ReconcileFailed, Failure: f}
	}

	if err := deps.State.MarkUnlocked(ctx, cmd.SessionID); err != nil {
		log.Error("payment_unlock_failed", zap.String("order_id", params.OrderID), zap.Error(err))
		return ReconcileOutcome{State: ReconcileFailed, Failure: payment.Rejection{}.Normalize()}
	}
	log.Info("payment_reconciled", zap.String("order_id", conf.OrderID))
	return ReconcileOutcome{State: ReconcileConfirmed, Confirmation: conf}
}
