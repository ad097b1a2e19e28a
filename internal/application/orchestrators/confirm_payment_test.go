package orchestrators

import (
	"context"
	"errors"
	"testing"

	"redline/internal/domain/payment"
)

func confirmDeps(ledger *memLedger, api *fakeAPI) ConfirmPaymentDeps {
	return ConfirmPaymentDeps{Ledger: ledger, API: api, Price: 2000, Now: fixedNow}
}

func TestExecuteConfirmPayment_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  payment.ConfirmRequest
		msg  string
	}{
		{name: "missing key", req: payment.ConfirmRequest{OrderID: "o", Amount: 2000}, msg: "paymentKey is required."},
		{name: "zero amount", req: payment.ConfirmRequest{PaymentKey: "k", OrderID: "o"}, msg: "amount must be positive."},
		{name: "wrong amount", req: payment.ConfirmRequest{PaymentKey: "k", OrderID: "o", Amount: 1000}, msg: "amount must be exactly 2000."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			_, err := ExecuteConfirmPayment(context.Background(), tt.req, confirmDeps(newMemLedger(), api))
			f := payment.FailureOf(err)
			if f.Code != payment.CodeInvalidRequest || f.Message != tt.msg {
				t.Errorf("unexpected failure %+v", f)
			}
			if api.calls != 0 {
				t.Error("provider must not be called for invalid requests")
			}
		})
	}
}

func TestExecuteConfirmPayment_IdempotentPerOrder(t *testing.T) {
	ledger, api := newMemLedger(), &fakeAPI{}
	deps := confirmDeps(ledger, api)
	req := payment.ConfirmRequest{PaymentKey: "pk1", OrderID: "ord1", Amount: 2000}

	rec, err := ExecuteConfirmPayment(context.Background(), req, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != payment.StatusConfirmed || rec.Amount != 2000 || !rec.ConfirmedAt.Equal(fixedTime) {
		t.Errorf("unexpected record %+v", rec)
	}

	if _, err := ExecuteConfirmPayment(context.Background(), req, deps); err != nil {
		t.Fatalf("repeat confirm should succeed: %v", err)
	}
	if api.calls != 1 {
		t.Errorf("expected one provider call, got %d", api.calls)
	}

	_, err = ExecuteConfirmPayment(context.Background(), payment.ConfirmRequest{PaymentKey: "pk2", OrderID: "ord1", Amount: 2000}, deps)
	if payment.CodeOf(err) != payment.CodeAlreadyConfirmedOrder {
		t.Errorf("expected ALREADY_CONFIRMED_ORDER, got %v", err)
	}
}

func TestExecuteConfirmPayment_ProviderRejection(t *testing.T) {
	code, msg := "REJECT_CARD_COMPANY", "Card declined."
	api := &fakeAPI{err: &payment.RejectionError{Rejection: payment.Rejection{Code: &code, Message: &msg}}}
	ledger := newMemLedger()

	_, err := ExecuteConfirmPayment(context.Background(), payment.ConfirmRequest{PaymentKey: "pk1", OrderID: "ord1", Amount: 2000}, confirmDeps(ledger, api))
	var re *payment.RejectionError
	if !errors.As(err, &re) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if len(ledger.records) != 0 {
		t.Error("rejected payment must not be recorded")
	}
}

func TestLocalConfirmer(t *testing.T) {
	c := LocalConfirmer{Deps: confirmDeps(newMemLedger(), &fakeAPI{})}
	conf, err := c.Confirm(context.Background(), payment.ReturnParams{PaymentKey: "pk1", OrderID: "ord1", Amount: 2000})
	if err != nil {
		t.Fatal(err)
	}
	if conf.OrderID != "ord1" || conf.Amount != 2000 {
		t.Errorf("unexpected confirmation %+v", conf)
	}

	_, err = c.Confirm(context.Background(), payment.ReturnParams{PaymentKey: "pk1", OrderID: "ord2", Amount: 1})
	if f := payment.FailureOf(err); f.Code != payment.CodeInvalidRequest {
		t.Errorf("expected INVALID_REQUEST, got %+v", f)
	}
}
