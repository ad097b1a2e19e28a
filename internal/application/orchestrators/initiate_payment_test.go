package orchestrators

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/singleflight"

	"redline/internal/adapters/gateway"
	"redline/internal/domain/payment"
)

type countingSDK struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (s *countingSDK) Load(context.Context) ([]byte, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	if s.err != nil {
		return nil, s.err
	}
	return []byte("sdk"), nil
}

type failingGateway struct{}

func (failingGateway) RequestPayment(context.Context, gateway.PaymentRequest) (gateway.Handoff, error) {
	return gateway.Handoff{}, errors.New("rejected")
}

func initiateDeps(sdk gateway.SDKSource, gw gateway.Gateway) InitiatePaymentDeps {
	return InitiatePaymentDeps{
		ClientKey: "test_ck",
		Amount:    2000,
		OrderName: "REDLINE",
		Method:    "카드",
		BasePath:  "/redline",
		SDK:       sdk,
		Gateway:   gw,
		Now:       fixedNow,
	}
}

func TestExecuteInitiatePayment_ConfigMissingSkipsSDK(t *testing.T) {
	sdk := &countingSDK{}
	deps := initiateDeps(sdk, gateway.NewTossGateway(""))
	deps.ClientKey = " "

	_, err := ExecuteInitiatePayment(context.Background(), InitiatePaymentCommand{SessionID: "s"}, deps)
	if payment.CodeOf(err) != payment.CodeConfigMissing {
		t.Fatalf("expected CONFIG_MISSING, got %v", err)
	}
	if sdk.calls.Load() != 0 {
		t.Error("SDK must not load without a client key")
	}
}

func TestExecuteInitiatePayment_SDKLoadError(t *testing.T) {
	deps := initiateDeps(&countingSDK{err: errors.New("offline")}, gateway.NewTossGateway("test_ck"))
	_, err := ExecuteInitiatePayment(context.Background(), InitiatePaymentCommand{SessionID: "s"}, deps)
	if payment.CodeOf(err) != payment.CodeSDKLoadError {
		t.Fatalf("expected SDK_LOAD_ERROR, got %v", err)
	}
}

func TestExecuteInitiatePayment_GatewayRejection(t *testing.T) {
	deps := initiateDeps(&countingSDK{}, failingGateway{})
	_, err := ExecuteInitiatePayment(context.Background(), InitiatePaymentCommand{SessionID: "s", Origin: "http://localhost:8080"}, deps)
	if payment.CodeOf(err) != payment.CodePaymentFail {
		t.Fatalf("expected PAYMENT_FAIL, got %v", err)
	}
}

func TestExecuteInitiatePayment_BuildsRequest(t *testing.T) {
	deps := initiateDeps(&countingSDK{}, gateway.NewTossGateway("test_ck"))

	h, err := ExecuteInitiatePayment(context.Background(), InitiatePaymentCommand{SessionID: "s", Origin: "http://localhost:8080/"}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Kind != gateway.HandoffCheckout || h.ClientKey != "test_ck" {
		t.Errorf("unexpected handoff: %+v", h)
	}
	req := h.Request
	if req.Amount != 2000 || req.OrderName != "REDLINE" || req.Method != "카드" || req.OrderID == "" {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.SuccessURL != "http://localhost:8080/redline/payment/success" {
		t.Errorf("unexpected success url %q", req.SuccessURL)
	}
	if req.FailURL != "http://localhost:8080/redline/payment/fail" {
		t.Errorf("unexpected fail url %q", req.FailURL)
	}

	deps.AppURL = "https://redline.example"
	h, err = ExecuteInitiatePayment(context.Background(), InitiatePaymentCommand{SessionID: "s", Origin: "http://internal:8080"}, deps)
	if err != nil {
		t.Fatal(err)
	}
	if h.Request.SuccessURL != "https://redline.example/redline/payment/success" {
		t.Errorf("expected configured app url to win, got %q", h.Request.SuccessURL)
	}
}

func TestExecuteInitiatePayment_CollapsesSameSession(t *testing.T) {
	sdk := &countingSDK{delay: 50 * time.Millisecond}
	deps := initiateDeps(sdk, gateway.NewTossGateway("test_ck"))
	deps.Flight = &singleflight.Group{}

	var wg sync.WaitGroup
	ids := make([]string, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := ExecuteInitiatePayment(context.Background(), InitiatePaymentCommand{SessionID: "same", Origin: "http://x"}, deps)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids[i] = h.Request.OrderID
		}(i)
	}
	wg.Wait()

	if n := sdk.calls.Load(); n >= 4 {
		t.Errorf("expected concurrent initiations to share work, got %d SDK loads", n)
	}
}

// gatedSDK blocks in Load until released or its context is done.
type gatedSDK struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (s *gatedSDK) Load(ctx context.Context) ([]byte, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
	}
	select {
	case <-s.release:
		return []byte("sdk"), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestExecuteInitiatePayment_SharedCallSurvivesFirstCallerCancel(t *testing.T) {
	sdk := &gatedSDK{started: make(chan struct{}), release: make(chan struct{})}
	deps := initiateDeps(sdk, gateway.NewTossGateway("test_ck"))
	deps.Flight = &singleflight.Group{}
	cmd := InitiatePaymentCommand{SessionID: "same", Origin: "http://x"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		ExecuteInitiatePayment(firstCtx, cmd, deps)
	}()
	<-sdk.started

	secondErr := make(chan error, 1)
	go func() {
		_, err := ExecuteInitiatePayment(context.Background(), cmd, deps)
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	time.Sleep(50 * time.Millisecond)
	close(sdk.release)

	if err := <-secondErr; err != nil {
		t.Errorf("second caller got %v after the first caller went away", err)
	}
	<-firstDone
	if n := sdk.calls.Load(); n != 1 {
		t.Errorf("expected one shared SDK load, got %d", n)
	}
}
