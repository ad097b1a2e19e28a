package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"redline/internal/adapters/analytics"
	"redline/internal/adapters/gateway"
	"redline/internal/application/orchestrators"
	"redline/internal/application/projections"
	"redline/internal/domain/payment"
)

// checkoutPage runs the gateway SDK in the browser.
type checkoutPage struct {
	Lang      string
	Labels    projections.Labels
	ClientKey string
	Method    string
	Request   gateway.PaymentRequest
}

// failPage shows the gateway's own failure return.
type failPage struct {
	Lang    string
	Labels  projections.Labels
	Code    string
	Message string
	BackURL string
}

// handleCheckout starts a payment for the session's locked report.
// POST /payment/checkout
func handleCheckout(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := app.State.Load(r.Context(), sid)
	if err != nil {
		internalError(w, err)
		return
	}
	if !snap.Locked() {
		redirect(w, r, "/", nil)
		return
	}
	app.Tracker.Track(analytics.PayClicked, zap.Int64("amount", app.Payment.Amount))

	handoff, err := orchestrators.ExecuteInitiatePayment(r.Context(), orchestrators.InitiatePaymentCommand{
		SessionID: sid,
		Origin:    requestOrigin(r),
	}, app.Payment)
	if err != nil {
		f := payment.FailureOf(err)
		app.Log.Warn("payment_initiation_failed", zap.String("code", f.Code), zap.Error(err))
		renderSurface(w, r, sid, nil, surfaceExtras{PaymentError: &f})
		return
	}

	switch handoff.Kind {
	case gateway.HandoffRedirect:
		http.Redirect(w, r, handoff.RedirectURL, http.StatusSeeOther)
	default:
		renderTemplate(w, r, http.StatusOK, "checkout.html", checkoutPage{
			Lang:      string(snap.View.Lang),
			Labels:    projections.LabelsFor(snap.View.Lang),
			ClientKey: handoff.ClientKey,
			Method:    handoff.Request.Method,
			Request:   handoff.Request,
		})
	}
}

// handlePaymentSuccess reconciles the gateway's success return.
// GET /payment/success?paymentKey&orderId&amount
func handlePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	outcome := orchestrators.ExecuteReconcilePayment(r.Context(), orchestrators.ReconcilePaymentCommand{
		SessionID: sid,
		Query:     r.URL.Query(),
	}, orchestrators.ReconcilePaymentDeps{
		State:     app.State,
		Confirmer: app.Confirmer,
		Log:       app.Log,
	})

	if outcome.State == orchestrators.ReconcileConfirmed {
		app.Tracker.Track(analytics.PaymentSuccess,
			zap.String("order_id", outcome.Confirmation.OrderID),
			zap.Float64("amount", outcome.Confirmation.Amount),
		)
		redirect(w, r, "/", url.Values{"payment": {projections.NoticeSuccess}})
		return
	}
	app.Tracker.Track(analytics.PaymentFailOrCancel,
		zap.String("source", "success_return"),
		zap.String("code", outcome.Failure.Code),
	)
	redirect(w, r, "/", failureQuery(outcome.Failure))
}

func failureQuery(f payment.Failure) url.Values {
	return url.Values{
		"payment": {projections.NoticeFail},
		"code":    {f.Code},
		"message": {f.Message},
	}
}

// handlePaymentFail shows the gateway's failure return.
// GET /payment/fail?code&message
func handlePaymentFail(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	f := payment.ParseFailReturn(r.URL.Query())
	app.Tracker.Track(analytics.PaymentFailOrCancel,
		zap.String("source", "fail_page"),
		zap.String("code", f.Code),
	)
	snap, err := app.State.Load(r.Context(), sid)
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, http.StatusOK, "payment_fail.html", failPage{
		Lang:    string(snap.View.Lang),
		Labels:  projections.LabelsFor(snap.View.Lang),
		Code:    f.Code,
		Message: f.Message,
		BackURL: appPath("/") + "?payment=" + projections.NoticeFail,
	})
}

// handlePaymentAbort is posted by the checkout page when the SDK rejects
// the request, typically because the user closed the payment window.
// POST /payment/abort
func handlePaymentAbort(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	reason := strings.TrimSpace(r.FormValue("reason"))
	app.Log.Info("payment_aborted", zap.String("reason", reason))
	app.Tracker.Track(analytics.PaymentFailOrCancel, zap.String("source", "checkout"))

	f := payment.Failure{Code: payment.CodePaymentFail, Message: payment.MessagePaymentFail}
	if reason != "" {
		f.Message = reason
	}
	renderSurface(w, r, sid, nil, surfaceExtras{PaymentError: &f})
}

// handleSDK re-serves the gateway script same-origin. GET /payment/sdk.js
func handleSDK(w http.ResponseWriter, r *http.Request) {
	body, err := app.Payment.SDK.Load(r.Context())
	if err != nil {
		app.Log.Warn("sdk_unavailable", zap.Error(err))
		http.Error(w, payment.MessageSDKLoadError, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Write(body)
}
