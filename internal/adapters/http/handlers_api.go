package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"redline/internal/adapters/producer"
	"redline/internal/application/orchestrators"
	"redline/internal/domain/lead"
	"redline/internal/domain/payment"
)

// handleAPIAnalyze is the hosted analysis endpoint.
// POST /api/analyze-resume (multipart: job_description, language, file or resume_text)
func handleAPIAnalyze(w http.ResponseWriter, r *http.Request) {
	in, err := readAnalyzeForm(w, r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, producer.MessageOf(err, "invalid form."))
		return
	}
	if err := in.Validate(); err != nil {
		writeDetail(w, http.StatusBadRequest, producer.MessageOf(err, producer.MessageAnalyzeFailed))
		return
	}

	ctx, cancel := withTimeout(r.Context(), app.ProducerTimeout)
	defer cancel()
	rep, err := app.Producer.ProduceReport(ctx, in)
	if err != nil {
		app.Log.Warn("api_analyze_failed", zap.Error(err))
		writeDetail(w, http.StatusBadGateway, producer.MessageOf(err, producer.MessageAnalyzeFailed))
		return
	}
	writeJSON(w, http.StatusOK, rep.Normalize())
}

type improveRequest struct {
	Question       string `json:"question"`
	JobDescription string `json:"job_description"`
}

// handleAPIImprove is the hosted Question Improver endpoint.
// POST /api/improve-question {question, job_description?}
func handleAPIImprove(w http.ResponseWriter, r *http.Request) {
	var body improveRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	improvement, err := orchestrators.ExecuteImproveQuestion(r.Context(), orchestrators.ImproveQuestionCommand{
		Question:       body.Question,
		JobDescription: body.JobDescription,
	}, orchestrators.ImproveQuestionDeps{Improver: app.Improver, Timeout: app.ProducerTimeout})
	if err != nil {
		if errors.Is(err, producer.ErrQuestionRequired) {
			writeDetail(w, http.StatusBadRequest, producer.ErrQuestionRequired.Message)
			return
		}
		app.Log.Warn("api_improve_failed", zap.Error(err))
		writeDetail(w, http.StatusBadGateway, producer.MessageOf(err, producer.MessageImproveFailed))
		return
	}
	writeJSON(w, http.StatusOK, improvement)
}

// handleAPIConfirm is the hosted payment confirmation endpoint.
// POST /api/payment/confirm {paymentKey, orderId, amount}
func handleAPIConfirm(w http.ResponseWriter, r *http.Request) {
	var req payment.ConfirmRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, payment.Failure{Code: payment.CodeInvalidRequest, Message: "invalid JSON body."})
		return
	}
	if _, err := orchestrators.ExecuteConfirmPayment(r.Context(), req, app.Confirm); err != nil {
		writeJSON(w, http.StatusBadRequest, payment.FailureOf(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type leadRequest struct {
	Email string `json:"email"`
	Lang  string `json:"lang"`
}

// handleAPILead records fake-door interest. POST /api/fakedoor/lead {email?}
func handleAPILead(w http.ResponseWriter, r *http.Request) {
	var body leadRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if _, err := captureLead(r, body.Email, body.Lang); err != nil {
		if errors.Is(err, lead.ErrInvalidEmail) {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealth is the liveness probe. GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON is strictDecode for endpoints that answer in the detail shape.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := strictDecode(w, r, v)
	if err == nil {
		return true
	}
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body.")
		return false
	}
	writeDetail(w, http.StatusBadRequest, err.Error())
	return false
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
