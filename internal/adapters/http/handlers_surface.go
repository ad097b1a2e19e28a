package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"redline/internal/adapters/analytics"
	"redline/internal/adapters/producer"
	"redline/internal/application/orchestrators"
	"redline/internal/application/projections"
	"redline/internal/domain/lead"
	"redline/internal/domain/payment"
	"redline/internal/domain/report"
	"redline/internal/domain/session"
)

// maxUploadBytes bounds the multipart analyze form, file included.
const maxUploadBytes = 10 << 20

// Lead panel states read from the ?lead= query value.
const (
	leadOpen = "open"
	leadDone = "done"
)

var errFileTooLarge = &producer.UserError{Message: "File is too large."}

// improverPanel is the Question Improver's form state and answer.
type improverPanel struct {
	Question string
	Result   *report.Improvement
	Error    string
}

// surfacePage is the main page: the projected surface plus whatever the
// current request adds inline.
type surfacePage struct {
	projections.ResultSurface
	AnalyzeError string
	PaymentError *payment.Failure
	Improver     improverPanel
	LeadOpen     bool
	LeadDone     bool
	LeadError    string
}

// surfaceExtras are the inline additions for one render.
type surfaceExtras struct {
	AnalyzeError string
	PaymentError *payment.Failure
	Improver     improverPanel
	LeadError    string
}

// renderSurface re-derives the page from the session store.
func renderSurface(w http.ResponseWriter, r *http.Request, sid string, params url.Values, extras surfaceExtras) {
	s, err := projections.QueryGetResultSurface(r.Context(), projections.GetResultSurfaceQuery{
		SessionID: sid,
		Params:    params,
	}, projections.GetResultSurfaceDeps{State: app.State, Price: app.Payment.Amount})
	if err != nil {
		internalError(w, err)
		return
	}

	page := surfacePage{
		ResultSurface: s,
		AnalyzeError:  extras.AnalyzeError,
		PaymentError:  extras.PaymentError,
		Improver:      extras.Improver,
		LeadError:     extras.LeadError,
	}
	if s.ShowLeadCapture {
		switch params.Get("lead") {
		case leadOpen:
			page.LeadOpen = true
		case leadDone:
			page.LeadDone = true
		}
		if extras.LeadError != "" {
			page.LeadOpen = true
		}
	}
	if s.Locked && r.Method == http.MethodGet {
		app.Tracker.Track(analytics.PaywallViewed, zap.Int64("amount", app.Payment.Amount))
	}
	renderTemplate(w, r, http.StatusOK, "index.html", page)
}

// handleIndex renders the result surface. GET /
func handleIndex(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("lead") == leadOpen {
		app.Tracker.Track(analytics.FakedoorClicked)
	}
	renderSurface(w, r, sid, q, surfaceExtras{})
}

// handleAnalyze runs a new analysis and redirects back to the surface.
// POST /analyze (multipart: job_description, language, resume_text, file)
func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	in, err := readAnalyzeForm(w, r)
	if err != nil {
		renderSurface(w, r, sid, nil, surfaceExtras{AnalyzeError: producer.MessageOf(err, producer.MessageAnalyzeFailed)})
		return
	}

	_, err = orchestrators.ExecuteSubmitAnalysis(r.Context(), orchestrators.SubmitAnalysisCommand{
		SessionID: sid,
		Input:     in,
	}, orchestrators.SubmitAnalysisDeps{
		State:    app.State,
		Producer: app.Producer,
		Timeout:  app.ProducerTimeout,
		Log:      app.Log,
	})
	if err != nil {
		renderSurface(w, r, sid, nil, surfaceExtras{AnalyzeError: producer.MessageOf(err, producer.MessageAnalyzeFailed)})
		return
	}
	redirect(w, r, "/", nil)
}

// readAnalyzeForm parses the analyze form shared by the surface and the
// hosted backend endpoint.
func readAnalyzeForm(w http.ResponseWriter, r *http.Request) (producer.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return producer.Input{}, errFileTooLarge
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return producer.Input{}, err
		}
		if err := r.ParseForm(); err != nil {
			return producer.Input{}, err
		}
	}

	in := producer.Input{
		JobDescription: r.FormValue("job_description"),
		Lang:           r.FormValue("language"),
		ResumeText:     r.FormValue("resume_text"),
	}
	f, hdr, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return in, nil
	case err != nil:
		return producer.Input{}, err
	}
	defer f.Close()
	if hdr.Filename == "" && hdr.Size == 0 {
		return in, nil
	}
	file, err := readUpload(f, hdr)
	if err != nil {
		return producer.Input{}, err
	}
	in.File = file
	return in, nil
}

func readUpload(f multipart.File, hdr *multipart.FileHeader) (*producer.File, error) {
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadBytes {
		return nil, errFileTooLarge
	}
	return &producer.File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// handleLang persists the UI language. POST /lang
func handleLang(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	lang, valid := session.ParseLang(r.FormValue("lang"))
	if !valid {
		http.Error(w, "unsupported language", http.StatusBadRequest)
		return
	}
	if err := app.State.SetLang(r.Context(), sid, lang); err != nil {
		internalError(w, err)
		return
	}
	redirect(w, r, "/", nil)
}

// viewUpdate is the autosave body. Only the fields present are written.
type viewUpdate struct {
	JobDescription *string `json:"job_description"`
	FileName       *string `json:"file_name"`
}

// handleView autosaves view parameters as the user types. POST /view
func handleView(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var body viewUpdate
	if err := strictDecode(w, r, &body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.JobDescription != nil {
		if err := app.State.SetJobDescription(r.Context(), sid, *body.JobDescription); err != nil {
			internalError(w, err)
			return
		}
	}
	if body.FileName != nil {
		if err := app.State.SetFileName(r.Context(), sid, *body.FileName); err != nil {
			internalError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImprove runs the Question Improver inline. POST /improve
func handleImprove(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	question := r.FormValue("question")
	jd := r.FormValue("job_description")
	if strings.TrimSpace(jd) == "" {
		snap, err := app.State.Load(r.Context(), sid)
		if err != nil {
			internalError(w, err)
			return
		}
		jd = snap.View.JobDescription
	}

	panel := improverPanel{Question: question}
	improvement, err := orchestrators.ExecuteImproveQuestion(r.Context(), orchestrators.ImproveQuestionCommand{
		Question:       question,
		JobDescription: jd,
	}, orchestrators.ImproveQuestionDeps{Improver: app.Improver, Timeout: app.ProducerTimeout})
	if err != nil {
		panel.Error = producer.MessageOf(err, producer.MessageImproveFailed)
	} else {
		panel.Result = &improvement
	}
	renderSurface(w, r, sid, nil, surfaceExtras{Improver: panel})
}

// handleLead records fake-door interest from the surface form. POST /lead
func handleLead(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	snap, err := app.State.Load(r.Context(), sid)
	if err != nil {
		internalError(w, err)
		return
	}
	if _, err := captureLead(r, r.FormValue("email"), string(snap.View.Lang)); err != nil {
		if errors.Is(err, lead.ErrInvalidEmail) {
			renderSurface(w, r, sid, url.Values{}, surfaceExtras{LeadError: err.Error()})
			return
		}
		internalError(w, err)
		return
	}
	redirect(w, r, "/", url.Values{"lead": {leadDone}})
}

func captureLead(r *http.Request, email, lang string) (lead.Lead, error) {
	l, err := orchestrators.ExecuteCaptureLead(r.Context(), orchestrators.CaptureLeadCommand{
		Email: email,
		Lang:  lang,
	}, orchestrators.CaptureLeadDeps{
		Leads:    app.Leads,
		Outbox:   app.Outbox,
		NotifyTo: app.LeadNotifyTo,
		Now:      timeNow,
		Log:      app.Log,
	})
	if err != nil {
		return lead.Lead{}, err
	}
	app.Tracker.Track(analytics.FakedoorEmailSubmitted, zap.Bool("has_email", l.HasEmail()))
	return l, nil
}
