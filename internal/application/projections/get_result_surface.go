package projections

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"redline/internal/application/sessionstate"
	"redline/internal/domain/disclosure"
	"redline/internal/domain/report"
	"redline/internal/domain/session"
)

// Payment notice kinds read from the ?payment= query value.
const (
	NoticeSuccess = "success"
	NoticeFail    = "fail"
)

// GetResultSurfaceQuery identifies the session and carries the landing query.
type GetResultSurfaceQuery struct {
	SessionID string
	Params    url.Values
}

// Notice is a banner shown after returning from the payment flow.
type Notice struct {
	Kind    string
	Text    string
	Code    string
	Message string
}

// Paywall is shown while the report is locked.
type Paywall struct {
	Title  string
	Button string
	Price  string
	Amount int64
}

// ResultSurface is everything the main page renders.
type ResultSurface struct {
	Lang      session.Lang
	Labels    Labels
	View      session.ViewParams
	HasReport bool
	Unlocked  bool
	Locked    bool
	Risks     disclosure.View[report.KeyRisk]
	Questions disclosure.View[report.PressureQuestion]
	Paywall   *Paywall
	Notice    *Notice
	// ShowLeadCapture is true once the viewer has paid.
	ShowLeadCapture bool
}

// GetResultSurfaceDeps holds dependencies for QueryGetResultSurface.
type GetResultSurfaceDeps struct {
	State *sessionstate.State
	Price int64
}

// QueryGetResultSurface rehydrates the session and derives the page.
// PRE: query.SessionID identifies the session
// POST: both lists are rendered with the same lock flag
// INVARIANT: Locked == HasReport && !Unlocked
func QueryGetResultSurface(ctx context.Context, query GetResultSurfaceQuery, deps GetResultSurfaceDeps) (ResultSurface, error) {
	snap, err := deps.State.Load(ctx, query.SessionID)
	if err != nil {
		return ResultSurface{}, err
	}

	lang := snap.View.Lang
	labels := LabelsFor(lang)
	r := report.Report{}.Normalize()
	if snap.Report != nil {
		r = *snap.Report
	}
	locked := snap.Locked()

	s := ResultSurface{
		Lang:      lang,
		Labels:    labels,
		View:      snap.View,
		HasReport: snap.HasReport(),
		Unlocked:  snap.Unlocked,
		Locked:    locked,
		Risks: disclosure.Render(r.KeyRisks, locked, disclosure.Options[report.KeyRisk]{
			EmptyMessage:  labels.NoAnalysis,
			LockedMessage: labels.LockedMessage,
			Key:           func(k report.KeyRisk) string { return string(k.Type) + "|" + k.Quote },
		}),
		Questions: disclosure.Render(r.PressureQuestions, locked, disclosure.Options[report.PressureQuestion]{
			EmptyMessage:  labels.NoQuestions,
			LockedMessage: labels.LockedMessage,
			Key:           func(q report.PressureQuestion) string { return q.Question },
		}),
		Notice:          noticeFrom(query.Params, labels),
		ShowLeadCapture: snap.Unlocked,
	}
	if locked {
		price := FormatPrice(lang, deps.Price)
		s.Paywall = &Paywall{
			Title:  labels.PaywallTitle,
			Button: fmt.Sprintf(labels.PaywallButton, price),
			Price:  price,
			Amount: deps.Price,
		}
	}
	return s, nil
}

func noticeFrom(q url.Values, labels Labels) *Notice {
	switch strings.TrimSpace(q.Get("payment")) {
	case NoticeSuccess:
		return &Notice{Kind: NoticeSuccess, Text: labels.PaymentSuccess}
	case NoticeFail:
		return &Notice{
			Kind:    NoticeFail,
			Text:    labels.PaymentFail,
			Code:    q.Get("code"),
			Message: q.Get("message"),
		}
	}
	return nil
}
