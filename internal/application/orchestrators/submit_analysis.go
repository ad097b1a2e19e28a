package orchestrators

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"redline/internal/adapters/producer"
	"redline/internal/application/sessionstate"
	"redline/internal/domain/report"
	"redline/internal/domain/session"
)

// Placeholder previews for uploads whose text is only extracted by the producer.
const (
	pdfPreviewKo = "PDF 업로드 완료. 분석 시 백엔드에서 텍스트를 추출합니다."
	pdfPreviewEn = "PDF uploaded. Extraction runs on backend after Analyze."

	resumePreviewLimit = 2000
)

// SubmitAnalysisCommand is one press of the Analyze button.
type SubmitAnalysisCommand struct {
	SessionID string
	Input     producer.Input
}

// SubmitAnalysisDeps are the collaborators for ExecuteSubmitAnalysis.
type SubmitAnalysisDeps struct {
	State    *sessionstate.State
	Producer producer.ReportProducer
	Timeout  time.Duration
	Log      *zap.Logger
}

// ExecuteSubmitAnalysis persists the view, relocks the session and replaces
// the report with a freshly produced one.
// PRE: cmd.SessionID is a valid session id
// POST: incomplete or unsupported input leaves the session untouched; on
// success the session holds the new report and is locked; on producer
// failure the previous report is kept but the session stays locked
// INVARIANT: the relock is written before the producer is called
func ExecuteSubmitAnalysis(ctx context.Context, cmd SubmitAnalysisCommand, deps SubmitAnalysisDeps) (report.Report, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if err := cmd.Input.Validate(); err != nil {
		return report.Report{}, err
	}
	if err := cmd.Input.CheckComplete(); err != nil {
		return report.Report{}, err
	}
	lang := session.LangOrDefault(cmd.Input.Lang)
	in := cmd.Input
	in.Lang = string(lang)

	view := session.ViewParams{
		Lang:           lang,
		JobDescription: in.JobDescription,
		ResumePreview:  resumePreview(in, lang),
	}
	if in.File != nil {
		view.FileName = in.File.Name
	}
	if err := deps.State.SaveView(ctx, cmd.SessionID, view); err != nil {
		return report.Report{}, fmt.Errorf("save view: %w", err)
	}
	if err := deps.State.Relock(ctx, cmd.SessionID); err != nil {
		return report.Report{}, fmt.Errorf("relock: %w", err)
	}

	pctx := ctx
	if deps.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, deps.Timeout)
		defer cancel()
	}
	r, err := deps.Producer.ProduceReport(pctx, in)
	if err != nil {
		log.Warn("analysis_failed", zap.Error(err))
		return report.Report{}, fmt.Errorf("produce report: %w", err)
	}

	r = r.Normalize()
	if err := deps.State.ReplaceReport(ctx, cmd.SessionID, r); err != nil {
		return report.Report{}, fmt.Errorf("replace report: %w", err)
	}
	log.Info("analysis_completed",
		zap.Int("key_risks", len(r.KeyRisks)),
		zap.Int("pressure_questions", len(r.PressureQuestions)),
	)
	return r, nil
}

func resumePreview(in producer.Input, lang session.Lang) string {
	if in.File != nil && in.File.Kind() == producer.KindPDF && in.ResumeText == "" {
		if lang == session.LangEn {
			return pdfPreviewEn
		}
		return pdfPreviewKo
	}
	return producer.Preview(in.Text(), resumePreviewLimit)
}
