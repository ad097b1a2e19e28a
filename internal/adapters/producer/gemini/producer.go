// Package gemini produces reports and question rewrites with Google Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"redline/internal/adapters/http/perf"
	"redline/internal/adapters/producer"
	"redline/internal/domain/report"
	"redline/internal/domain/session"
)

type contentGenerator interface {
	Generate(ctx context.Context, prompt string, attachments ...Attachment) (string, error)
}

//go:embed report_prompt.md
var reportPrompt string

//go:embed improve_prompt.md
var improvePrompt string

const (
	defaultMaxLogLength = 200
	noResumeText        = "(no resume provided)"
	noJobDescription    = "(none)"
)

// Producer implements producer.ReportProducer and producer.QuestionImprover.
type Producer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	collector *perf.Collector
}

func NewProducer(generator contentGenerator, logger *zap.Logger, maxLogLength int, collector *perf.Collector) *Producer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{
		generator: generator,
		logger:    logger.Named("gemini"),
		maxLogLen: maxLogLength,
		collector: collector,
	}
}

// ProduceReport asks the model for a risk report. PDF uploads are attached
// as inline documents; text is placed in the prompt.
func (p *Producer) ProduceReport(ctx context.Context, in producer.Input) (r report.Report, err error) {
	if err := in.Validate(); err != nil {
		return report.Report{}, err
	}
	done := p.collector.Track("gemini.analyze")
	defer func() { done(err) }()

	resume := in.Text()
	var attachments []Attachment
	if in.File != nil && in.File.Kind() == producer.KindPDF {
		attachments = append(attachments, Attachment{MIMEType: "application/pdf", Data: in.File.Data})
		resume = "(attached PDF)"
	}
	if resume == "" {
		resume = noResumeText
	}

	prompt := fill(reportPrompt, map[string]string{
		"{{LANGUAGE}}":        languageName(in.Lang),
		"{{JOB_DESCRIPTION}}": orDefault(in.JobDescription, noJobDescription),
		"{{RESUME_TEXT}}":     resume,
	})
	raw, err := p.generate(ctx, "analyze", prompt, attachments...)
	if err != nil {
		return report.Report{}, err
	}

	r, err = p.parseReport(raw)
	if err != nil {
		return report.Report{}, &producer.UserError{Message: producer.MessageAnalyzeFailed, Err: err}
	}
	return r, nil
}

// Improve asks the model to rewrite question.
func (p *Producer) Improve(ctx context.Context, question, jobDescription string) (imp report.Improvement, err error) {
	if strings.TrimSpace(question) == "" {
		return report.Improvement{}, producer.ErrQuestionRequired
	}
	done := p.collector.Track("gemini.improve")
	defer func() { done(err) }()

	prompt := fill(improvePrompt, map[string]string{
		"{{QUESTION}}":        strings.TrimSpace(question),
		"{{JOB_DESCRIPTION}}": orDefault(jobDescription, noJobDescription),
	})
	raw, err := p.generate(ctx, "improve", prompt)
	if err != nil {
		return report.Improvement{}, err
	}
	if err := decode(raw, &imp); err != nil {
		return report.Improvement{}, &producer.UserError{Message: producer.MessageImproveFailed, Err: err}
	}
	if strings.TrimSpace(imp.ImprovedQuestion) == "" {
		return report.Improvement{}, &producer.UserError{Message: producer.MessageImproveFailed, Err: fmt.Errorf("empty improved_question")}
	}
	if imp.Issues == nil {
		imp.Issues = []string{}
	}
	return imp, nil
}

func (p *Producer) generate(ctx context.Context, op, prompt string, attachments ...Attachment) (string, error) {
	p.logger.Debug("gemini generate content request",
		zap.String("op", op),
		zap.Int("attachments", len(attachments)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", truncateForLog(prompt, p.maxLogLen)),
	)
	raw, err := p.generator.Generate(ctx, prompt, attachments...)
	if err != nil {
		p.logger.Warn("gemini generate content failed", zap.String("op", op), zap.Error(err))
		fallback := producer.MessageAnalyzeFailed
		if op == "improve" {
			fallback = producer.MessageImproveFailed
		}
		return "", &producer.UserError{Message: fallback, Err: err}
	}
	p.logger.Debug("gemini generate content response",
		zap.String("op", op),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", truncateForLog(raw, p.maxLogLen)),
	)
	return raw, nil
}

// parseReport decodes the model answer, dropping risks whose type is not
// one of the known kinds instead of failing the whole report.
func (p *Producer) parseReport(raw string) (report.Report, error) {
	var r report.Report
	if err := decode(raw, &r); err != nil {
		return report.Report{}, err
	}
	kept := r.KeyRisks[:0]
	for _, risk := range r.KeyRisks {
		risk.Type = report.RiskType(strings.ToLower(strings.TrimSpace(string(risk.Type))))
		if !risk.Type.Valid() {
			p.logger.Warn("gemini risk type dropped", zap.String("type", string(risk.Type)))
			continue
		}
		kept = append(kept, risk)
	}
	r.KeyRisks = kept
	r = r.Normalize()
	return r, r.Validate()
}

// decode reads the JSON object in raw into out, tolerating code fences and
// loosely typed values such as "true" for booleans.
func decode(raw string, out any) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return fmt.Errorf("parse gemini response: %w", err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func fill(template string, values map[string]string) string {
	for k, v := range values {
		template = strings.ReplaceAll(template, k, v)
	}
	return template
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func languageName(lang string) string {
	if session.LangOrDefault(lang) == session.LangEn {
		return "English"
	}
	return "Korean"
}

func truncateForLog(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
