// Package remote delegates report production to a separately deployed
// analysis backend over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"redline/internal/adapters/http/perf"
	"redline/internal/adapters/producer"
	"redline/internal/domain/report"
)

const maxResponseBytes = 1 << 20

// Client implements producer.ReportProducer and producer.QuestionImprover.
type Client struct {
	baseURL   string
	client    *http.Client
	log       *zap.Logger
	collector *perf.Collector
}

// NewClient creates a client for baseURL, e.g. http://localhost:8000.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger, collector *perf.Collector) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		log:       log.Named("remote_producer"),
		collector: collector,
	}
}

// ProduceReport posts a multipart form to /api/analyze-resume.
func (c *Client) ProduceReport(ctx context.Context, in producer.Input) (r report.Report, err error) {
	if err := in.Validate(); err != nil {
		return report.Report{}, err
	}
	done := c.collector.Track("producer.analyze")
	defer func() { done(err) }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{{"job_description", in.JobDescription}, {"language", in.Lang}}
	if in.File == nil && strings.TrimSpace(in.ResumeText) != "" {
		fields = append(fields, [2]string{"resume_text", in.ResumeText})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return report.Report{}, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if in.File != nil {
		fw, err := mw.CreateFormFile("file", in.File.Name)
		if err != nil {
			return report.Report{}, fmt.Errorf("create file part: %w", err)
		}
		if _, err := fw.Write(in.File.Data); err != nil {
			return report.Report{}, fmt.Errorf("write file part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return report.Report{}, fmt.Errorf("close multipart: %w", err)
	}

	if err := c.post(ctx, "/api/analyze-resume", mw.FormDataContentType(), &body, producer.MessageAnalyzeFailed, &r); err != nil {
		return report.Report{}, err
	}
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return report.Report{}, &producer.UserError{Message: producer.MessageAnalyzeFailed, Err: err}
	}
	return r, nil
}

// Improve posts {question, job_description} to /api/improve-question.
func (c *Client) Improve(ctx context.Context, question, jobDescription string) (imp report.Improvement, err error) {
	if strings.TrimSpace(question) == "" {
		return report.Improvement{}, producer.ErrQuestionRequired
	}
	done := c.collector.Track("producer.improve")
	defer func() { done(err) }()

	payload, err := json.Marshal(map[string]string{
		"question":        question,
		"job_description": jobDescription,
	})
	if err != nil {
		return report.Improvement{}, fmt.Errorf("encode improve request: %w", err)
	}
	if err := c.post(ctx, "/api/improve-question", "application/json", bytes.NewReader(payload), producer.MessageImproveFailed, &imp); err != nil {
		return report.Improvement{}, err
	}
	if imp.Issues == nil {
		imp.Issues = []string{}
	}
	return imp, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, fallback string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("remote_producer_unreachable", zap.String("path", path), zap.Error(err))
		return &producer.UserError{Message: fallback, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &producer.UserError{Message: fallback, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := detailOf(raw, fallback)
		c.log.Warn("remote_producer_failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", msg),
		)
		return &producer.UserError{Message: msg, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &producer.UserError{Message: fallback, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// detailOf reads {"detail": "..."}; anything else yields fallback.
func detailOf(raw []byte, fallback string) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return fallback
	}
	if s, ok := body.Detail.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}
