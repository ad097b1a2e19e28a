// Package producer defines the collaborators that compute a report and
// improve interview questions, plus helpers shared by their implementations.
package producer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"redline/internal/domain/report"
)

// Fallback messages shown when a collaborator fails without a usable reason.
const (
	MessageAnalyzeFailed = "Failed to analyze resume."
	MessageImproveFailed = "Failed to improve question."
)

// ErrUnsupportedFile is returned for uploads that are neither PDF nor text.
var ErrUnsupportedFile = &UserError{Message: "Only PDF/TXT is supported."}

// ErrQuestionRequired is returned when the question to improve is blank.
var ErrQuestionRequired = &UserError{Message: "question is required."}

// Returned by CheckComplete for an Analyze press that has nothing to analyze.
var (
	ErrResumeRequired         = &UserError{Message: "resume is required."}
	ErrJobDescriptionRequired = &UserError{Message: "job description is required."}
)

// Kind is the detected type of an uploaded resume.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindText
)

// File is an uploaded resume.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Kind detects the file type from its content type or extension.
func (f File) Kind() Kind {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(f.ContentType, ";")[0]))
	ext := strings.ToLower(filepath.Ext(f.Name))
	switch {
	case ct == "application/pdf" || ext == ".pdf":
		return KindPDF
	case ct == "text/plain" || ext == ".txt":
		return KindText
	}
	return KindUnknown
}

// Input is everything a report producer may look at.
type Input struct {
	JobDescription string
	Lang           string
	// ResumeText is pasted text; File is an upload. Either may be empty.
	ResumeText string
	File       *File
}

// Validate rejects unsupported uploads.
func (in Input) Validate() error {
	if in.File != nil && in.File.Kind() == KindUnknown {
		return ErrUnsupportedFile
	}
	return nil
}

// CheckComplete rejects input without a resume (upload or pasted text) or
// without a job description.
func (in Input) CheckComplete() error {
	if in.File == nil && strings.TrimSpace(in.ResumeText) == "" {
		return ErrResumeRequired
	}
	if strings.TrimSpace(in.JobDescription) == "" {
		return ErrJobDescriptionRequired
	}
	return nil
}

// Text returns the resume as plain text when it is available without
// extraction: pasted text, or the body of a text upload.
func (in Input) Text() string {
	if t := strings.TrimSpace(in.ResumeText); t != "" {
		return t
	}
	if in.File != nil && in.File.Kind() == KindText {
		return strings.TrimSpace(strings.ToValidUTF8(string(in.File.Data), ""))
	}
	return ""
}

// ReportProducer computes a report for a resume and job description.
type ReportProducer interface {
	ProduceReport(ctx context.Context, in Input) (report.Report, error)
}

// QuestionImprover rewrites a generic interview question.
type QuestionImprover interface {
	Improve(ctx context.Context, question, jobDescription string) (report.Improvement, error)
}

// UserError carries a message that is safe to show to the user.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UserError) Unwrap() error { return e.Err }

// MessageOf returns the user-facing message in err, or fallback.
func MessageOf(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return fallback
}

// Preview trims resume text for display next to the report.
func Preview(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "…"
}
