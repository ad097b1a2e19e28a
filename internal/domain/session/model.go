package session

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"redline/internal/domain/report"
)

// Keys persisted per browser session.
const (
	KeyReport         = "redline.analysis"
	KeyUnlocked       = "redline.unlocked"
	KeyLang           = "redline.lang"
	KeyJobDescription = "redline.jobDescription"
	KeyResumePreview  = "redline.resumePreview"
	KeyFileName       = "redline.fileName"
)

// AllKeys lists every key the application writes.
var AllKeys = []string{KeyReport, KeyUnlocked, KeyLang, KeyJobDescription, KeyResumePreview, KeyFileName}

// UnlockedValue is the only stored value that means "unlocked".
const UnlockedValue = "1"

// LockedValue is written when a new analysis starts.
const LockedValue = "0"

// DefaultIdleTTL bounds how long an untouched session is kept.
const DefaultIdleTTL = 24 * time.Hour

// Lang is a UI language.
type Lang string

// Supported languages
const (
	LangKo Lang = "ko"
	LangEn Lang = "en"
)

// DefaultLang is used when nothing valid is stored.
const DefaultLang = LangKo

// ParseLang accepts only "ko" and "en"; ok is false for anything else.
func ParseLang(s string) (Lang, bool) {
	switch Lang(strings.TrimSpace(s)) {
	case LangKo:
		return LangKo, true
	case LangEn:
		return LangEn, true
	}
	return "", false
}

// LangOrDefault parses s, falling back to DefaultLang.
func LangOrDefault(s string) Lang {
	if l, ok := ParseLang(s); ok {
		return l
	}
	return DefaultLang
}

// ViewParams are the user's inputs kept across navigation.
type ViewParams struct {
	Lang           Lang
	JobDescription string
	ResumePreview  string
	FileName       string
}

// Snapshot is the rehydrated state of one browser session.
type Snapshot struct {
	View     ViewParams
	Report   *report.Report
	Unlocked bool
}

// HasReport reports whether a non-empty report is present.
func (s Snapshot) HasReport() bool {
	return s.Report != nil && !s.Report.IsEmpty()
}

// Locked is true when a non-empty report exists and has not been paid for.
// An empty report has nothing to hide, so it is never locked.
func (s Snapshot) Locked() bool {
	return s.HasReport() && !s.Unlocked
}

// NewID returns an opaque 32-byte hex session id.
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidID reports whether id looks like a value returned by NewID.
func ValidID(id string) bool {
	if len(id) != 64 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
