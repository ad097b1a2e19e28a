package report

import (
	"errors"
	"fmt"
)

// RiskType classifies a single key risk found in a resume.
type RiskType string

// Risk types
const (
	RiskWeakCausality RiskType = "weak_causality"
	RiskVagueClaim    RiskType = "vague_claim"
	RiskExaggeration  RiskType = "exaggeration"
	RiskInconsistency RiskType = "inconsistency"
	RiskRoleMismatch  RiskType = "role_mismatch"
)

// ValidRiskTypes contains every recognised risk type.
var ValidRiskTypes = []RiskType{RiskWeakCausality, RiskVagueClaim, RiskExaggeration, RiskInconsistency, RiskRoleMismatch}

// Domain errors
var (
	ErrInvalidRiskType = errors.New("risk type must be one of: weak_causality, vague_claim, exaggeration, inconsistency, role_mismatch")
	ErrEmptyQuestion   = errors.New("question is required.")
)

// KeyRisk is one weakness an interviewer would probe.
type KeyRisk struct {
	Type              RiskType `json:"type"`
	Quote             string   `json:"quote"`
	Analysis          string   `json:"analysis"`
	InterviewerIntent string   `json:"interviewer_intent"`
}

// PressureQuestion is a hard interview question with its purpose.
type PressureQuestion struct {
	Question string `json:"question"`
	Goal     string `json:"goal"`
}

// Report is the paid analysis result. It is replaced wholesale on every new
// analysis, never merged.
type Report struct {
	KeyRisks          []KeyRisk          `json:"key_risks"`
	PressureQuestions []PressureQuestion `json:"pressure_questions"`
}

// IsEmpty reports whether the report has nothing to show.
func (r Report) IsEmpty() bool {
	return len(r.KeyRisks) == 0 && len(r.PressureQuestions) == 0
}

// Normalize replaces nil lists with empty ones so the JSON form always
// carries both arrays.
func (r Report) Normalize() Report {
	if r.KeyRisks == nil {
		r.KeyRisks = []KeyRisk{}
	}
	if r.PressureQuestions == nil {
		r.PressureQuestions = []PressureQuestion{}
	}
	return r
}

// Validate checks that every key risk carries a known type.
// PRE: Report is populated
// POST: Returns nil if valid, error otherwise
func (r Report) Validate() error {
	for i, risk := range r.KeyRisks {
		if !risk.Type.Valid() {
			return fmt.Errorf("key_risks[%d]: %w", i, ErrInvalidRiskType)
		}
	}
	return nil
}

// Valid reports whether t is a recognised risk type.
func (t RiskType) Valid() bool {
	for _, v := range ValidRiskTypes {
		if t == v {
			return true
		}
	}
	return false
}

// FollowUps are the follow-up prompts suggested for an improved question.
type FollowUps struct {
	TradeOff             string `json:"trade_off"`
	Metrics              string `json:"metrics"`
	PersonalContribution string `json:"personal_contribution"`
}

// Improvement is the Question Improver's answer for one interview question.
type Improvement struct {
	IsGeneric        bool      `json:"is_generic"`
	Issues           []string  `json:"issues"`
	ImprovedQuestion string    `json:"improved_question"`
	FollowUps        FollowUps `json:"follow_ups"`
}
