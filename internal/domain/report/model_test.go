package report_test

import (
	"encoding/json"
	"errors"
	"testing"

	"redline/internal/domain/report"
)

func TestReport_IsEmpty(t *testing.T) {
	tests := []struct {
		name string
		r    report.Report
		want bool
	}{
		{name: "zero value", r: report.Report{}, want: true},
		{name: "empty slices", r: report.Report{KeyRisks: []report.KeyRisk{}, PressureQuestions: []report.PressureQuestion{}}, want: true},
		{name: "risk only", r: report.Report{KeyRisks: []report.KeyRisk{{Type: report.RiskVagueClaim}}}, want: false},
		{name: "question only", r: report.Report{PressureQuestions: []report.PressureQuestion{{Question: "q"}}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.IsEmpty(); got != tt.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReport_Validate(t *testing.T) {
	ok := report.Report{KeyRisks: []report.KeyRisk{{Type: report.RiskRoleMismatch}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	bad := report.Report{KeyRisks: []report.KeyRisk{{Type: report.RiskVagueClaim}, {Type: "made_up"}}}
	if err := bad.Validate(); !errors.Is(err, report.ErrInvalidRiskType) {
		t.Fatalf("Validate() = %v, want ErrInvalidRiskType", err)
	}
}

// TestReport_WireNames pins the JSON field names shared with the analysis backend.
func TestReport_WireNames(t *testing.T) {
	raw := `{"key_risks":[{"type":"vague_claim","quote":"q","analysis":"a","interviewer_intent":"i"}],"pressure_questions":[{"question":"Q","goal":"G"}]}`
	var r report.Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.KeyRisks[0].InterviewerIntent != "i" || r.PressureQuestions[0].Goal != "G" {
		t.Fatalf("unexpected decode: %+v", r)
	}

	out, err := json.Marshal(report.Report{}.Normalize())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"key_risks":[],"pressure_questions":[]}` {
		t.Errorf("Marshal(empty) = %s", out)
	}
}
