// Package static is a placeholder producer that returns a fixed report. It
// keeps the whole flow usable without model credentials.
package static

import (
	"context"
	"strings"

	"redline/internal/adapters/producer"
	"redline/internal/domain/report"
)

const noResumeQuote = "No resume text provided. Only JD-based provisional risk."

// Producer implements both producer.ReportProducer and producer.QuestionImprover.
type Producer struct{}

// ProduceReport quotes the first sentence of the resume back in a single
// vague_claim risk.
func (Producer) ProduceReport(_ context.Context, in producer.Input) (report.Report, error) {
	if err := in.Validate(); err != nil {
		return report.Report{}, err
	}
	quote := noResumeQuote
	if text := in.Text(); text != "" {
		quote = strings.TrimSpace(strings.SplitN(text, ".", 2)[0])
	}
	return report.Report{
		KeyRisks: []report.KeyRisk{{
			Type:              report.RiskVagueClaim,
			Quote:             quote,
			Analysis:          "Placeholder analysis. Configure a model-backed producer for real verification.",
			InterviewerIntent: "Ask for concrete facts, scope, and measurable outcomes.",
		}},
		PressureQuestions: []report.PressureQuestion{{
			Question: "그 성과가 본인 기여라는 근거를 수치와 전후 비교로 설명해 주세요.",
			Goal:     "개인 기여도와 검증 가능성을 확인",
		}},
	}, nil
}

// Improve returns a fixed STAR-style rewrite.
func (Producer) Improve(_ context.Context, question, _ string) (report.Improvement, error) {
	if strings.TrimSpace(question) == "" {
		return report.Improvement{}, producer.ErrQuestionRequired
	}
	return report.Improvement{
		IsGeneric: true,
		Issues: []string{
			"질문 범위가 넓어 검증 포인트가 흐려짐",
			"성과를 판단할 수 있는 측정 기준이 없음",
		},
		ImprovedQuestion: "최근 6개월 내 본인이 주도한 개선 사례를 하나 선택해, " +
			"상황(S), 과제(T), 행동(A), 결과(R)를 각각 수치와 함께 설명해 주세요.",
		FollowUps: report.FollowUps{
			TradeOff:             "당시 포기한 대안은 무엇이었고, 왜 그 선택을 했나요?",
			Metrics:              "개선 전후 핵심 지표 2개를 수치로 제시해 주세요.",
			PersonalContribution: "팀 성과가 아닌 본인 단독 기여를 분리해서 설명해 주세요.",
		},
	}, nil
}
