package orchestrators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"redline/internal/adapters/producer"
	"redline/internal/domain/report"
)

// ImproveQuestionCommand asks for a sharper version of an interview question.
type ImproveQuestionCommand struct {
	Question       string
	JobDescription string
}

// ImproveQuestionDeps are the collaborators for ExecuteImproveQuestion.
type ImproveQuestionDeps struct {
	Improver producer.QuestionImprover
	Timeout  time.Duration
}

// ExecuteImproveQuestion delegates to the configured improver.
// PRE: none; a blank question yields producer.ErrQuestionRequired
// POST: returns the improvement; nothing is persisted
func ExecuteImproveQuestion(ctx context.Context, cmd ImproveQuestionCommand, deps ImproveQuestionDeps) (report.Improvement, error) {
	q := strings.TrimSpace(cmd.Question)
	if q == "" {
		return report.Improvement{}, producer.ErrQuestionRequired
	}
	if deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.Timeout)
		defer cancel()
	}
	imp, err := deps.Improver.Improve(ctx, q, strings.TrimSpace(cmd.JobDescription))
	if err != nil {
		return report.Improvement{}, fmt.Errorf("improve question: %w", err)
	}
	return imp, nil
}
