package qa

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/model"
)

// DefaultMaxAttempts caps regeneration attempts in Heal.
const DefaultMaxAttempts = 2

const genericFeedback = "Revisar o texto para cumprir o formato e remover erros."

// RenderFunc regenerates report text, optionally guided by feedback.
type RenderFunc func(ctx context.Context, report *model.ReportJSON, feedback string) (string, error)

// QAFunc checks rendered text against the report.
type QAFunc func(report *model.ReportJSON, text string) model.QAResult

// CanonFunc normalizes rendered text.
type CanonFunc func(text string) string

// HealResult is the final candidate and its verdict.
type HealResult struct {
	Text           string         `json:"text"`
	QA             model.QAResult `json:"qa"`
	Attempts       int            `json:"attempts"`
	AutoFixApplied bool           `json:"auto_fix_applied"`
}

// Heal canonicalizes and checks the initial text, then re-renders with
// feedback until QA passes or maxAttempts regenerations have run. When the
// budget runs out the last failing candidate is returned without error.
// A negative maxAttempts falls back to DefaultMaxAttempts.
func Heal(ctx context.Context, report *model.ReportJSON, initial string, render RenderFunc, runQA QAFunc, canonicalize CanonFunc, maxAttempts int) (*HealResult, error) {
	if maxAttempts < 0 {
		maxAttempts = DefaultMaxAttempts
	}

	res := &HealResult{Text: canonicalize(initial)}
	res.QA = runQA(report, res.Text)

	for !res.QA.Passed && res.Attempts < maxAttempts {
		feedback := Feedback(res.QA)
		zap.L().Info("qa: regenerating report",
			zap.String("case_id", report.CaseID),
			zap.Int("attempt", res.Attempts+1),
			zap.Strings("issues", res.QA.Issues),
		)

		text, err := render(ctx, report, feedback)
		if err != nil {
			return nil, eris.Wrapf(err, "qa: regenerate attempt %d", res.Attempts+1)
		}
		res.Text = canonicalize(text)
		res.QA = runQA(report, res.Text)
		res.Attempts++
		res.AutoFixApplied = true
	}

	if !res.QA.Passed {
		zap.L().Warn("qa: heal budget exhausted",
			zap.String("case_id", report.CaseID),
			zap.Int("attempts", res.Attempts),
		)
	}
	return res, nil
}

// Feedback builds the regeneration prompt from QA issues.
func Feedback(result model.QAResult) string {
	if len(result.Issues) == 0 {
		return genericFeedback
	}
	return "Corrigir os seguintes problemas: " + strings.Join(result.Issues, " | ")
}
