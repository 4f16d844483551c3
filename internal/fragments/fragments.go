// Package fragments produces the generated report sections and renders the
// assembled report to text.
package fragments

import (
	"context"
	"strings"

	"github.com/sells-group/radreport/internal/model"
)

// Stage names, used for model selection, logging and cost attribution.
const (
	StageClinical        = "clinical"
	StageTechnical       = "technical"
	StageFindings        = "findings"
	StageComparison      = "comparison"
	StageImpression      = "impression"
	StageRecommendations = "recommendations"
	StageRender          = "render"
)

// Generator produces the report sections from a case bundle. Clinical,
// Technical and Findings read only the bundle and may run concurrently.
type Generator interface {
	Clinical(ctx context.Context, bundle model.CaseBundle) (*model.Indication, error)
	Technical(ctx context.Context, bundle model.CaseBundle) (*model.Technique, error)
	Findings(ctx context.Context, bundle model.CaseBundle) (*model.FindingsOutput, error)
	Comparison(ctx context.Context, report *model.ReportJSON, bundle model.CaseBundle) (*model.Comparison, error)
	Impression(ctx context.Context, report *model.ReportJSON, bundle model.CaseBundle) (*model.Impression, error)
	Recommendations(ctx context.Context, report *model.ReportJSON) (*model.RecommendationsOutput, error)
}

// Renderer turns a report into text. Feedback, when non-empty, lists the QA
// problems the previous rendering had.
type Renderer interface {
	Render(ctx context.Context, report *model.ReportJSON, feedback string) (string, error)
}

// cleanJSON extracts a JSON object from text that may be wrapped in
// markdown code fences or prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// cleanMarkdown strips a code fence around rendered markdown.
func cleanMarkdown(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
