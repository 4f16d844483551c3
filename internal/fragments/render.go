package fragments

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/radreport/internal/config"
	"github.com/sells-group/radreport/internal/model"
	"github.com/sells-group/radreport/internal/report"
	"github.com/sells-group/radreport/internal/resilience"
	"github.com/sells-group/radreport/pkg/anthropic"
)

// LLMRenderer renders the report with a model following the house layout.
type LLMRenderer struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	pricing     anthropic.Pricing
	retry       resilience.RetryConfig
}

// NewLLMRenderer creates a renderer using the configured render model.
func NewLLMRenderer(client anthropic.Client, cfg config.AnthropicConfig, pricing anthropic.Pricing) *LLMRenderer {
	if pricing == nil {
		pricing = anthropic.DefaultPricing()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &LLMRenderer{
		client:      client,
		model:       cfg.Models.Renderer,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		pricing:     pricing,
		retry:       resilience.DefaultRetryConfig(),
	}
}

// Render converts the report to markdown. Feedback from a failed QA pass is
// appended to the request so the next attempt can correct it.
func (r *LLMRenderer) Render(ctx context.Context, rep *model.ReportJSON, feedback string) (string, error) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "fragments: marshal report")
	}

	user := "ReportJSON:\n" + string(data)
	if feedback != "" {
		user += "\n\nCorrija os seguintes problemas da versao anterior:\n" + feedback
	}

	text, err := sendMessage(ctx, r.client, r.retry, r.pricing, StageRender, anthropic.MessageRequest{
		Model:       r.model,
		MaxTokens:   r.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(renderPrompt, ""),
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &r.temperature,
	})
	if err != nil {
		return "", err
	}
	return cleanMarkdown(text), nil
}

// TemplateRenderer renders the report deterministically. Feedback is
// ignored since the layout cannot drift.
type TemplateRenderer struct{}

// Render implements Renderer.
func (TemplateRenderer) Render(_ context.Context, rep *model.ReportJSON, _ string) (string, error) {
	if rep == nil {
		return "", eris.New("fragments: nil report")
	}
	return report.Markdown(rep), nil
}

// NewRenderer picks the renderer named by the pipeline config.
func NewRenderer(name string, client anthropic.Client, cfg config.AnthropicConfig, pricing anthropic.Pricing) Renderer {
	if name == "template" {
		return TemplateRenderer{}
	}
	return NewLLMRenderer(client, cfg, pricing)
}
