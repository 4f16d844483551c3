package fragments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/config"
	"github.com/sells-group/radreport/internal/formula"
	"github.com/sells-group/radreport/internal/guidelines"
	"github.com/sells-group/radreport/internal/model"
	"github.com/sells-group/radreport/internal/resilience"
	"github.com/sells-group/radreport/pkg/anthropic"
)

// decodeError marks a model reply that was not the JSON we asked for.
type decodeError struct {
	stage string
	err   error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("fragments: decode %s response: %v", e.stage, e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

// LLMGenerator implements Generator with Anthropic models, one per stage.
type LLMGenerator struct {
	client      anthropic.Client
	models      config.StageModels
	maxTokens   int64
	temperature float64
	pricing     anthropic.Pricing
	retry       resilience.RetryConfig
	registry    *formula.Registry
	library     *guidelines.Library
}

// GeneratorOption configures an LLMGenerator.
type GeneratorOption func(*LLMGenerator)

// WithPricing overrides the token price table used for cost logging.
func WithPricing(p anthropic.Pricing) GeneratorOption {
	return func(g *LLMGenerator) { g.pricing = p }
}

// WithRetry overrides the retry policy for transient API failures.
func WithRetry(cfg resilience.RetryConfig) GeneratorOption {
	return func(g *LLMGenerator) { g.retry = cfg }
}

// WithLibrary overrides the guideline library used for recommendations.
func WithLibrary(lib *guidelines.Library) GeneratorOption {
	return func(g *LLMGenerator) { g.library = lib }
}

// NewLLMGenerator creates a generator. reg supplies the formula ids the
// findings stage may request.
func NewLLMGenerator(client anthropic.Client, cfg config.AnthropicConfig, reg *formula.Registry, opts ...GeneratorOption) *LLMGenerator {
	g := &LLMGenerator{
		client:      client,
		models:      cfg.Models,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		pricing:     anthropic.DefaultPricing(),
		retry:       resilience.DefaultRetryConfig(),
		registry:    reg,
		library:     guidelines.Default(),
	}
	if g.maxTokens <= 0 {
		g.maxTokens = 4096
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Model returns the model id configured for a stage.
func (g *LLMGenerator) Model(stage string) string {
	return StageModel(g.models, stage)
}

// StageModel picks the configured model for a stage.
func StageModel(m config.StageModels, stage string) string {
	switch stage {
	case StageClinical:
		return m.Clinical
	case StageTechnical:
		return m.Technical
	case StageFindings:
		return m.Findings
	case StageComparison:
		return m.Comparison
	case StageImpression:
		return m.Impression
	case StageRecommendations:
		return m.Recommendations
	case StageRender:
		return m.Renderer
	}
	return ""
}

// Clinical generates the clinical indication.
func (g *LLMGenerator) Clinical(ctx context.Context, bundle model.CaseBundle) (*model.Indication, error) {
	payload := map[string]any{
		"case_id":          bundle.CaseID,
		"fields":           bundle.Fields,
		"clinical_context": bundle.ClinicalContext,
		"dictation":        bundle.Dictation,
		"exam_notes":       bundle.ExamNotes,
	}
	var out model.Indication
	err := g.complete(ctx, StageClinical, clinicalPrompt, payload, &out)
	if isDecode(err) {
		return &model.Indication{
			ClinicalHistory: model.MissingMarker + ".",
			ExamReason:      model.MissingMarker + ".",
			PatientSex:      "O",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Technical generates the technique section.
func (g *LLMGenerator) Technical(ctx context.Context, bundle model.CaseBundle) (*model.Technique, error) {
	payload := map[string]any{
		"case_id":       bundle.CaseID,
		"fields":        bundle.Fields,
		"exam_notes":    bundle.ExamNotes,
		"dictation":     bundle.Dictation,
		"protocol_type": bundle.ProtocolType,
	}
	var out model.Technique
	err := g.complete(ctx, StageTechnical, technicalPrompt, payload, &out)
	if isDecode(err) {
		return &model.Technique{
			Equipment: model.MissingMarker + ".",
			Protocol:  model.MissingMarker + ".",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Findings generates the findings with their compute requests.
func (g *LLMGenerator) Findings(ctx context.Context, bundle model.CaseBundle) (*model.FindingsOutput, error) {
	payload := map[string]any{
		"case_id":          bundle.CaseID,
		"fields":           bundle.Fields,
		"dictation":        bundle.Dictation,
		"exam_notes":       bundle.ExamNotes,
		"clinical_context": bundle.ClinicalContext,
	}
	var ids []string
	if g.registry != nil {
		for _, f := range g.registry.Formulas() {
			ids = append(ids, f.ID)
		}
	}
	system := fmt.Sprintf(findingsPrompt, strings.Join(ids, ", "))

	var out model.FindingsOutput
	err := g.complete(ctx, StageFindings, system, payload, &out)
	if isDecode(err) {
		return &model.FindingsOutput{Findings: []model.Finding{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if out.Findings == nil {
		out.Findings = []model.Finding{}
	}
	return &out, nil
}

type comparisonOutput struct {
	Summary     string   `json:"summary"`
	Mode        string   `json:"mode"`
	Date        string   `json:"date"`
	Limitations []string `json:"limitations"`
}

// Comparison summarizes changes against the prior report.
func (g *LLMGenerator) Comparison(ctx context.Context, report *model.ReportJSON, bundle model.CaseBundle) (*model.Comparison, error) {
	mode := bundle.ComparisonMode
	if mode == "" {
		mode = "none"
	}
	payload := map[string]any{
		"report":          report,
		"comparison_mode": mode,
		"prior_report":    bundle.PriorReport,
	}
	var out comparisonOutput
	err := g.complete(ctx, StageComparison, comparisonPrompt, payload, &out)
	if isDecode(err) {
		return &model.Comparison{Available: true, Mode: mode, Summary: model.MissingMarker + "."}, nil
	}
	if err != nil {
		return nil, err
	}
	if out.Mode == "" {
		out.Mode = mode
	}
	return &model.Comparison{
		Available:   true,
		Mode:        out.Mode,
		Source:      "prior_report",
		Date:        out.Date,
		Summary:     out.Summary,
		Limitations: strings.Join(out.Limitations, "; "),
	}, nil
}

// Impression synthesizes the conclusion.
func (g *LLMGenerator) Impression(ctx context.Context, report *model.ReportJSON, bundle model.CaseBundle) (*model.Impression, error) {
	payload := map[string]any{
		"report":       report,
		"prior_report": bundle.PriorReport,
	}
	var out model.Impression
	err := g.complete(ctx, StageImpression, impressionPrompt, payload, &out)
	if isDecode(err) {
		return &model.Impression{PrimaryDiagnosis: model.MissingMarker + "."}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// complete sends one stage request and decodes the JSON reply into out.
func (g *LLMGenerator) complete(ctx context.Context, stage, system string, payload any, out any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "fragments: marshal %s payload", stage)
	}

	text, err := g.send(ctx, stage, system, "Dados do caso (JSON):\n"+string(data))
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(cleanJSON(text)), out); err != nil {
		zap.L().Warn("fragments: model returned invalid json, using fallback",
			zap.String("stage", stage),
			zap.Error(err),
		)
		return &decodeError{stage: stage, err: err}
	}
	return nil
}

// send calls the stage model with retry on transient failures and logs cost.
func (g *LLMGenerator) send(ctx context.Context, stage, system, user string) (string, error) {
	return sendMessage(ctx, g.client, g.retry, g.pricing, stage, anthropic.MessageRequest{
		Model:       g.Model(stage),
		MaxTokens:   g.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(system, ""),
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &g.temperature,
	})
}

func sendMessage(ctx context.Context, client anthropic.Client, retry resilience.RetryConfig, pricing anthropic.Pricing, stage string, req anthropic.MessageRequest) (string, error) {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("anthropic", stage)
	}
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return client.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", eris.Wrapf(err, "fragments: %s", stage)
	}
	resp.Usage.LogCost(req.Model, stage, pricing)

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", eris.Errorf("fragments: %s: empty response", stage)
	}
	return text, nil
}

func isDecode(err error) bool {
	var de *decodeError
	return err != nil && errors.As(err, &de)
}
