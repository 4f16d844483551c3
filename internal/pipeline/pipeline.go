// Package pipeline assembles one radiology report per case: it generates the
// sections, runs calculator inference and compute, applies the output guards,
// renders, heals and classifies the result.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/radreport/internal/canon"
	"github.com/sells-group/radreport/internal/config"
	"github.com/sells-group/radreport/internal/formula"
	"github.com/sells-group/radreport/internal/fragments"
	"github.com/sells-group/radreport/internal/guard"
	"github.com/sells-group/radreport/internal/guidelines"
	"github.com/sells-group/radreport/internal/inference"
	"github.com/sells-group/radreport/internal/model"
	"github.com/sells-group/radreport/internal/qa"
	"github.com/sells-group/radreport/internal/report"
	"github.com/sells-group/radreport/internal/store"
)

// Stage names recorded in PipelineResult.Stages.
const (
	StageAssemble        = "assemble"
	StageInference       = "inference"
	StageCompute         = "compute"
	StageGuard           = "guard"
	StageHeal            = "heal"
	StageAudit           = "audit"
	StageRisk            = "risk"
	StageClinical        = fragments.StageClinical
	StageTechnical       = fragments.StageTechnical
	StageFindings        = fragments.StageFindings
	StageComparison      = fragments.StageComparison
	StageRecommendations = fragments.StageRecommendations
	StageImpression      = fragments.StageImpression
	StageRender          = fragments.StageRender
)

// StageError reports which stage aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Computer evaluates calculator requests.
type Computer interface {
	Compute(ctx context.Context, reqs []model.ComputeRequest) ([]model.ComputeResult, error)
}

// Pipeline runs cases. It holds no per-case state, so one Pipeline can run
// many cases concurrently.
type Pipeline struct {
	cfg        *config.Config
	gen        fragments.Generator
	renderer   fragments.Renderer
	compute    Computer
	store      store.Store
	inference  *inference.Engine
	library    *guidelines.Library
	thresholds qa.Thresholds
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used for latency and timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithInference overrides the inference engine.
func WithInference(e *inference.Engine) Option {
	return func(p *Pipeline) { p.inference = e }
}

// WithLibrary overrides the guideline library used to check references.
func WithLibrary(lib *guidelines.Library) Option {
	return func(p *Pipeline) { p.library = lib }
}

// New creates a Pipeline. st may be nil, in which case runs are not persisted.
func New(cfg *config.Config, gen fragments.Generator, renderer fragments.Renderer, compute Computer, st store.Store, opts ...Option) *Pipeline {
	th := qa.DefaultThresholds()
	if cfg.Pipeline.LatencyThresholdMs > 0 {
		th.LatencyMs = cfg.Pipeline.LatencyThresholdMs
	}
	if cfg.Pipeline.MissingMarkerThreshold > 0 {
		th.MissingMarkers = cfg.Pipeline.MissingMarkerThreshold
	}
	p := &Pipeline{
		cfg:        cfg,
		gen:        gen,
		renderer:   renderer,
		compute:    compute,
		store:      st,
		inference:  inference.New(formula.Default()),
		library:    guidelines.Default(),
		thresholds: th,
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run produces the report for one case. A failure in any stage except
// recommendations aborts the case and is returned as a *StageError.
func (p *Pipeline) Run(ctx context.Context, bundle model.CaseBundle) (*model.PipelineResult, error) {
	log := zap.L().With(zap.String("case_id", bundle.CaseID))
	log.Info("pipeline: starting case")

	runID := p.createRun(ctx, bundle.CaseID, log)
	result, err := p.run(ctx, runID, bundle, log)
	if err != nil {
		log.Error("pipeline: case failed", zap.String("run_id", runID), zap.Error(err))
		if p.store != nil {
			if failErr := p.store.FailRun(ctx, runID, err.Error()); failErr != nil {
				log.Warn("pipeline: failed to record run failure", zap.Error(failErr))
			}
		}
		return nil, err
	}

	if p.store != nil {
		if saveErr := p.store.CompleteRun(ctx, runID, result); saveErr != nil {
			log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
		}
	}
	log.Info("pipeline: case complete",
		zap.String("run_id", runID),
		zap.String("risk", string(result.Risk.Level)),
		zap.Bool("qa_passed", result.QA.Passed),
		zap.Int64("latency_ms", result.Report.Metadata.LatencyMs),
	)
	return result, nil
}

func (p *Pipeline) createRun(ctx context.Context, caseID string, log *zap.Logger) string {
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, caseID)
		if err == nil {
			return run.ID
		}
		log.Warn("pipeline: failed to create run record", zap.Error(err))
	}
	return uuid.New().String()
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus, log *zap.Logger) {
	if p.store == nil {
		return
	}
	if err := p.store.UpdateRunStatus(ctx, runID, status); err != nil {
		log.Debug("pipeline: failed to update status", zap.String("status", string(status)), zap.Error(err))
	}
}

// tracker records stage timing. Safe for concurrent use.
type tracker struct {
	mu     sync.Mutex
	stages []model.StageResult
	log    *zap.Logger
}

func (t *tracker) record(name string, status model.StageStatus, start time.Time, err error) {
	sr := model.StageResult{
		Name:       name,
		Status:     status,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		sr.Error = err.Error()
	}

	switch status {
	case model.StageStatusFailed:
		t.log.Error("pipeline: stage failed", zap.String("stage", name), zap.Int64("duration_ms", sr.DurationMs), zap.Error(err))
	case model.StageStatusDegraded:
		t.log.Warn("pipeline: stage degraded", zap.String("stage", name), zap.Int64("duration_ms", sr.DurationMs), zap.Error(err))
	default:
		t.log.Debug("pipeline: stage done",
			zap.String("stage", name),
			zap.String("status", string(status)),
			zap.Int64("duration_ms", sr.DurationMs),
		)
	}

	t.mu.Lock()
	t.stages = append(t.stages, sr)
	t.mu.Unlock()
}

// track runs fn as a named stage. Errors come back as *StageError.
func (t *tracker) track(name string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		t.record(name, model.StageStatusFailed, start, err)
		return &StageError{Stage: name, Err: err}
	}
	t.record(name, model.StageStatusComplete, start, nil)
	return nil
}

func (t *tracker) skip(name string) {
	t.record(name, model.StageStatusSkipped, time.Now(), nil)
}

func (p *Pipeline) run(ctx context.Context, runID string, bundle model.CaseBundle, log *zap.Logger) (*model.PipelineResult, error) {
	start := p.now()
	tr := &tracker{log: log.With(zap.String("run_id", runID))}
	b := report.NewBuilder(bundle, start)
	res := &model.PipelineResult{RunID: runID}

	// Clinical, technical and findings read only the bundle.
	p.setStatus(ctx, runID, model.RunStatusGenerating, log)
	var (
		indication *model.Indication
		technique  *model.Technique
		findings   *model.FindingsOutput
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tr.track(StageClinical, func() (err error) {
			indication, err = p.gen.Clinical(gctx, bundle)
			return err
		})
	})
	g.Go(func() error {
		return tr.track(StageTechnical, func() (err error) {
			technique, err = p.gen.Technical(gctx, bundle)
			return err
		})
	})
	g.Go(func() error {
		return tr.track(StageFindings, func() (err error) {
			findings, err = p.gen.Findings(gctx, bundle)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := tr.track(StageAssemble, func() error {
		if indication == nil || technique == nil || findings == nil {
			return eris.New("generator returned no section")
		}
		if err := b.SetIndication(*indication); err != nil {
			return err
		}
		if err := b.SetTechnique(*technique); err != nil {
			return err
		}
		return b.SetFindings(*findings)
	}); err != nil {
		return nil, err
	}

	// Inference fills what the findings text supports and audits the rest.
	var inf inference.Result
	_ = tr.track(StageInference, func() error {
		inf = p.inference.Apply(b.Report().Findings, b.Report().Modality)
		return nil
	})
	b.AddAuditEntries(inference.Level, inf.Entries...)

	if len(inf.Requests) > 0 {
		p.setStatus(ctx, runID, model.RunStatusComputing, log)
		if err := tr.track(StageCompute, func() error {
			results, err := p.compute.Compute(ctx, inf.Requests)
			if err != nil {
				return err
			}
			return b.AttachComputeResults(results)
		}); err != nil {
			return nil, err
		}
	} else {
		tr.skip(StageCompute)
	}

	if report.HasPrior(bundle) {
		if err := tr.track(StageComparison, func() error {
			c, err := p.gen.Comparison(ctx, b.Report(), bundle)
			if err != nil {
				return err
			}
			if c == nil {
				return eris.New("generator returned no comparison")
			}
			return b.SetComparison(*c)
		}); err != nil {
			return nil, err
		}
	} else {
		tr.skip(StageComparison)
	}

	if err := p.recommend(ctx, b, res, tr); err != nil {
		return nil, err
	}

	if err := tr.track(StageImpression, func() error {
		imp, err := p.gen.Impression(ctx, b.Report(), bundle)
		if err != nil {
			return err
		}
		if imp == nil {
			return eris.New("generator returned no impression")
		}
		guarded, softened := guard.GuardImpression(b.Report().FindingsText(), *imp)
		res.Guard.ImpressionSoftened = softened
		return b.SetImpression(guarded)
	}); err != nil {
		return nil, err
	}

	p.setStatus(ctx, runID, model.RunStatusValidating, log)
	var initial string
	if err := tr.track(StageRender, func() (err error) {
		initial, err = p.renderer.Render(ctx, b.Report(), "")
		return err
	}); err != nil {
		return nil, err
	}

	var healed *qa.HealResult
	if err := tr.track(StageHeal, func() (err error) {
		healed, err = qa.Heal(ctx, b.Report(), initial, p.renderer.Render, qa.Run, canonText, p.cfg.Pipeline.MaxHealAttempts)
		return err
	}); err != nil {
		return nil, err
	}
	text := healed.Text

	if audit := b.Report().Audit; audit != nil && len(audit.Entries) > 0 {
		_ = tr.track(StageAudit, func() error {
			text = canonText(report.AppendAuditBlock(text, audit))
			return nil
		})
	} else {
		tr.skip(StageAudit)
	}

	_ = tr.track(StageRisk, func() error {
		outcome := report.Outcome{
			QAPassed:       healed.QA.Passed,
			AutoFixApplied: healed.AutoFixApplied,
			MissingMarkers: report.CountMissingMarkers(text),
			LatencyMs:      p.now().Sub(start).Milliseconds(),
		}
		b.StampFlags(outcome)
		res.Risk = qa.ClassifyRisk(b.Report(), healed.QA, model.RiskTelemetry{
			LatencyMs:      outcome.LatencyMs,
			AutoFixApplied: outcome.AutoFixApplied,
			MissingMarkers: outcome.MissingMarkers,
		}, p.thresholds)
		outcome.Risk = res.Risk.Level
		b.StampMetadata(outcome)
		return nil
	})
	p.stampModels(b)

	res.Report = *b.Report()
	res.Markdown = text
	res.QA = healed.QA
	res.Heal = model.HealSummary{
		Attempts:       healed.Attempts,
		AutoFixApplied: healed.AutoFixApplied,
		Passed:         healed.QA.Passed,
	}
	res.Stages = tr.stages
	return res, nil
}

// recommend generates and guards recommendations. Generation failures
// degrade to no recommendations.
func (p *Pipeline) recommend(ctx context.Context, b *report.Builder, res *model.PipelineResult, tr *tracker) error {
	start := time.Now()
	out, err := p.gen.Recommendations(ctx, b.Report())
	if err != nil || out == nil {
		if err == nil {
			err = eris.New("generator returned no recommendations")
		}
		tr.record(StageRecommendations, model.StageStatusDegraded, start, err)
		res.Guard.RecommendationsDegraded = true
		return nil
	}
	tr.record(StageRecommendations, model.StageStatusComplete, start, nil)

	return tr.track(StageGuard, func() error {
		gr := guard.ValidateRecommendations(out.Recommendations, guard.PayloadsFromSources(out.Sources))
		unknown := guard.ValidateReferences(out.References, p.library.ReferenceKeys())
		if len(unknown) > 0 {
			tr.log.Warn("pipeline: unknown reference keys", zap.Strings("keys", unknown))
		}
		if len(gr.Violations) > 0 {
			tr.log.Info("pipeline: recommendations sanitized",
				zap.Int("altered", gr.Altered),
				zap.Int("warnings", gr.Warnings),
			)
		}
		res.Guard.RecommendationsSanitized = gr.Altered
		res.Guard.RecommendationWarnings = gr.Warnings
		res.Guard.UnknownReferences = len(unknown)
		return b.SetRecommendations(gr.Sanitized, out.References, gr.Altered)
	})
}

func (p *Pipeline) stampModels(b *report.Builder) {
	models := p.cfg.Anthropic.Models
	byStage := map[string]string{
		StageClinical:        models.Clinical,
		StageTechnical:       models.Technical,
		StageFindings:        models.Findings,
		StageImpression:      models.Impression,
		StageRecommendations: models.Recommendations,
	}
	if b.Has(report.SectionComparison) {
		byStage[StageComparison] = models.Comparison
	}
	if _, ok := p.renderer.(fragments.TemplateRenderer); ok {
		byStage[StageRender] = "template"
	} else {
		byStage[StageRender] = models.Renderer
	}
	b.SetModels(models.Findings+"+"+models.Impression, byStage, p.cfg.Pipeline.PromptVersion)
}

func canonText(s string) string {
	return canon.Canonicalize(s).Text
}
