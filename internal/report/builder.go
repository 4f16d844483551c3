// Package report assembles the structured report, renders it to markdown
// and formats the audit trail.
package report

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/radreport/internal/model"
)

// PlaceholderImpression is the primary diagnosis before the impression stage runs.
const PlaceholderImpression = model.MissingMarker + "."

// Section names tracked by the builder.
const (
	SectionIndication      = "indication"
	SectionTechnique       = "technique"
	SectionFindings        = "findings"
	SectionComputeResults  = "compute_results"
	SectionComparison      = "comparison"
	SectionRecommendations = "recommendations"
	SectionImpression      = "impression"
)

// Builder accumulates a report one section at a time. Each section can be
// set once; audit entries only append.
type Builder struct {
	bundle model.CaseBundle
	r      model.ReportJSON
	set    map[string]bool
}

// NewBuilder starts a report for bundle with modality, title and the
// impression placeholder filled in.
func NewBuilder(bundle model.CaseBundle, createdAt time.Time) *Builder {
	b := &Builder{bundle: bundle, set: make(map[string]bool)}
	b.r = model.ReportJSON{
		CaseID:    bundle.CaseID,
		Modality:  ResolveModality(bundle.Fields),
		ExamTitle: ExamTitle(bundle.Fields),
		Technique: model.Technique{ProtocolType: bundle.ProtocolType},
		Findings:  make([]model.Finding, 0),
		Comparison: &model.Comparison{
			Available: HasPrior(bundle),
		},
		Impression: model.Impression{PrimaryDiagnosis: PlaceholderImpression},
		Metadata:   model.Metadata{CreatedAt: createdAt.UTC()},
	}
	if b.r.Comparison.Available {
		b.r.Comparison.Mode = bundle.ComparisonMode
	}
	return b
}

// HasPrior reports whether the bundle carries prior-report text.
func HasPrior(bundle model.CaseBundle) bool {
	return strings.TrimSpace(bundle.PriorReport) != ""
}

func (b *Builder) claim(section string) error {
	if b.set[section] {
		return eris.Errorf("report: section %s already set", section)
	}
	b.set[section] = true
	return nil
}

// Has reports whether a section has been set.
func (b *Builder) Has(section string) bool {
	return b.set[section]
}

// SetIndication sets the clinical indication.
func (b *Builder) SetIndication(ind model.Indication) error {
	if err := b.claim(SectionIndication); err != nil {
		return err
	}
	b.r.Indication = ind
	return nil
}

// SetTechnique sets the technique section. The bundle's protocol type is
// kept when the generated section has none.
func (b *Builder) SetTechnique(tech model.Technique) error {
	if err := b.claim(SectionTechnique); err != nil {
		return err
	}
	if tech.ProtocolType == "" {
		tech.ProtocolType = b.bundle.ProtocolType
	}
	b.r.Technique = tech
	return nil
}

// SetFindings sets the finding list and copies generator-reported flags.
func (b *Builder) SetFindings(out model.FindingsOutput) error {
	if err := b.claim(SectionFindings); err != nil {
		return err
	}
	b.r.Findings = append(b.r.Findings, out.Findings...)
	b.r.Flags.LateralityMismatch = b.r.Flags.LateralityMismatch || out.LateralityMismatch
	b.r.Flags.HallucinationDetected = b.r.Flags.HallucinationDetected || out.HallucinationDetected
	return nil
}

// AttachComputeResults stores calculator results keyed by ref_id.
func (b *Builder) AttachComputeResults(results []model.ComputeResult) error {
	if err := b.claim(SectionComputeResults); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}
	out := make(map[string]model.ComputeResult, len(results))
	for _, res := range results {
		if res.RefID == "" {
			return eris.Errorf("report: compute result for %s has no ref_id", res.Formula)
		}
		if _, dup := out[res.RefID]; dup {
			return eris.Errorf("report: duplicate compute result for ref_id %s", res.RefID)
		}
		out[res.RefID] = res
	}
	b.r.ComputeResults = out
	return nil
}

// AddAuditEntries appends audit entries at the given inference level.
func (b *Builder) AddAuditEntries(level model.InferenceLevel, entries ...model.AuditEntry) {
	if len(entries) == 0 {
		return
	}
	if b.r.Audit == nil {
		b.r.Audit = &model.ReportAudit{InferenceLevel: level}
	}
	b.r.Audit.Entries = append(b.r.Audit.Entries, entries...)
}

// SetComparison merges a generated comparison summary. It is an error to
// call it for a bundle without prior-report text.
func (b *Builder) SetComparison(c model.Comparison) error {
	if !b.r.Comparison.Available {
		return eris.New("report: comparison set without a prior report")
	}
	if err := b.claim(SectionComparison); err != nil {
		return err
	}
	c.Available = true
	if c.Mode == "" {
		c.Mode = b.bundle.ComparisonMode
	}
	b.r.Comparison = &c
	return nil
}

// SetRecommendations stores guarded recommendations and their references.
func (b *Builder) SetRecommendations(recs []model.Recommendation, refs []model.Reference, sanitized int) error {
	if err := b.claim(SectionRecommendations); err != nil {
		return err
	}
	b.r.EvidenceRecommendations = recs
	b.r.References = refs
	b.r.Metadata.RecommendationsSanitized = sanitized
	return nil
}

// SetImpression replaces the placeholder impression. The risk tier is
// never taken from the generator.
func (b *Builder) SetImpression(imp model.Impression) error {
	if err := b.claim(SectionImpression); err != nil {
		return err
	}
	if strings.TrimSpace(imp.PrimaryDiagnosis) == "" {
		imp.PrimaryDiagnosis = PlaceholderImpression
	}
	imp.RiskClassification = ""
	b.r.Impression = imp
	return nil
}

// SetModels records the model used for each stage and the prompt version.
func (b *Builder) SetModels(modelUsed string, byStage map[string]string, promptVersion string) {
	b.r.Metadata.ModelUsed = modelUsed
	b.r.Metadata.ModelsByStage = byStage
	b.r.Metadata.PromptVersion = promptVersion
}

// Outcome is what the QA stages learned about the final text.
type Outcome struct {
	QAPassed       bool
	AutoFixApplied bool
	MissingMarkers int
	Risk           model.RiskTier
	LatencyMs      int64
}

// StampFlags sets the QA-derived flags read by the risk classifier.
func (b *Builder) StampFlags(o Outcome) {
	hardGate := !o.QAPassed
	b.r.Flags.HardGateFailed = &hardGate
	b.r.Flags.AutoFixApplied = o.AutoFixApplied
	b.r.Flags.MissingDataMarkers = o.MissingMarkers
}

// StampMetadata records the final verdict.
func (b *Builder) StampMetadata(o Outcome) {
	b.r.Metadata.QAPassed = o.QAPassed
	b.r.Metadata.RiskScore = o.Risk
	b.r.Metadata.LatencyMs = o.LatencyMs
	b.r.Impression.RiskClassification = o.Risk
}

// Report returns the report under construction. Callers must not modify it.
func (b *Builder) Report() *model.ReportJSON {
	return &b.r
}
