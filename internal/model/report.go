package model

import (
	"encoding/json"
	"time"
)

// MissingMarker is the placeholder left in report text where data is absent.
const MissingMarker = "<VERIFICAR>"

// Indication holds the clinical context section.
type Indication struct {
	ClinicalHistory string `json:"clinical_history"`
	ExamReason      string `json:"exam_reason"`
	PatientAgeGroup string `json:"patient_age_group,omitempty"`
	PatientSex      string `json:"patient_sex,omitempty"` // M, F or O
}

// Contrast describes contrast administration.
type Contrast struct {
	Used     bool     `json:"used"`
	Type     string   `json:"type,omitempty"`
	VolumeML *float64 `json:"volume_ml,omitempty"`
	Phases   []string `json:"phases,omitempty"`
}

// Technique holds the technical section.
type Technique struct {
	Equipment    string   `json:"equipment"`
	Protocol     string   `json:"protocol"`
	ProtocolType string   `json:"protocol_type,omitempty"`
	Contrast     Contrast `json:"contrast"`
}

// Comparison holds the comparison-with-prior section.
type Comparison struct {
	Available   bool   `json:"available"`
	Mode        string `json:"mode,omitempty"`
	Source      string `json:"source,omitempty"`
	Date        string `json:"date,omitempty"`
	Findings    string `json:"findings,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Limitations string `json:"limitations,omitempty"`
}

// Measurement is a labeled numeric value attached to a finding.
type Measurement struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Finding is one observed finding, optionally carrying calculator requests.
type Finding struct {
	FindingID       string           `json:"finding_id"`
	Organ           string           `json:"organ"`
	Description     string           `json:"description"`
	Measurements    []Measurement    `json:"measurements,omitempty"`
	ComputeRequests []ComputeRequest `json:"compute_requests,omitempty"`
}

// Impression holds the conclusion section.
type Impression struct {
	PrimaryDiagnosis   string   `json:"primary_diagnosis"`
	Differentials      []string `json:"differentials,omitempty"`
	Recommendations    []string `json:"recommendations,omitempty"`
	RiskClassification RiskTier `json:"risk_classification,omitempty"`
}

// Recommendation is an evidence-backed follow-up suggestion.
type Recommendation struct {
	FindingType   string `json:"finding_type"`
	Text          string `json:"text"`
	Applicability string `json:"applicability,omitempty"`
	Conditional   bool   `json:"conditional"`
	SourceID      string `json:"source_id,omitempty"`
	GuidelineID   string `json:"guideline_id,omitempty"`
	ReferenceKey  string `json:"reference_key,omitempty"`
}

// Reference is a bibliographic citation.
type Reference struct {
	Key      string `json:"key"`
	Citation string `json:"citation"`
}

// EvidenceSource is a retrieved guideline payload that recommendations cite.
type EvidenceSource struct {
	SourceID    string          `json:"source_id"`
	GuidelineID string          `json:"guideline_id,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// Flags are the risk-relevant booleans and counters stamped on a report.
// HardGateFailed is nil until the pipeline stamps it.
type Flags struct {
	HardGateFailed        *bool `json:"hard_gate_failed,omitempty"`
	LateralityMismatch    bool  `json:"laterality_mismatch"`
	HallucinationDetected bool  `json:"hallucination_detected"`
	AutoFixApplied        bool  `json:"auto_fix_applied"`
	MissingDataMarkers    int   `json:"missing_data_markers"`
}

// Metadata describes how a report was produced.
type Metadata struct {
	CreatedAt                time.Time         `json:"created_at"`
	ModelUsed                string            `json:"model_used"`
	ModelsByStage            map[string]string `json:"models_by_stage,omitempty"`
	PromptVersion            string            `json:"prompt_version"`
	QAPassed                 bool              `json:"qa_passed"`
	RiskScore                RiskTier          `json:"risk_score,omitempty"`
	RecommendationsSanitized int               `json:"recommendations_sanitized"`
	LatencyMs                int64             `json:"latency_ms"`
}

// ReportJSON is the structured report assembled by the pipeline.
type ReportJSON struct {
	CaseID                  string                   `json:"case_id"`
	Modality                Modality                 `json:"modality"`
	ExamTitle               string                   `json:"exam_title"`
	Indication              Indication               `json:"indication"`
	Technique               Technique                `json:"technique"`
	Comparison              *Comparison              `json:"comparison,omitempty"`
	Findings                []Finding                `json:"findings"`
	ComputeResults          map[string]ComputeResult `json:"compute_results,omitempty"`
	Audit                   *ReportAudit             `json:"audit,omitempty"`
	EvidenceRecommendations []Recommendation         `json:"evidence_recommendations,omitempty"`
	References              []Reference              `json:"references,omitempty"`
	Impression              Impression               `json:"impression"`
	Flags                   Flags                    `json:"flags"`
	Metadata                Metadata                 `json:"metadata"`
}

// FindingsText joins every finding description, one per line.
func (r *ReportJSON) FindingsText() string {
	var out []byte
	for i, f := range r.Findings {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, f.Description...)
	}
	return string(out)
}
