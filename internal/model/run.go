package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusGenerating RunStatus = "generating"
	RunStatusComputing  RunStatus = "computing"
	RunStatusValidating RunStatus = "validating"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Run is a persisted pipeline run for one case.
type Run struct {
	ID        string          `json:"id"`
	CaseID    string          `json:"case_id"`
	Status    RunStatus       `json:"status"`
	RiskTier  RiskTier        `json:"risk_tier,omitempty"`
	QAPassed  bool            `json:"qa_passed"`
	Result    *PipelineResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StageStatus represents the outcome of one pipeline stage.
type StageStatus string

const (
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
	StageStatusDegraded StageStatus = "degraded"
)

// StageResult holds timing and outcome for one pipeline stage.
type StageResult struct {
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
}

// HealSummary describes what the self-healing loop did.
type HealSummary struct {
	Attempts       int  `json:"attempts"`
	AutoFixApplied bool `json:"auto_fix_applied"`
	Passed         bool `json:"passed"`
}

// GuardSummary counts what the output guards changed.
type GuardSummary struct {
	RecommendationsSanitized int  `json:"recommendations_sanitized"`
	RecommendationWarnings   int  `json:"recommendation_warnings"`
	UnknownReferences        int  `json:"unknown_references"`
	ImpressionSoftened       bool `json:"impression_softened"`
	RecommendationsDegraded  bool `json:"recommendations_degraded"`
}

// PipelineResult is the complete outcome of running one case.
type PipelineResult struct {
	RunID    string         `json:"run_id"`
	Report   ReportJSON     `json:"report"`
	Markdown string         `json:"markdown"`
	QA       QAResult       `json:"qa"`
	Risk     RiskAssessment `json:"risk"`
	Heal     HealSummary    `json:"heal"`
	Guard    GuardSummary   `json:"guard"`
	Stages   []StageResult  `json:"stages"`
}
