package model

// BanlistViolation is a forbidden phrase found in report text.
type BanlistViolation struct {
	Phrase string `json:"phrase"`
	Index  int    `json:"index"`
}

// BanlistResult is the outcome of a banlist scan.
type BanlistResult struct {
	Passed     bool               `json:"passed"`
	Violations []BanlistViolation `json:"violations"`
}

// BlacklistCorrection is one term replacement and how many times it applied.
type BlacklistCorrection struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Count     int    `json:"count"`
}

// BlacklistResult is the outcome of applying the blacklist.
type BlacklistResult struct {
	Text        string                `json:"text"`
	Corrections []BlacklistCorrection `json:"corrections"`
}

// StructureResult reports which mandatory report sections are empty.
type StructureResult struct {
	Passed          bool     `json:"passed"`
	MissingSections []string `json:"missing_sections"`
}

// QAResult is the deterministic QA verdict for a rendered report.
type QAResult struct {
	Passed    bool            `json:"passed"`
	Banlist   BanlistResult   `json:"banlist"`
	Blacklist BlacklistResult `json:"blacklist"`
	Structure StructureResult `json:"structure"`
	Issues    []string        `json:"issues"`
}

// RiskTier is the review-routing tier.
type RiskTier string

const (
	RiskS1 RiskTier = "S1"
	RiskS2 RiskTier = "S2"
	RiskS3 RiskTier = "S3"
)

// RiskTelemetry carries runtime signals that feed risk classification.
type RiskTelemetry struct {
	LatencyMs      int64 `json:"latency_ms"`
	AutoFixApplied bool  `json:"auto_fix_applied"`
	MissingMarkers int   `json:"missing_markers"`
}

// RiskAssessment is the classifier verdict.
type RiskAssessment struct {
	Level     RiskTier      `json:"level"`
	Reasons   []string      `json:"reasons"`
	Telemetry RiskTelemetry `json:"telemetry"`
}
