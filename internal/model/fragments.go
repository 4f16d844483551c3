package model

// FindingsOutput is what the findings generator produces.
type FindingsOutput struct {
	Findings              []Finding `json:"findings"`
	LateralityMismatch    bool      `json:"laterality_mismatch,omitempty"`
	HallucinationDetected bool      `json:"hallucination_detected,omitempty"`
}

// RecommendationsOutput is what the recommendations generator produces.
type RecommendationsOutput struct {
	Recommendations []Recommendation `json:"recommendations"`
	References      []Reference      `json:"references,omitempty"`
	Sources         []EvidenceSource `json:"sources,omitempty"`
	MissingInputs   []string         `json:"missing_inputs,omitempty"`
}
