package model

// CaseBundle is the immutable input for one report: intake form fields plus
// the free-text sources the fragment generators read from.
type CaseBundle struct {
	CaseID          string            `json:"case_id"`
	Fields          map[string]string `json:"fields"`
	ClinicalContext string            `json:"clinical_context,omitempty"`
	Dictation       string            `json:"dictation,omitempty"`
	ExamNotes       string            `json:"exam_notes,omitempty"`
	PriorReport     string            `json:"prior_report,omitempty"`
	ProtocolType    string            `json:"protocol_type,omitempty"`
	ComparisonMode  string            `json:"comparison_mode,omitempty"`
	Source          string            `json:"source,omitempty"`
}

// Modality is the imaging modality of an exam.
type Modality string

const (
	ModalityCT      Modality = "CT"
	ModalityMR      Modality = "MR"
	ModalityUS      Modality = "US"
	ModalityUnknown Modality = "UNKNOWN"
)

// InferenceLevel controls how aggressively missing calculator inputs are filled.
type InferenceLevel string

const (
	InferenceStrict     InferenceLevel = "strict"
	InferenceCautious   InferenceLevel = "cautious"
	InferencePermissive InferenceLevel = "permissive"
)
