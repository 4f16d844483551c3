package model

// ComputeRequest asks the calculator to evaluate one formula for one finding.
type ComputeRequest struct {
	Formula string         `json:"formula"`
	Inputs  map[string]any `json:"inputs"`
	RefID   string         `json:"ref_id"`
}

// Clone returns a copy with an independent Inputs map.
func (r ComputeRequest) Clone() ComputeRequest {
	inputs := make(map[string]any, len(r.Inputs))
	for k, v := range r.Inputs {
		inputs[k] = v
	}
	r.Inputs = inputs
	return r
}

// ComputeResult is a calculator result keyed back to its request.
type ComputeResult struct {
	RefID   string `json:"ref_id"`
	Formula string `json:"formula"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuditEntryKind classifies an audit entry.
type AuditEntryKind string

const (
	AuditInferred AuditEntryKind = "inferred"
	AuditMissing  AuditEntryKind = "missing"
)

// AuditEntry records an inference made, or a gap found, for one request.
type AuditEntry struct {
	Kind    AuditEntryKind `json:"kind"`
	RefID   string         `json:"ref_id"`
	Formula string         `json:"formula"`
	Details string         `json:"details"`
}

// ReportAudit is the audit trail attached to a report.
type ReportAudit struct {
	InferenceLevel InferenceLevel `json:"inference_level"`
	Entries        []AuditEntry   `json:"entries"`
}
