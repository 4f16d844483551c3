// Package inference fills missing calculator inputs from finding text using
// cautious, auditable rules.
package inference

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/canon"
	"github.com/sells-group/radreport/internal/formula"
	"github.com/sells-group/radreport/internal/model"
)

// Level is the only inference level implemented.
const Level = model.InferenceCautious

// Result holds the requests ready for the calculator and the audit trail.
// Requests that still miss required inputs are left out and audited instead.
type Result struct {
	Requests []model.ComputeRequest
	Entries  []model.AuditEntry
}

// Engine applies family rule sets to compute requests.
type Engine struct {
	registry *formula.Registry
	families map[formula.Family]FamilyRules
}

// New creates an Engine with the default rule sets.
func New(reg *formula.Registry) *Engine {
	return &Engine{registry: reg, families: DefaultFamilies()}
}

// NewWithFamilies creates an Engine with custom rule sets.
func NewWithFamilies(reg *formula.Registry, families map[formula.Family]FamilyRules) *Engine {
	return &Engine{registry: reg, families: families}
}

// Apply walks every compute request attached to the findings. Input maps in
// the findings are never mutated.
func (e *Engine) Apply(findings []model.Finding, modality model.Modality) Result {
	res := Result{
		Requests: make([]model.ComputeRequest, 0),
		Entries:  make([]model.AuditEntry, 0),
	}

	for _, f := range findings {
		if len(f.ComputeRequests) == 0 {
			continue
		}
		c := Context{
			Desc:     canon.Normalize(f.Description),
			Organ:    canon.Normalize(f.Organ),
			Modality: modality,
			Finding:  f,
		}
		for _, req := range f.ComputeRequests {
			out, entry, ok := e.applyOne(req, c)
			if entry != nil {
				res.Entries = append(res.Entries, *entry)
			}
			if ok {
				res.Requests = append(res.Requests, out)
			}
		}
	}

	zap.L().Debug("inference: applied",
		zap.Int("requests", len(res.Requests)),
		zap.Int("audit_entries", len(res.Entries)),
	)
	return res
}

func (e *Engine) applyOne(req model.ComputeRequest, c Context) (model.ComputeRequest, *model.AuditEntry, bool) {
	req = req.Clone()
	family := e.registry.FamilyOf(req.Formula)
	rules, hasRules := e.families[family]

	if hasRules && rules.Unsupported != nil {
		if reason := rules.Unsupported(c); reason != "" {
			return req, &model.AuditEntry{Kind: model.AuditMissing, RefID: req.RefID, Formula: req.Formula, Details: reason}, false
		}
	}

	var inferred []string
	if hasRules {
		for _, rule := range rules.Rules {
			if !formula.IsMissing(req.Inputs[rule.Field]) {
				continue
			}
			v, fired := rule.Value(c)
			if !fired {
				continue
			}
			if problem := e.registry.ValidateInput(req.Formula, rule.Field, v); problem != "" {
				zap.L().Warn("inference: inferred value rejected",
					zap.String("formula", req.Formula),
					zap.String("ref_id", req.RefID),
					zap.String("problem", problem),
				)
				continue
			}
			req.Inputs[rule.Field] = v
			inferred = append(inferred, fmt.Sprintf("%s=%s (%s)", rule.Field, formatValue(v), rule.Reason))
		}
	}

	var missing []string
	if hasRules && rules.Missing != nil {
		missing = rules.Missing(req.Inputs)
	} else {
		for _, key := range e.registry.RequiredKeys(req.Formula) {
			if formula.IsMissing(req.Inputs[key]) {
				missing = append(missing, key)
			}
		}
	}

	if len(missing) > 0 {
		zap.L().Info("inference: required inputs missing",
			zap.String("formula", req.Formula),
			zap.String("ref_id", req.RefID),
			zap.Strings("missing", missing),
		)
		return req, &model.AuditEntry{
			Kind:    model.AuditMissing,
			RefID:   req.RefID,
			Formula: req.Formula,
			Details: fmt.Sprintf("Faltam campos obrigatorios: %s. Completar para classificar.", strings.Join(missing, ", ")),
		}, false
	}

	if len(inferred) > 0 {
		return req, &model.AuditEntry{
			Kind:    model.AuditInferred,
			RefID:   req.RefID,
			Formula: req.Formula,
			Details: fmt.Sprintf("Inferencias aplicadas: %s.", strings.Join(inferred, "; ")),
		}, true
	}
	return req, nil, true
}

func formatValue(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%g", f)
	}
	return fmt.Sprint(v)
}
