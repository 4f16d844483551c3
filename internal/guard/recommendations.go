// Package guard holds the output guards that run on generated report
// content before it is rendered.
package guard

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/model"
)

// GenericText replaces a numeric recommendation with no traceable source.
const GenericText = "Considerar correlação clínica e seguimento conforme diretrizes institucionais."

// Severity of a guard finding.
type Severity string

const (
	SeverityWarning   Severity = "warning"
	SeverityViolation Severity = "violation"
)

// Violation is one guard finding for one recommendation.
type Violation struct {
	Index       int      `json:"index"`
	Severity    Severity `json:"severity"`
	GuidelineID string   `json:"guideline_id,omitempty"`
	Message     string   `json:"message"`
}

// Result is the outcome of guarding a recommendation list.
type Result struct {
	Valid      bool                   `json:"valid"`
	Violations []Violation            `json:"violations"`
	Sanitized  []model.Recommendation `json:"sanitized"`
	// Altered counts recommendations whose text was replaced.
	Altered  int `json:"altered"`
	Warnings int `json:"warnings"`
}

// PayloadsFromSources indexes source payloads by both source id and guideline id.
func PayloadsFromSources(sources []model.EvidenceSource) map[string]Payload {
	out := make(map[string]Payload, len(sources)*2)
	for _, s := range sources {
		p, err := NewPayload(s.Payload)
		if err != nil {
			zap.L().Warn("guard: unreadable evidence payload",
				zap.String("source_id", s.SourceID),
				zap.Error(err),
			)
			continue
		}
		if s.SourceID != "" {
			out[s.SourceID] = p
		}
		if s.GuidelineID != "" {
			out[s.GuidelineID] = p
		}
	}
	return out
}

// ValidateRecommendations checks that every number in a recommendation is
// backed by its source payload and rewrites the ones that are not.
func ValidateRecommendations(recs []model.Recommendation, payloads map[string]Payload) Result {
	res := Result{
		Valid:      true,
		Violations: make([]Violation, 0),
		Sanitized:  make([]model.Recommendation, 0, len(recs)),
	}

	for i, rec := range recs {
		numbers := ExtractNumbers(rec.Text)
		if len(numbers) == 0 {
			res.Sanitized = append(res.Sanitized, rec)
			continue
		}

		source := rec.GuidelineID
		if source == "" {
			source = rec.SourceID
		}

		if source == "" {
			res.add(Violation{Index: i, Severity: SeverityViolation,
				Message: fmt.Sprintf("valores numericos sem fonte: %s", strings.Join(numbers, ", "))})
			rec.Text = GenericText
			res.Sanitized = append(res.Sanitized, rec)
			res.Altered++
			continue
		}

		payload, ok := lookupPayload(payloads, rec)
		if !ok {
			if !rec.Conditional {
				res.add(Violation{Index: i, Severity: SeverityWarning, GuidelineID: source,
					Message: "payload da diretriz indisponivel; valores nao verificados"})
			}
			res.Sanitized = append(res.Sanitized, rec)
			continue
		}

		var unsupported []string
		for _, n := range numbers {
			if !payload.Has(n) {
				unsupported = append(unsupported, n)
			}
		}
		if len(unsupported) > 0 {
			res.add(Violation{Index: i, Severity: SeverityViolation, GuidelineID: source,
				Message: fmt.Sprintf("valores ausentes na diretriz: %s", strings.Join(unsupported, ", "))})
			rec.Text = fmt.Sprintf("Conforme %s, consultar diretriz original para valores específicos.", source)
			rec.Conditional = true
			res.Altered++
		}
		res.Sanitized = append(res.Sanitized, rec)
	}

	if res.Altered > 0 || res.Warnings > 0 {
		zap.L().Warn("guard: recommendations sanitized",
			zap.Int("total", len(recs)),
			zap.Int("altered", res.Altered),
			zap.Int("warnings", res.Warnings),
		)
	}
	return res
}

func lookupPayload(payloads map[string]Payload, rec model.Recommendation) (Payload, bool) {
	if rec.GuidelineID != "" {
		if p, ok := payloads[rec.GuidelineID]; ok {
			return p, true
		}
	}
	if rec.SourceID != "" {
		if p, ok := payloads[rec.SourceID]; ok {
			return p, true
		}
	}
	return Payload{}, false
}

func (r *Result) add(v Violation) {
	r.Violations = append(r.Violations, v)
	if v.Severity == SeverityViolation {
		r.Valid = false
	} else {
		r.Warnings++
	}
}

// ValidateReferences returns the keys of references not among validKeys.
// The reference list itself is never modified.
func ValidateReferences(refs []model.Reference, validKeys []string) []string {
	valid := make(map[string]bool, len(validKeys))
	for _, k := range validKeys {
		valid[k] = true
	}
	var unknown []string
	for _, ref := range refs {
		if !valid[ref.Key] {
			unknown = append(unknown, ref.Key)
		}
	}
	return unknown
}
