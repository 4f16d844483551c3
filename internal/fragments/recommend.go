package fragments

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/guidelines"
	"github.com/sells-group/radreport/internal/model"
)

type candidate struct {
	FindingID          string         `json:"finding_id"`
	Organ              string         `json:"organ"`
	Description        string         `json:"description"`
	Measurements       any            `json:"measurements,omitempty"`
	GuidelineID        string         `json:"guideline_id"`
	FindingType        string         `json:"finding_type"`
	RecommendationText string         `json:"recommendation_text"`
	Payload            map[string]any `json:"payload"`
}

type recommendationsReply struct {
	Recommendations []model.Recommendation `json:"recommendations"`
	MissingInputs   []string               `json:"missing_inputs"`
}

// Recommendations phrases follow-up recommendations for the findings a
// guideline covers. Findings with no matching guideline get none, and the
// model is not called when nothing matches.
func (g *LLMGenerator) Recommendations(ctx context.Context, report *model.ReportJSON) (*model.RecommendationsOutput, error) {
	matches := g.library.Match(report.Findings)
	if len(matches) == 0 {
		return &model.RecommendationsOutput{Recommendations: []model.Recommendation{}}, nil
	}

	cands := make([]candidate, 0, len(matches))
	var sources []model.EvidenceSource
	seen := make(map[string]bool)
	for _, m := range matches {
		cands = append(cands, candidate{
			FindingID:          m.FindingID,
			Organ:              m.Finding.Organ,
			Description:        m.Finding.Description,
			Measurements:       m.Finding.Measurements,
			GuidelineID:        m.Guideline.ID,
			FindingType:        m.Guideline.FindingType,
			RecommendationText: m.Guideline.RecommendationText,
			Payload:            m.Guideline.Payload,
		})
		if seen[m.Guideline.ID] {
			continue
		}
		seen[m.Guideline.ID] = true
		src, err := m.Guideline.Source()
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	payload := map[string]any{
		"modality":   report.Modality,
		"impression": report.Impression.PrimaryDiagnosis,
		"candidates": cands,
	}

	var reply recommendationsReply
	err := g.complete(ctx, StageRecommendations, recommendationsPrompt, payload, &reply)
	if isDecode(err) {
		reply = recommendationsReply{Recommendations: libraryRecommendations(matches)}
	} else if err != nil {
		return nil, err
	}

	out := &model.RecommendationsOutput{
		Recommendations: make([]model.Recommendation, 0, len(reply.Recommendations)),
		Sources:         sources,
		MissingInputs:   reply.MissingInputs,
	}
	cited := make(map[string]bool)
	for _, rec := range reply.Recommendations {
		if gl, ok := g.library.Get(rec.GuidelineID); ok {
			rec.SourceID = gl.ID
			rec.ReferenceKey = gl.ReferenceKey
			if rec.FindingType == "" {
				rec.FindingType = gl.FindingType
			}
			if !cited[gl.ID] {
				cited[gl.ID] = true
				out.References = append(out.References, gl.Reference())
			}
		} else {
			if rec.GuidelineID != "" {
				zap.L().Warn("fragments: recommendation cites unknown guideline",
					zap.String("case_id", report.CaseID),
					zap.String("guideline_id", rec.GuidelineID),
				)
			}
			// Uncited recommendations go through the source-less number check.
			rec.GuidelineID = ""
			rec.SourceID = ""
			rec.ReferenceKey = ""
		}
		out.Recommendations = append(out.Recommendations, rec)
	}

	return out, nil
}

// libraryRecommendations uses each guideline's own wording, one per
// guideline, when the model reply is unusable.
func libraryRecommendations(matches []guidelines.Match) []model.Recommendation {
	var out []model.Recommendation
	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m.Guideline.ID] {
			continue
		}
		seen[m.Guideline.ID] = true
		out = append(out, model.Recommendation{
			FindingType:   m.Guideline.FindingType,
			Text:          m.Guideline.RecommendationText,
			Applicability: "Aplicavel a " + m.FindingID + ".",
			Conditional:   true,
			GuidelineID:   m.Guideline.ID,
		})
	}
	return out
}
