// Package qa runs the deterministic report checks, the bounded
// self-healing loop and the risk classifier.
package qa

import (
	"fmt"
	"strings"

	"github.com/sells-group/radreport/internal/canon"
	"github.com/sells-group/radreport/internal/model"
)

// RequiredSections lists the dotted report paths that must be non-empty.
var RequiredSections = []string{
	"indication.clinical_history",
	"indication.exam_reason",
	"technique.equipment",
	"findings",
	"impression.primary_diagnosis",
}

// Run checks rendered text and the structured report. Blacklist hits are
// counted but never fail the verdict.
func Run(report *model.ReportJSON, text string) model.QAResult {
	banlist := canon.CheckBanlist(text)
	blacklist := canon.ApplyBlacklist(text)
	missing := missingSections(report)

	issues := make([]string, 0, 3)
	if !banlist.Passed {
		phrases := make([]string, len(banlist.Violations))
		for i, v := range banlist.Violations {
			phrases[i] = fmt.Sprintf("%q", v.Phrase)
		}
		issues = append(issues, "Banlist: "+strings.Join(phrases, ", "))
	}
	if len(blacklist.Corrections) > 0 {
		issues = append(issues, fmt.Sprintf("Blacklist: %d correções aplicáveis", len(blacklist.Corrections)))
	}
	if len(missing) > 0 {
		issues = append(issues, "Estrutura: faltando "+strings.Join(missing, ", "))
	}

	return model.QAResult{
		Passed:    banlist.Passed && len(missing) == 0,
		Banlist:   banlist,
		Blacklist: blacklist,
		Structure: model.StructureResult{
			Passed:          len(missing) == 0,
			MissingSections: missing,
		},
		Issues: issues,
	}
}

func missingSections(r *model.ReportJSON) []string {
	missing := make([]string, 0)
	if r == nil {
		return append(missing, RequiredSections...)
	}
	check := func(path, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, path)
		}
	}
	check("indication.clinical_history", r.Indication.ClinicalHistory)
	check("indication.exam_reason", r.Indication.ExamReason)
	check("technique.equipment", r.Technique.Equipment)
	if len(r.Findings) == 0 {
		missing = append(missing, "findings")
	}
	check("impression.primary_diagnosis", r.Impression.PrimaryDiagnosis)
	return missing
}
