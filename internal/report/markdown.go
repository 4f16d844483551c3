package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/radreport/internal/model"
)

// FindingsHeading returns the modality-specific findings section title.
func FindingsHeading(m model.Modality) string {
	switch m {
	case model.ModalityCT:
		return "ACHADOS TOMOGRÁFICOS"
	case model.ModalityMR:
		return "ACHADOS POR RESSONÂNCIA MAGNÉTICA"
	case model.ModalityUS:
		return "ACHADOS ULTRASSONOGRÁFICOS"
	default:
		return "ACHADOS"
	}
}

// Markdown renders the report in the house layout without calling a model:
// bold uppercase section titles fenced by "---" lines, findings as "►"
// paragraphs under a bold organ line, calculator results as "▪" sub-items.
func Markdown(r *model.ReportJSON) string {
	var b strings.Builder

	title := strings.ToUpper(strings.TrimSpace(r.ExamTitle))
	if title == "" {
		title = "EXAME " + model.MissingMarker
	}
	fmt.Fprintf(&b, "**%s**\n\n", title)

	section(&b, "INDICAÇÃO CLÍNICA")
	b.WriteString(orMissing(joinSentences(r.Indication.ClinicalHistory, r.Indication.ExamReason)) + "\n\n")

	section(&b, "TÉCNICA E PROTOCOLO")
	b.WriteString(orMissing(joinSentences(r.Technique.Equipment, r.Technique.Protocol)) + "\n\n")
	if c := r.Technique.Contrast; c.Used {
		line := "Contraste endovenoso"
		if c.Type != "" {
			line += " (" + c.Type + ")"
		}
		if len(c.Phases) > 0 {
			line += ", fases: " + strings.Join(c.Phases, ", ")
		}
		b.WriteString(line + ".\n\n")
	} else {
		b.WriteString("Sem contraste endovenoso.\n\n")
	}

	if c := r.Comparison; c != nil && c.Available {
		section(&b, "COMPARAÇÃO")
		b.WriteString(orMissing(sentence(c.Summary)) + "\n\n")
		if c.Limitations != "" {
			b.WriteString(sentence(c.Limitations) + "\n\n")
		}
	}

	section(&b, FindingsHeading(r.Modality))
	if len(r.Findings) == 0 {
		b.WriteString(model.MissingMarker + "\n\n")
	}
	for _, f := range r.Findings {
		if organ := strings.TrimSpace(f.Organ); organ != "" {
			fmt.Fprintf(&b, "**%s**\n\n", strings.ToUpper(organ))
		}
		fmt.Fprintf(&b, "► %s\n\n", orMissing(sentence(f.Description)))
		for _, req := range f.ComputeRequests {
			res, ok := r.ComputeResults[req.RefID]
			if !ok {
				continue
			}
			value := model.MissingMarker
			if res.Error == "" && res.Result != nil {
				value = formatResult(res.Result)
			}
			fmt.Fprintf(&b, "    ▪ %s: %s\n\n", res.Formula, value)
		}
	}

	section(&b, "IMPRESSÃO")
	fmt.Fprintf(&b, "► %s\n\n", orMissing(sentence(r.Impression.PrimaryDiagnosis)))
	for _, d := range r.Impression.Differentials {
		fmt.Fprintf(&b, "    ▪ Diagnóstico diferencial: %s\n\n", sentence(d))
	}
	for _, rec := range r.Impression.Recommendations {
		fmt.Fprintf(&b, "► %s\n\n", sentence(rec))
	}
	for _, rec := range r.EvidenceRecommendations {
		fmt.Fprintf(&b, "► %s\n\n", sentence(rec.Text))
	}

	if len(r.References) > 0 {
		section(&b, "REFERÊNCIAS")
		for _, ref := range r.References {
			fmt.Fprintf(&b, "%s\n\n", ref.Citation)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "---\n\n**%s**\n\n---\n\n", title)
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.MissingMarker
	}
	return s
}

// sentence trims s and ends it with a period unless it already ends in
// punctuation or a placeholder.
func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, model.MissingMarker) {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return s
	}
	return s + "."
}

func joinSentences(parts ...string) string {
	var out []string
	for _, p := range parts {
		if s := sentence(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, " ")
}

func formatResult(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
