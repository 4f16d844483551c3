package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/radreport/internal/model"
)

// AuditTitle heads the internal audit block appended to rendered text.
const AuditTitle = "AUDITORIA INTERNA (NAO COPIAR PARA O LAUDO)"

// FormatAuditBlock renders the audit trail, inferred entries first. It
// returns "" for an empty audit.
func FormatAuditBlock(audit *model.ReportAudit) string {
	if audit == nil || len(audit.Entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("---\n\n")
	b.WriteString(AuditTitle + "\n\n")
	fmt.Fprintf(&b, "Nivel de inferencia: %s\n\n", strings.ToUpper(string(audit.InferenceLevel)))

	writeSection := func(heading string, kind model.AuditEntryKind) {
		first := true
		for _, e := range audit.Entries {
			if e.Kind != kind {
				continue
			}
			if first {
				b.WriteString(heading + "\n\n")
				first = false
			}
			fmt.Fprintf(&b, "▪ %s (%s): %s\n\n", e.Formula, e.RefID, e.Details)
		}
	}
	writeSection("Inferencias aplicadas:", model.AuditInferred)
	writeSection("Pendencias para classificacao:", model.AuditMissing)

	return strings.TrimRight(b.String(), " \t\r\n")
}

// AppendAuditBlock appends the audit block after a blank line. Text is
// returned unchanged when there is nothing to append.
func AppendAuditBlock(text string, audit *model.ReportAudit) string {
	block := FormatAuditBlock(audit)
	if block == "" {
		return text
	}
	return strings.TrimRight(text, " \t\r\n") + "\n\n" + block + "\n"
}

// CountMissingMarkers counts unresolved placeholders in text.
func CountMissingMarkers(text string) int {
	return strings.Count(text, model.MissingMarker)
}
