package canon

import (
	"strings"

	"github.com/sells-group/radreport/internal/model"
)

// bannedPhrases are meta-references to the dictation, the input, or the
// report itself that must never reach a signed report. Matched lowercase.
var bannedPhrases = []string{
	// source references
	"conforme áudio", "conforme o áudio", "segundo o áudio", "de acordo com o áudio",
	"conforme ditado", "segundo ditado",
	"conforme transcrição", "conforme transcricao", "conforme a transcrição", "segundo a transcrição",
	"conforme input", "conforme o input", "no input", "do input",
	"conforme anexo", "conforme os anexos", "segundo anexo", "no anexo",
	"conforme ocr", "segundo ocr",

	// self references
	"neste laudo", "neste exame", "no presente laudo", "no presente exame", "nesta análise",
	"achados acima", "os achados acima", "conforme descrito acima", "como descrito acima", "vide acima",
	"na impressão", "na impressão acima", "conforme impressão",

	// filler
	"cabe ressaltar", "é importante notar", "vale destacar", "importante ressaltar", "importante destacar",
	"nota-se que", "observa-se que", "destaca-se que", "salienta-se que",
	"conforme solicitado", "como solicitado", "conforme instruções", "conforme as instruções",
}

// BannedPhrases returns a copy of the banned phrase list.
func BannedPhrases() []string {
	out := make([]string, len(bannedPhrases))
	copy(out, bannedPhrases)
	return out
}

// CheckBanlist reports every banned phrase present in text, with the byte
// offset of its first occurrence in the lowercased text.
func CheckBanlist(text string) model.BanlistResult {
	lower := strings.ToLower(text)
	violations := make([]model.BanlistViolation, 0)
	for _, phrase := range bannedPhrases {
		if idx := strings.Index(lower, phrase); idx >= 0 {
			violations = append(violations, model.BanlistViolation{Phrase: phrase, Index: idx})
		}
	}
	return model.BanlistResult{Passed: len(violations) == 0, Violations: violations}
}
