package report

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sells-group/radreport/internal/canon"
	"github.com/sells-group/radreport/internal/model"
)

// examFields are intake fields checked, in order, for the exam name.
var examFields = []string{"Exame", "Tipo de Exame", "Tipo Exame", "Exame Solicitado"}

// ExamTitle returns the first non-blank exam field, falling back to the
// first non-blank field in key order.
func ExamTitle(fields map[string]string) string {
	for _, k := range examFields {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}
	return ""
}

// ResolveModality matches the exam title against CT, MR and US keywords,
// in that order.
func ResolveModality(fields map[string]string) model.Modality {
	title := ExamTitle(fields)
	if title == "" {
		return model.ModalityUnknown
	}

	words := strings.FieldsFunc(canon.Normalize(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	switch {
	case hasWord(words, "TC") || hasPrefix(words, "TOMOGRAF"):
		return model.ModalityCT
	case hasWord(words, "RM") || hasPrefix(words, "RESSONANCIA"):
		return model.ModalityMR
	case hasWord(words, "US") || hasWord(words, "USG") || hasPrefix(words, "ULTRASS"):
		return model.ModalityUS
	}
	return model.ModalityUnknown
}

func hasWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

func hasPrefix(words []string, p string) bool {
	for _, x := range words {
		if strings.HasPrefix(x, p) {
			return true
		}
	}
	return false
}
