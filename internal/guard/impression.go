package guard

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sells-group/radreport/internal/canon"
	"github.com/sells-group/radreport/internal/model"
)

// hedges mark a statement as already probabilistic. Folded, lowercase.
var hedges = []string{
	"compativ", "consistente", "sugestiv", "suspeit", "inespecific", "indeterminad",
	"pouco provavel", "improvavel", "possibilidade", "diferencial", "hipotese",
}

// diseaseStems indicate a diagnosis that must be grounded in the findings.
var diseaseStems = []string{
	"neopl", "tumor", "carcin", "cancer", "metastas", "trombo", "emboli",
	"apendic", "colecist", "pancreatit", "diverticul", "abscess", "infart",
	"aneurism", "estenos", "obstruc", "perfura", "hemorrag", "nodul", "massa", "lesa",
}

const softenSuffix = " (inespecífico; sem achado objetivo nos achados)."

// GuardImpression hedges a categorical primary diagnosis that names disease
// vocabulary absent from the findings text. It reports whether it changed
// anything; differentials and recommendations are left alone.
func GuardImpression(findingsText string, imp model.Impression) (model.Impression, bool) {
	primary := strings.TrimSpace(imp.PrimaryDiagnosis)
	if primary == "" {
		return imp, false
	}

	folded := canon.FoldLower(primary)
	if containsAnyOf(folded, hedges) {
		return imp, false
	}

	corpus := canon.FoldLower(findingsText)
	ungrounded := false
	for _, stem := range diseaseStems {
		if strings.Contains(folded, stem) && !strings.Contains(corpus, stem) {
			ungrounded = true
			break
		}
	}
	if !ungrounded {
		return imp, false
	}

	statement := strings.TrimRight(primary, ". ")
	imp.PrimaryDiagnosis = "Possibilidade de " + lowerFirst(statement) + softenSuffix
	return imp, true
}

func containsAnyOf(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// lowerFirst lowercases the first letter unless the word is an acronym.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	if next, _ := utf8.DecodeRuneInString(s[size:]); unicode.IsUpper(next) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
