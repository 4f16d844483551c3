package inference

import (
	"regexp"
	"strings"

	"github.com/sells-group/radreport/internal/formula"
	"github.com/sells-group/radreport/internal/model"
)

// FamilyRules is the rule set for one formula family.
type FamilyRules struct {
	Rules []Rule
	// Unsupported returns a non-empty reason when the family cannot be
	// classified for this finding at all.
	Unsupported func(c Context) string
	// Missing overrides the registry required-key check.
	Missing func(inputs map[string]any) []string
}

const (
	number       = `(\d+(?:[.,]\d+)?)`
	signedNumber = `([-−]?\s?\d+(?:[.,]\d+)?)`

	// thickness wording right after the structure: "com espessura de",
	// "espessos de", or a bare "com N mm".
	thicknessLead = `\b(?:[^\d.;]{0,30}?\bESPESS\w*\s+(?:DE\s+)?(?:ATE\s+)?|(?:\s+[A-Z]+)?\s+(?:COM|DE)\s+)`
)

// sizeWords mark a lesion measurement, never a wall or septum thickness.
var sizeWords = []string{"MEDINDO", "MEDE "}

var (
	simpleRenalCyst = All(OrganContains("RIM", "RENAL"), Contains("CISTO SIMPLES"))
	noEnhancement   = Contains("SEM REALCE", "NAO REALCA", "NAO REALCE", "SEM REALCE SIGNIFICATIVO")
	nonContrast     = Contains("SEM CONTRASTE", "PRE-CONTRASTE", "PRE CONTRASTE", "FASE PRE")

	attenuationHU  = regexp.MustCompile(`(?:ATENUACAO|DENSIDADE)\D{0,40}?` + signedNumber + `\s*(?:HU|UH)\b`)
	septaCount     = regexp.MustCompile(`(\d+)\s+(?:OU MAIS\s+)?SEPTOS`)
	septaThickness = regexp.MustCompile(`SEPTOS?` + thicknessLead + number + `\s*MM\b`)
	wallThickness  = regexp.MustCompile(`PAREDES?` + thicknessLead + number + `\s*MM\b`)
	declaredClass  = regexp.MustCompile(`BOSNIAK\s+(?:CATEGORIA\s+)?(IIF|IV|III|II|I|2F|[1-4])\b`)
	diameterMM     = regexp.MustCompile(`(?:MEDINDO|MEDE|MEDE CERCA DE|MEDINDO CERCA DE)\s*` + number + `\s*MM\b`)
	diameterCM     = regexp.MustCompile(`(?:MEDINDO|MEDE|MEDE CERCA DE|MEDINDO CERCA DE)\s*` + number + `\s*CM\b`)
)

var bosniakClasses = map[string]any{
	"I": "I", "1": "I",
	"II": "II", "2": "II",
	"IIF": "IIF", "2F": "IIF",
	"III": "III", "3": "III",
	"IV": "IV", "4": "IV",
}

// negative before positive: a negated mention wins.
func tristate(field, reason string, positive, negative []string) []Rule {
	return []Rule{
		Set(field, false, reason, Contains(negative...)),
		Set(field, true, reason, Contains(positive...)),
	}
}

func renalCystRules() []Rule {
	const cyst = "cisto simples informado"
	const desc = "descricao do laudo"
	rules := []Rule{
		Set("modalidade", "MRI", "modalidade do exame", ModalityIs(model.ModalityMR)),
		Set("modalidade", "CT", "modalidade do exame", ModalityIs(model.ModalityCT)),

		// An explicit category outranks every sub-feature heuristic below.
		Lookup("categoria_declarada", "categoria declarada no ditado", declaredClass, bosniakClasses),
		Set("categoria_declarada", "II", "cisto hiperdenso sem contraste", All(Contains("HIPERDENSO", "HIPERDENSA"), nonContrast)),

		Set("realce_hu", 0.0, cyst, simpleRenalCyst),
		Set("componentes_solidos", false, cyst, simpleRenalCyst),
		Set("septos", false, cyst, simpleRenalCyst),
		Set("calcificacao", false, cyst, simpleRenalCyst),
		Set("fluido_simples", true, cyst, simpleRenalCyst),
		Set("homogeneo", true, cyst, simpleRenalCyst),

		Set("muito_pequeno_caracterizar", true, "tstc/limitacao descrita", Contains(
			"TSTC", "TOO SMALL TO CHARACTERIZE", "MUITO PEQUENO PARA CARACTERIZAR",
			"PEQUENO DEMAIS PARA CARACTERIZAR", "CARACTERIZACAO LIMITADA",
			"PEQUENAS DIMENSOES", "VOLUME PARCIAL")),

		Set("realce_hu", 0.0, "sem realce descrito", noEnhancement),
		Set("realce_hu", 20.0, "realce descrito", All(Contains("REALCE"), Not(noEnhancement))),

		Capture("atenuacao_hu_pre", "atenuacao medida sem contraste", attenuationHU, 1, nonContrast),
		Capture("atenuacao_hu_portal", "atenuacao medida em fase portal", attenuationHU, 1, All(Contains("PORTAL"), Not(nonContrast))),

		Capture("numero_septos", "contagem de septos descrita", septaCount, 1, nil),
		CaptureNear("septos_espessura_mm", "espessura septal medida", septaThickness, sizeWords, nil),
		CaptureNear("parede_espessura_mm", "espessura parietal medida", wallThickness, sizeWords, nil),
		Set("parede_espessura_mm", 4.0, "parede espessada descrita (>=4 mm)", Contains("PAREDE ESPESSADA", "ESPESSAMENTO PARIETAL")),
		Set("parede_realce", true, "realce parietal descrito", Contains("REALCE PARIETAL", "PAREDE COM REALCE", "REALCE DA PAREDE")),
		Set("parede_irregular", true, desc, Contains("PAREDE IRREGULAR", "PAREDES IRREGULARES")),
		Set("septos_irregulares", true, desc, Contains("SEPTOS IRREGULARES", "SEPTO IRREGULAR")),
		Set("nodulo_realce", true, desc, Contains("NODULO MURAL COM REALCE", "NODULO COM REALCE", "NODULO REALCANTE")),
	}
	rules = append(rules, tristate("componentes_solidos", desc,
		[]string{"COMPONENTE SOLIDO", "NODULO MURAL"},
		[]string{"SEM COMPONENTE SOLIDO", "SEM NODULO MURAL"})...)
	rules = append(rules, tristate("septos", desc,
		[]string{"SEPTOS", "SEPTADO", "SEPTACAO"},
		[]string{"SEM SEPTO", "SEM SEPTOS"})...)
	rules = append(rules, tristate("calcificacao", desc,
		[]string{"CALCIFICACAO", "CALCIFICADO"},
		[]string{"SEM CALCIFICACAO"})...)
	return rules
}

// renalCystSignals are the inputs of which any one is enough for the
// calculator to attempt a Bosniak category.
var renalCystSignals = []string{
	"categoria_declarada",
	"fluido_simples",
	"muito_pequeno_caracterizar",
	"atenuacao_hu_pre",
	"atenuacao_hu_portal",
	"realce_hu",
	"parede_espessura_mm",
	"septos_espessura_mm",
	"parede_irregular",
	"septos_irregulares",
	"nodulo_realce",
	"hiperintenso_t2_csf",
	"hiperintenso_t1_marcado",
	"hiperintenso_t1_heterogeneo_fs",
	"septos",
	"calcificacao",
	"componentes_solidos",
}

func renalCystMissing(inputs map[string]any) []string {
	for _, key := range renalCystSignals {
		if !formula.IsMissing(inputs[key]) {
			return nil
		}
	}
	return []string{"dados insuficientes (realce/parede/septos/atenuacao/sinais RM)"}
}

func prostateRules() []Rule {
	pz := Contains("ZONA PERIFERICA", "PERIFERICA")
	tz := Contains("ZONA DE TRANSICAO", "ZONA TRANSICAO", "TRANSICAO")
	dcePos := Contains("DCE POSITIVO", "REALCE DINAMICO POSITIVO", "REALCE PRECOCE POSITIVO")
	dceNeg := Contains("DCE NEGATIVO", "SEM REALCE DINAMICO", "SEM REALCE PRECOCE")
	return []Rule{
		Set("localizacao", "zona_periferica", "zona periferica mencionada", All(pz, Not(tz))),
		Set("localizacao", "zona_transicao", "zona de transicao mencionada", All(tz, Not(pz))),
		Set("dce_score", 1.0, "DCE positivo descrito", dcePos),
		Set("dce_score", 0.0, "DCE negativo descrito", All(dceNeg, Not(dcePos))),
	}
}

func thyroidRules() []Rule {
	return []Rule{
		Set("forma", "mais_larga_que_alta", "padrao cauteloso (wider-than-tall)", Always),
		Set("focos_ecogenicos", "ausentes", "padrao cauteloso (sem focos)", Always),
		largestDiameterRule(),
	}
}

func adnexalRules() []Rule {
	simple := Contains("CISTO SIMPLES", "CISTO ANEXIAL SIMPLES")
	complexCyst := Contains("CISTO COMPLEXO", "CISTO COMPLEXA")
	mixed := Contains("MISTA")
	absent := Contains("SEM VASCULARIZACAO", "VASCULARIZACAO AUSENTE", "SEM VASCULARIDADE")
	return []Rule{
		Set("composicao", "cistica_simples", "descricao de cisto simples", simple),
		Set("composicao", "cistica_complexa", "descricao de cisto complexo", All(complexCyst, Not(simple))),
		Set("composicao", "mista", "descricao de lesao mista", All(mixed, Not(simple), Not(complexCyst))),
		Set("composicao", "solida", "descricao de lesao solida", All(Contains("SOLIDA"), Not(simple), Not(complexCyst), Not(mixed))),
		Set("vascularizacao", "ausente", "vascularizacao ausente descrita", absent),
		Set("vascularizacao", "presente", "vascularizacao presente descrita",
			All(Contains("VASCULARIZACAO PRESENTE", "COM VASCULARIZACAO", "VASCULARIDADE PRESENTE"), Not(absent))),
		largestDiameterRule(),
	}
}

func adnexalUnsupported(c Context) string {
	if c.Modality == model.ModalityMR {
		return "O-RADS RM nao implementado; fornecer criterios RM para classificar."
	}
	return ""
}

// largestDiameterRule prefers a structured measurement, then a "medindo X mm/cm" phrase.
func largestDiameterRule() Rule {
	return Rule{Field: "maior_diametro_mm", Reason: "maior medida descrita", Value: func(c Context) (any, bool) {
		var best float64
		for _, m := range c.Finding.Measurements {
			v := m.Value
			switch strings.ToLower(strings.TrimSpace(m.Unit)) {
			case "mm":
			case "cm":
				v *= 10
			default:
				continue
			}
			if v > best {
				best = v
			}
		}
		if best > 0 {
			return best, true
		}
		if m := diameterMM.FindStringSubmatch(c.Desc); m != nil {
			if n, ok := parseNumber(m[1]); ok {
				return n, true
			}
		}
		if m := diameterCM.FindStringSubmatch(c.Desc); m != nil {
			if n, ok := parseNumber(m[1]); ok {
				return n * 10, true
			}
		}
		return nil, false
	}}
}

// DefaultFamilies returns the cautious rule sets for every family that has inference.
func DefaultFamilies() map[formula.Family]FamilyRules {
	return map[formula.Family]FamilyRules{
		formula.FamilyRenalCyst: {Rules: renalCystRules(), Missing: renalCystMissing},
		formula.FamilyProstate:  {Rules: prostateRules()},
		formula.FamilyThyroid:   {Rules: thyroidRules()},
		formula.FamilyAdnexal:   {Rules: adnexalRules(), Unsupported: adnexalUnsupported},
	}
}
