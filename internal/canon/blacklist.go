package canon

import (
	"regexp"
	"strings"

	"github.com/sells-group/radreport/internal/model"
)

type blacklistRule struct {
	wrong   string
	right   string
	pattern *regexp.Regexp
	// extends is the tail appended when right starts with wrong; a match
	// already followed by it is left alone.
	extends string
}

var abbreviation = regexp.MustCompile(`^[A-Z]{2,}$`)

// Order matters: longer plural forms follow their singular stems so a
// corrected stem is not corrected twice.
var blacklistPairs = [][2]string{
	{"subsentimétrico", "subcentimétrico"},
	{"subsentimetrico", "subcentimetrico"},
	{"subsentimetricos", "subcentimetricos"},
	{"subsentimetricas", "subcentimetricas"},
	{"zonalidade", "zonagem"},
	{"parênquima hepático normal", "parênquima hepático de aspecto habitual"},
	{"parênquima renal normal", "parênquima renal de aspecto habitual"},
	{"sem alterações", "sem alterações significativas"},
	{"dentro da normalidade", "dentro dos limites da normalidade"},
	{"TC", "tomografia computadorizada"},
	{"RM", "ressonância magnética"},
	{"USG", "ultrassonografia"},
	{"RX", "radiografia"},
	{"follow-up", "acompanhamento"},
	{"follow up", "acompanhamento"},
	{"screening", "rastreamento"},
	{"findings", "achados"},
	{"enhancement", "realce"},
}

var blacklistRules = compileBlacklist(blacklistPairs)

func compileBlacklist(pairs [][2]string) []blacklistRule {
	rules := make([]blacklistRule, 0, len(pairs))
	for _, p := range pairs {
		expr := regexp.QuoteMeta(p[0])
		if abbreviation.MatchString(p[0]) {
			expr = `\b` + expr + `\b`
		}
		r := blacklistRule{wrong: p[0], right: p[1], pattern: regexp.MustCompile(`(?i)` + expr)}
		if strings.HasPrefix(strings.ToLower(p[1]), strings.ToLower(p[0])) {
			r.extends = strings.ToLower(p[1][len(p[0]):])
		}
		rules = append(rules, r)
	}
	return rules
}

// ApplyBlacklist replaces every blacklisted term with its preferred form and
// reports the corrections that fired. Applying it to its own output is a no-op.
func ApplyBlacklist(text string) model.BlacklistResult {
	corrections := make([]model.BlacklistCorrection, 0)
	for _, rule := range blacklistRules {
		var n int
		text, n = rule.apply(text)
		if n > 0 {
			corrections = append(corrections, model.BlacklistCorrection{
				Original:  rule.wrong,
				Corrected: rule.right,
				Count:     n,
			})
		}
	}
	return model.BlacklistResult{Text: text, Corrections: corrections}
}

func (r blacklistRule) apply(text string) (string, int) {
	locs := r.pattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last, n := 0, 0
	for _, loc := range locs {
		if r.extends != "" && strings.HasPrefix(strings.ToLower(text[loc[1]:]), r.extends) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(r.right)
		last = loc[1]
		n++
	}
	b.WriteString(text[last:])
	return b.String(), n
}
