package inference

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/radreport/internal/model"
)

// Context is the normalized view of one finding that rules match against.
type Context struct {
	Desc     string // canon.Normalize(description)
	Organ    string // canon.Normalize(organ)
	Modality model.Modality
	Finding  model.Finding
}

// Cond is a predicate over a finding.
type Cond func(c Context) bool

// Rule fills one input when it is absent. Value returns the value to set
// and whether the rule fired.
type Rule struct {
	Field  string
	Reason string
	Value  func(c Context) (any, bool)
}

// Set fires with a fixed value when cond holds.
func Set(field string, value any, reason string, cond Cond) Rule {
	return Rule{Field: field, Reason: reason, Value: func(c Context) (any, bool) {
		if cond(c) {
			return value, true
		}
		return nil, false
	}}
}

// Capture fires with the number captured by the first group of pattern,
// multiplied by scale.
func Capture(field, reason string, pattern *regexp.Regexp, scale float64, cond Cond) Rule {
	return Rule{Field: field, Reason: reason, Value: func(c Context) (any, bool) {
		if cond != nil && !cond(c) {
			return nil, false
		}
		m := pattern.FindStringSubmatch(c.Desc)
		if m == nil {
			return nil, false
		}
		n, ok := parseNumber(m[1])
		if !ok {
			return nil, false
		}
		return n * scale, true
	}}
}

// CaptureNear is Capture for a number tied to a keyword. Matches that
// contain any of the stop phrases are skipped.
func CaptureNear(field, reason string, pattern *regexp.Regexp, stop []string, cond Cond) Rule {
	return Rule{Field: field, Reason: reason, Value: func(c Context) (any, bool) {
		if cond != nil && !cond(c) {
			return nil, false
		}
		for _, m := range pattern.FindAllStringSubmatch(c.Desc, -1) {
			if containsAny(m[0], stop) {
				continue
			}
			if n, ok := parseNumber(m[1]); ok {
				return n, true
			}
		}
		return nil, false
	}}
}

// Lookup fires with table[group 1] of the first pattern match.
func Lookup(field, reason string, pattern *regexp.Regexp, table map[string]any) Rule {
	return Rule{Field: field, Reason: reason, Value: func(c Context) (any, bool) {
		m := pattern.FindStringSubmatch(c.Desc)
		if m == nil {
			return nil, false
		}
		v, ok := table[m[1]]
		return v, ok
	}}
}

// Contains holds when the description contains any of the phrases.
func Contains(phrases ...string) Cond {
	return func(c Context) bool { return containsAny(c.Desc, phrases) }
}

// OrganContains holds when the organ contains any of the phrases.
func OrganContains(phrases ...string) Cond {
	return func(c Context) bool { return containsAny(c.Organ, phrases) }
}

// ModalityIs holds for the given modality.
func ModalityIs(m model.Modality) Cond {
	return func(c Context) bool { return c.Modality == m }
}

// All holds when every cond holds.
func All(conds ...Cond) Cond {
	return func(c Context) bool {
		for _, cond := range conds {
			if !cond(c) {
				return false
			}
		}
		return true
	}
}

// Not negates a cond.
func Not(cond Cond) Cond {
	return func(c Context) bool { return !cond(c) }
}

// Always holds.
func Always(Context) bool { return true }

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

var numberCleaner = strings.NewReplacer(" ", "", ",", ".", "\u2212", "-")

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(numberCleaner.Replace(s), 64)
	return n, err == nil
}
