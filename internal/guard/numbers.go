package guard

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// ExtractNumbers returns the canonical numeric tokens in text, deduplicated
// in order of appearance. "6,0 meses" and "6 months" both yield "6".
func ExtractNumbers(text string) []string {
	matches := numberPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		tok := canonicalNumber(m)
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

func canonicalNumber(s string) string {
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Payload is a retrieved guideline payload reduced to the numbers it states.
type Payload struct {
	numbers map[string]bool
}

// NewPayload collects every number in a JSON payload, from numeric values
// and from numbers written inside strings.
func NewPayload(raw json.RawMessage) (Payload, error) {
	p := Payload{numbers: make(map[string]bool)}
	if len(raw) == 0 {
		return p, nil
	}
	var v any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return p, err
	}
	p.collect(v)
	return p, nil
}

// PayloadFromText builds a payload from free text.
func PayloadFromText(text string) Payload {
	p := Payload{numbers: make(map[string]bool)}
	for _, n := range ExtractNumbers(text) {
		p.numbers[n] = true
	}
	return p
}

func (p Payload) collect(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			for _, n := range ExtractNumbers(k) {
				p.numbers[n] = true
			}
			p.collect(child)
		}
	case []any:
		for _, child := range t {
			p.collect(child)
		}
	case json.Number:
		p.numbers[canonicalNumber(t.String())] = true
	case string:
		for _, n := range ExtractNumbers(t) {
			p.numbers[n] = true
		}
	}
}

// Has reports whether the payload states the canonical number tok.
func (p Payload) Has(tok string) bool {
	return p.numbers[tok]
}

// NumericTokens returns the payload numbers, unordered.
func (p Payload) NumericTokens() []string {
	out := make([]string, 0, len(p.numbers))
	for n := range p.numbers {
		out = append(out, n)
	}
	return out
}
