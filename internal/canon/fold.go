// Package canon normalizes report text and checks it against the banned
// phrase list and the term blacklist.
package canon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips diacritics ("ã" -> "a", "ç" -> "c") and leaves everything else as is.
func Fold(s string) string {
	// Transformers carry state, so build a fresh chain per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize folds diacritics, collapses whitespace, trims and uppercases.
// Rule matching throughout the pipeline works on this form.
func Normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(Fold(s)), " "))
}

// FoldLower folds diacritics and lowercases.
func FoldLower(s string) string {
	return strings.ToLower(Fold(s))
}
