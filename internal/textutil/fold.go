// Package textutil holds the text primitives shared by the report builders
// and the storage layer: accent folding, identifier normalization,
// tokenization of ad copy, and immutable stopword sets.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold removes diacritics: "Pénélope" → "Penelope". The transformer chain is
// stateful, so one is built per call.
func Fold(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeFieldName turns a column name into a portable SQL identifier:
// folded, lower-case, [a-z0-9_] only, separators (space, '-', '.') collapsed
// into one underscore. "demographic_distribution.age" becomes
// "demographic_distribution_age". An empty result becomes "col".
func NormalizeFieldName(s string) string {
	s = Fold(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	prevUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}
