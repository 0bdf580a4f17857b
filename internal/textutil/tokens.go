package textutil

import (
	"strings"
	"unicode"
)

// CleanToken lower-cases s and drops every rune that is not a letter, a
// digit or an underscore, so "Vote!" and "vote" count as the same term.
func CleanToken(s string) string {
	s = strings.ToLower(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, s)
}

// Tokenize splits s on whitespace and cleans each piece. Pieces that clean to
// nothing (punctuation, emoji) are dropped.
func Tokenize(s string) []string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		if t := CleanToken(f); t != "" {
			out = append(out, t)
		}
	}
	return out
}
