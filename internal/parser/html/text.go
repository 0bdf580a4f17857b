// Package html cleans ad creative text: bodies, link titles and
// descriptions often carry markup fragments and irregular whitespace. It is
// a heuristic, not an HTML parser.
package html

import "strings"

// StripHTML drops every <...> sequence from s, delimiters included. An
// unterminated '<' drops the rest of the string.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CollapseWhitespace replaces runs of spaces, tabs and line breaks with a
// single space and trims both ends.
func CollapseWhitespace(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			pending = b.Len() > 0
		default:
			if pending {
				b.WriteByte(' ')
				pending = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeText strips tags and then collapses whitespace.
func NormalizeText(s string) string {
	return CollapseWhitespace(StripHTML(s))
}
