package textutil

import (
	_ "embed"
	"strings"
)

//go:embed stopwords.txt
var defaultStopwords string

// StopwordSet is an immutable set of lower-case words. The zero value is an
// empty set.
type StopwordSet struct {
	m map[string]struct{}
}

// NewStopwordSet returns a set holding the lower-cased words.
func NewStopwordSet(words ...string) StopwordSet {
	return StopwordSet{}.With(words...)
}

// DefaultStopwords returns the English stopword list used for ad copy.
func DefaultStopwords() StopwordSet {
	return NewStopwordSet(strings.Fields(defaultStopwords)...)
}

// SingleLetters returns "a" through "z".
func SingleLetters() []string {
	out := make([]string, 0, 26)
	for r := 'a'; r <= 'z'; r++ {
		out = append(out, string(r))
	}
	return out
}

// With returns a new set holding s plus words. s is not modified.
func (s StopwordSet) With(words ...string) StopwordSet {
	m := make(map[string]struct{}, len(s.m)+len(words))
	for w := range s.m {
		m[w] = struct{}{}
	}
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			m[w] = struct{}{}
		}
	}
	return StopwordSet{m: m}
}

// Contains reports whether the lower-cased w is in the set.
func (s StopwordSet) Contains(w string) bool {
	_, ok := s.m[strings.ToLower(w)]
	return ok
}

// Len returns the number of words.
func (s StopwordSet) Len() int { return len(s.m) }
