package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// termSep separates a term from its count in term files.
const termSep = " --- "

// ReadTerms parses a term file. Blank lines are skipped.
func ReadTerms(r io.Reader) ([]TermCount, error) {
	var out []TermCount
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(s) == "" {
			continue
		}
		term, count, ok := strings.Cut(s, termSep)
		if !ok {
			return nil, fmt.Errorf("terms: line %d: missing %q", line, strings.TrimSpace(termSep))
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil {
			return nil, fmt.Errorf("terms: line %d: %w", line, err)
		}
		out = append(out, TermCount{Term: term, Count: n})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("terms: %w", err)
	}
	return out, nil
}

// WriteTerms writes one "term --- count" line per entry.
func WriteTerms(w io.Writer, terms []TermCount) error {
	bw := bufio.NewWriter(w)
	for _, tc := range terms {
		if _, err := fmt.Fprintf(bw, "%s%s%d\n", tc.Term, termSep, tc.Count); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// TermDiff compares the relative rank of a term in two lists. Diff lies in
// [-1, 1]; negative means the term ranks higher in A.
type TermDiff struct {
	Term  string
	Diff  float64
	FreqA int
	FreqB int
}

// RankDifference returns a TermDiff for every term of a or b, sorted by term.
// Ranks are 1-based; a term missing from a list takes that list's size.
func RankDifference(a, b []TermCount) []TermDiff {
	rankA, rankB := ranks(a), ranks(b)
	terms := make([]string, 0, len(rankA)+len(rankB))
	for t := range rankA {
		terms = append(terms, t)
	}
	for t := range rankB {
		if _, ok := rankA[t]; !ok {
			terms = append(terms, t)
		}
	}
	sort.Strings(terms)

	out := make([]TermDiff, len(terms))
	for i, t := range terms {
		d := TermDiff{Term: t}
		ra, ok := rankA[t]
		if ok {
			d.FreqA = a[ra-1].Count
		}
		rb, ok := rankB[t]
		if ok {
			d.FreqB = b[rb-1].Count
		}
		d.Diff = relRank(ra, len(a)) - relRank(rb, len(b))
		out[i] = d
	}
	return out
}

// ranks maps each term to its first 1-based position.
func ranks(l []TermCount) map[string]int {
	m := make(map[string]int, len(l))
	for i, tc := range l {
		if _, dup := m[tc.Term]; !dup {
			m[tc.Term] = i + 1
		}
	}
	return m
}

func relRank(rank, size int) float64 {
	if rank == 0 || size == 0 {
		return 1
	}
	return float64(rank) / float64(size)
}

// RankDiffOptions selects which terms Descriptive returns.
type RankDiffOptions struct {
	Limit int
	// Reverse keeps only the terms on the other side of zero, closest to
	// zero first.
	Reverse bool
}

// DescriptiveA returns the terms most typical of list A.
func DescriptiveA(diffs []TermDiff, opt RankDiffOptions) []TermDiff {
	if opt.Reverse {
		return pick(diffs, opt.Limit, func(d TermDiff) bool { return d.Diff <= 0 }, func(x, y float64) bool { return x > y })
	}
	return pick(diffs, opt.Limit, nil, func(x, y float64) bool { return x < y })
}

// DescriptiveB returns the terms most typical of list B.
func DescriptiveB(diffs []TermDiff, opt RankDiffOptions) []TermDiff {
	if opt.Reverse {
		return pick(diffs, opt.Limit, func(d TermDiff) bool { return d.Diff >= 0 }, func(x, y float64) bool { return x < y })
	}
	return pick(diffs, opt.Limit, nil, func(x, y float64) bool { return x > y })
}

func pick(diffs []TermDiff, limit int, keep func(TermDiff) bool, less func(x, y float64) bool) []TermDiff {
	out := make([]TermDiff, 0, len(diffs))
	for _, d := range diffs {
		if keep == nil || keep(d) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i].Diff, out[j].Diff) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
