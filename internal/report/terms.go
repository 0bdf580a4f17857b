package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"adinsights/internal/aggregate"
	"adinsights/internal/config"
	"adinsights/internal/parser/html"
	"adinsights/internal/table"
	"adinsights/internal/textutil"
)

// TermCount is one line of a term file.
type TermCount struct {
	Term  string
	Count int
}

// TermFile is a ranked term list destined for one file.
type TermFile struct {
	Name  string
	Terms []TermCount
}

// DefaultTermColumns are joined, in this order, into the text of an ad.
var DefaultTermColumns = []string{
	"ad_creative_bodies",
	"ad_creative_link_titles",
	"ad_creative_link_descriptions",
}

// Terms ranks the words of the creative text per source.
type Terms struct {
	Year       int
	Month      int
	MinCount   int
	RequireAll bool
	Fold       bool
	Columns    []string
	Stopwords  textutil.StopwordSet
}

func init() { Register("terms", newTerms) }

func newTerms(o config.Options) (Builder, error) {
	t := Terms{
		Year:       o.Int("year", 0),
		Month:      o.Int("month", 0),
		MinCount:   o.Int("min_count", 3),
		RequireAll: o.Bool("require_all", true),
		Fold:       o.Bool("fold", false),
		Columns:    o.StringSlice("text_columns"),
		Stopwords: textutil.DefaultStopwords().
			With(textutil.SingleLetters()...).
			With(o.StringSlice("stopwords")...),
	}
	if len(t.Columns) == 0 {
		t.Columns = DefaultTermColumns
	}
	if t.Month < 0 || t.Month > 12 {
		return nil, fmt.Errorf("month %d out of range", t.Month)
	}
	return t, nil
}

// TermFileName is the file a source's terms are written to.
func TermFileName(source string, minCount int) string {
	return fmt.Sprintf("%s-%d-counts.txt", source, minCount)
}

// CountTerms tokenizes texts and returns the terms seen at least minCount
// times that are not stopwords, by count descending then term.
func CountTerms(texts []string, minCount int, stop textutil.StopwordSet) []TermCount {
	counts := map[string]int{}
	for _, s := range texts {
		for _, tok := range textutil.Tokenize(s) {
			counts[tok]++
		}
	}
	out := make([]TermCount, 0, len(counts))
	for term, n := range counts {
		if n < minCount || stop.Contains(term) {
			continue
		}
		out = append(out, TermCount{Term: term, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	return out
}

// inPeriod keeps rows delivered in the configured year and month.
func (t Terms) inPeriod(r table.Record) bool {
	day := r.Get(DateColumn)
	if day.IsNull() {
		return false
	}
	s := day.Text()
	if t.Year > 0 && !strings.Contains(s, strconv.Itoa(t.Year)) {
		return false
	}
	if t.Month > 0 && !strings.Contains(s, fmt.Sprintf("-%02d-", t.Month)) {
		return false
	}
	return true
}

func (t Terms) text(r table.Record) string {
	parts := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if cell := r.Get(c); !cell.IsNull() {
			parts = append(parts, cell.Text())
		}
	}
	s := html.StripHTML(strings.Join(parts, " "))
	if t.Fold {
		s = textutil.Fold(s)
	}
	return s
}

// Build returns columns source, term, count and one TermFile per source.
func (t Terms) Build(ctx context.Context, env Env, sources []Source) (*Result, error) {
	out := table.MustNew(SourceColumn, "term", "count")
	res := &Result{Name: "terms"}
	var filled []string
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := src.Table
		if t.Year > 0 || t.Month > 0 {
			if !rows.Has(DateColumn) {
				return nil, fmt.Errorf("terms: %s: %w: %q", src.Label, table.ErrUnknownColumn, DateColumn)
			}
			rows = rows.Filter(t.inPeriod)
		}
		if t.RequireAll {
			var err error
			if rows, err = rows.DropNulls(t.Columns...); err != nil {
				return nil, fmt.Errorf("terms: %s: %w", src.Label, err)
			}
		}
		texts := make([]string, 0, rows.Len())
		for _, r := range rows.Records() {
			texts = append(texts, t.text(r))
		}
		terms := CountTerms(texts, t.MinCount, t.Stopwords)
		for _, tc := range terms {
			if err := out.Append(table.StringCell(src.Label), table.StringCell(tc.Term), table.IntCell(int64(tc.Count))); err != nil {
				return nil, err
			}
		}
		res.TermFiles = append(res.TermFiles, TermFile{Name: TermFileName(src.Label, t.MinCount), Terms: terms})
		filled = append(filled, fmt.Sprintf("%s: %d%%", src.Label, aggregate.Percent(rows.Len(), src.Table.Len())))

		env.logger().Debug("terms: source done",
			zap.String("source", src.Label),
			zap.Int("ads", rows.Len()),
			zap.Int("terms", len(terms)))
	}
	res.Table = out
	res.Title = fmt.Sprintf("Terms used in ads. Ads with text data: %s.", strings.Join(filled, ", "))
	return res, nil
}
