package report

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"adinsights/internal/aggregate"
	"adinsights/internal/config"
	"adinsights/internal/table"
)

// DefaultTextColumns are the creative text columns searched for keywords.
var DefaultTextColumns = []string{
	"ad_creative_bodies",
	"ad_creative_link_titles",
	"ad_creative_link_captions",
	"ad_creative_link_descriptions",
}

// DateColumn is the delivery start day of an ad.
const DateColumn = "ad_delivery_start_time"

// Series layouts of the keywords report.
const (
	SeriesKeyword = "keyword"
	SeriesSource  = "source"
)

// Keywords counts, per delivery day, the ads whose creative text contains a
// keyword. Matching is a case-sensitive substring test.
type Keywords struct {
	Keywords    []string
	Series      string
	TextColumns []string
}

func init() { Register("keywords", newKeywords) }

func newKeywords(o config.Options) (Builder, error) {
	kws := o.StringSlice("keywords")
	if path := o.String("keywords_file", ""); path != "" {
		more, err := readLines(path)
		if err != nil {
			return nil, err
		}
		kws = append(kws, more...)
	}
	k := Keywords{
		Keywords:    uniqueNonEmpty(kws),
		Series:      o.String("series", SeriesKeyword),
		TextColumns: o.StringSlice("text_columns"),
	}
	if len(k.TextColumns) == 0 {
		k.TextColumns = DefaultTextColumns
	}
	if len(k.Keywords) == 0 {
		return nil, errors.New("no keywords configured")
	}
	switch k.Series {
	case SeriesKeyword, SeriesSource:
	default:
		return nil, fmt.Errorf("unknown series %q", k.Series)
	}
	return k, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("keywords file: %w", err)
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("keywords file %s: %w", path, err)
	}
	return out, nil
}

func uniqueNonEmpty(xs []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" || seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
	}
	return out
}

// matches reports whether any text column of r contains one of kws.
func (k Keywords) matches(r table.Record, kws []string) bool {
	for _, c := range k.TextColumns {
		cell := r.Get(c)
		if cell.IsNull() {
			continue
		}
		text := cell.Text()
		for _, kw := range kws {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

// series counts the matching rows of t per day into a date, name table.
func (k Keywords) series(t *table.Table, name string, kws []string) (*table.Table, int, error) {
	matched := t.Filter(func(r table.Record) bool { return k.matches(r, kws) })
	if matched.Len() == 0 {
		return nil, 0, nil
	}
	days := matched.WithColumn("date", func(r table.Record) table.Cell {
		d, err := aggregate.ParseDay(r.Get(DateColumn).Text())
		if err != nil {
			return table.NullCell()
		}
		return table.StringCell(d.Format(aggregate.DayLayout))
	})
	counts, err := aggregate.GroupBy(days, []string{"date"}, aggregate.Spec{Op: aggregate.Count, As: name})
	if err != nil {
		return nil, 0, err
	}
	return counts, matched.Len(), nil
}

// Build returns columns date, <series...>. It fails with ErrNoResults when
// no series has a match.
func (k Keywords) Build(ctx context.Context, env Env, sources []Source) (*Result, error) {
	for _, src := range sources {
		for _, c := range append([]string{DateColumn}, k.TextColumns...) {
			if !src.Table.Has(c) {
				return nil, fmt.Errorf("keywords: %s: %w: %q", src.Label, table.ErrUnknownColumn, c)
			}
		}
	}

	type input struct {
		name string
		t    *table.Table
		kws  []string
	}
	var inputs []input
	total := 0
	if k.Series == SeriesSource {
		for _, src := range sources {
			inputs = append(inputs, input{src.Label, src.Table, k.Keywords})
			total += src.Table.Len()
		}
	} else {
		tables := make([]*table.Table, len(sources))
		for i, src := range sources {
			tables[i] = src.Table
		}
		pooled := table.Concat(tables...)
		total = pooled.Len()
		for _, kw := range k.Keywords {
			inputs = append(inputs, input{kw, pooled, []string{kw}})
		}
	}

	var (
		found    []*table.Table
		filled   int
		from, to time.Time
		dated    bool
	)
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, n, err := k.series(in.t, in.name, in.kws)
		if err != nil {
			return nil, fmt.Errorf("keywords: %s: %w", in.name, err)
		}
		if s == nil {
			env.logger().Debug("keywords: no match", zap.String("series", in.name))
			continue
		}
		filled += n
		f, t, ok, err := aggregate.Span(s, "date")
		if err != nil {
			return nil, fmt.Errorf("keywords: %s: %w", in.name, err)
		}
		if ok {
			if !dated || f.Before(from) {
				from = f
			}
			if !dated || t.After(to) {
				to = t
			}
			dated = true
		}
		found = append(found, s)
	}
	if len(found) == 0 {
		return nil, ErrNoResults
	}

	var merged *table.Table
	for _, s := range found {
		if dated {
			var err error
			if s, err = aggregate.CompleteDays(s, "date", from, to, table.IntCell(0)); err != nil {
				return nil, fmt.Errorf("keywords: %w", err)
			}
		}
		if merged == nil {
			merged = s
			continue
		}
		var err error
		if merged, err = aggregate.InnerJoin(merged, s, "date"); err != nil {
			return nil, fmt.Errorf("keywords: %w", err)
		}
	}
	return &Result{
		Name:  "keywords",
		Title: fmt.Sprintf("Keywords found in ads. Ads that match any of the keywords: %d%%.", aggregate.Percent(filled, total)),
		Table: merged,
	}, nil
}
