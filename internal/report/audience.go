package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"adinsights/internal/aggregate"
	"adinsights/internal/config"
	"adinsights/internal/table"
)

// Audience measures the share of ads whose audience is dominated by one
// gender: the per-ad summed share for Gender must exceed Threshold.
type Audience struct {
	Column    string
	Metric    string
	Gender    string
	Threshold float64
}

func init() { Register("audience", newAudience) }

func newAudience(o config.Options) (Builder, error) {
	a := Audience{
		Column:    o.String("demographic_column", DefaultDemographicColumn),
		Metric:    o.String("metric_column", ""),
		Gender:    o.String("gender", "female"),
		Threshold: o.Float("threshold", 0.95),
	}
	if a.Threshold < 0 || a.Threshold > 1 {
		return nil, fmt.Errorf("threshold %v must lie in [0, 1]", a.Threshold)
	}
	return a, nil
}

// Build returns one row per source with columns source, gender, threshold,
// matching, filled, percent.
func (a Audience) Build(ctx context.Context, env Env, sources []Source) (*Result, error) {
	out := table.MustNew(SourceColumn, "gender", "threshold", "matching", "filled", "percent")
	var titles []string
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kept, err := src.Table.DropNulls(need(a.Column, a.Metric)...)
		if err != nil {
			return nil, fmt.Errorf("audience: %s: %w", src.Label, err)
		}
		flat, err := env.flattenColumn(src.Label, kept, a.Column)
		if err != nil {
			return nil, fmt.Errorf("audience: %w", err)
		}
		renamed, err := flat.Rename(demographicNames(a.Column))
		if err != nil {
			return nil, fmt.Errorf("audience: %s: %w", src.Label, err)
		}
		sel, err := renamed.Select("ad_archive_id", "gender", "amount")
		if err != nil {
			return nil, fmt.Errorf("audience: %s: %w", src.Label, err)
		}
		sums, err := aggregate.GroupBy(sel, []string{"ad_archive_id", "gender"},
			aggregate.Spec{Column: "amount", Op: aggregate.Sum})
		if err != nil {
			return nil, fmt.Errorf("audience: %s: %w", src.Label, err)
		}

		matching := 0
		for i := 0; i < sums.Len(); i++ {
			v, _ := sums.Get(i, "amount").Float()
			if v > a.Threshold && sums.Get(i, "gender").Text() == a.Gender {
				matching++
			}
		}
		filled := kept.Len()
		var pct float64
		if filled > 0 {
			pct = float64(matching) / float64(filled) * 100
		}
		if err := out.Append(
			table.StringCell(src.Label),
			table.StringCell(a.Gender),
			table.FloatCell(a.Threshold),
			table.IntCell(int64(matching)),
			table.IntCell(int64(filled)),
			table.FloatCell(pct),
		); err != nil {
			return nil, err
		}
		titles = append(titles, fmt.Sprintf("%s: %s%% of the ads has an audience that consists of at least %s%% %s",
			src.Label, formatFloat(pct), formatFloat(a.Threshold*100), a.Gender))
	}
	return &Result{
		Name:  "audience",
		Title: strings.Join(titles, "\n"),
		Table: out,
	}, nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
