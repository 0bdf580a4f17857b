package report

import (
	"context"
	"fmt"
	"strings"

	"adinsights/internal/aggregate"
	"adinsights/internal/config"
	"adinsights/internal/table"
	"adinsights/internal/transformer/builtin"
)

// Spend sums a range metric (spend by default) per delivery year.
type Spend struct {
	Metric string
}

func init() { Register("spend", newSpend) }

func newSpend(o config.Options) (Builder, error) {
	return Spend{Metric: o.String("metric_column", "spend")}, nil
}

// Build returns columns source, year, <metric>.
func (s Spend) Build(ctx context.Context, env Env, sources []Source) (*Result, error) {
	var (
		parts  []*table.Table
		filled []string
	)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kept, err := src.Table.DropNulls(s.Metric, DateColumn)
		if err != nil {
			return nil, fmt.Errorf("spend: %s: %w", src.Label, err)
		}
		t, err := env.coerce(src.Label, kept, s.Metric, builtin.ToMidpoint, "")
		if err != nil {
			return nil, fmt.Errorf("spend: %w", err)
		}
		if t, err = env.coerce(src.Label, t, DateColumn, builtin.ToYear, "year"); err != nil {
			return nil, fmt.Errorf("spend: %w", err)
		}
		sums, err := aggregate.GroupBy(t, []string{"year"}, aggregate.Spec{Column: s.Metric, Op: aggregate.Sum})
		if err != nil {
			return nil, fmt.Errorf("spend: %s: %w", src.Label, err)
		}
		part, err := withSource(src.Label, sums)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		filled = append(filled, fmt.Sprintf("%s filled in: %d%%.", src.Label, aggregate.Percent(kept.Len(), src.Table.Len())))
	}
	return &Result{
		Name:  "spend",
		Title: fmt.Sprintf("%s per source per year. %s", capitalize(s.Metric), strings.Join(filled, " ")),
		Table: table.Concat(parts...),
	}, nil
}
