package report

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"adinsights/internal/aggregate"
	"adinsights/internal/config"
	"adinsights/internal/table"
)

// DefaultDemographicColumn holds the age/gender/percentage breakdown.
const DefaultDemographicColumn = "demographic_distribution"

// Demographics sums the demographic share of ads per metric value and
// age (or gender) bucket.
type Demographics struct {
	Column   string
	Metric   string
	GroupBy  string
	MinShare float64
}

func init() { Register("demographics", newDemographics) }

func newDemographics(o config.Options) (Builder, error) {
	d := Demographics{
		Column:   o.String("demographic_column", DefaultDemographicColumn),
		Metric:   o.String("metric_column", "currency"),
		GroupBy:  o.String("group_by", "age"),
		MinShare: o.Float("min_share", 0.05),
	}
	switch d.GroupBy {
	case "age", "gender":
	default:
		return nil, fmt.Errorf("group_by must be age or gender, got %q", d.GroupBy)
	}
	return d, nil
}

// demographicNames renames the flattened breakdown columns.
func demographicNames(col string) map[string]string {
	return map[string]string{
		col + ".age":        "age",
		col + ".gender":     "gender",
		col + ".percentage": "amount",
	}
}

// Build returns columns source, <metric>, <group_by>, amount.
func (d Demographics) Build(ctx context.Context, env Env, sources []Source) (*Result, error) {
	keys := need(d.Metric, d.GroupBy)
	selCols := append(append([]string(nil), keys...), "amount")
	var (
		parts  []*table.Table
		titles []string
	)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kept, err := src.Table.DropNulls(need(d.Column, d.Metric)...)
		if err != nil {
			return nil, fmt.Errorf("demographics: %s: %w", src.Label, err)
		}
		flat, err := env.flattenColumn(src.Label, kept, d.Column)
		if err != nil {
			return nil, fmt.Errorf("demographics: %w", err)
		}
		renamed, err := flat.Rename(demographicNames(d.Column))
		if err != nil {
			return nil, fmt.Errorf("demographics: %s: %w", src.Label, err)
		}
		sel, err := renamed.Select(selCols...)
		if err != nil {
			return nil, fmt.Errorf("demographics: %s: %w", src.Label, err)
		}
		sums, err := aggregate.GroupBy(sel, keys, aggregate.Spec{Column: "amount", Op: aggregate.Sum})
		if err != nil {
			return nil, fmt.Errorf("demographics: %s: %w", src.Label, err)
		}
		if d.Metric != "" {
			sums, err = d.dropSmallGroups(sums, float64(kept.Len()))
			if err != nil {
				return nil, fmt.Errorf("demographics: %s: %w", src.Label, err)
			}
		}
		part, err := withSource(src.Label, sums)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)

		env.logger().Debug("demographics: source done",
			zap.String("source", src.Label),
			zap.Int("filled", kept.Len()),
			zap.Int("groups", sums.Len()))

		what := d.GroupBy
		if d.Metric != "" {
			what = fmt.Sprintf("%s grouped by %s", titleFor(d.Metric), d.GroupBy)
		}
		titles = append(titles, fmt.Sprintf("%s. %s. Ads with %s data: %d%%.",
			src.Label, capitalize(what), strings.Join(need(titleFor(d.Metric), d.GroupBy), " and "),
			aggregate.Percent(kept.Len(), src.Table.Len())))
	}
	return &Result{
		Name:  "demographics",
		Title: strings.Join(titles, "\n"),
		Table: table.Concat(parts...),
	}, nil
}

// dropSmallGroups removes every metric value whose summed amount is below
// MinShare of the filled ads.
func (d Demographics) dropSmallGroups(sums *table.Table, filled float64) (*table.Table, error) {
	totals, err := aggregate.GroupBy(sums, []string{d.Metric}, aggregate.Spec{Column: "amount", Op: aggregate.Sum})
	if err != nil {
		return nil, err
	}
	small := map[string]bool{}
	for i := 0; i < totals.Len(); i++ {
		v, _ := totals.Get(i, "amount").Float()
		if v < d.MinShare*filled {
			small[totals.Get(i, d.Metric).Text()] = true
		}
	}
	return sums.Filter(func(r table.Record) bool { return !small[r.Get(d.Metric).Text()] }), nil
}
