package report

import (
	"context"
	"fmt"
	"os"
	"strings"

	"adinsights/internal/aggregate"
	"adinsights/internal/config"
	csvparser "adinsights/internal/parser/csv"
	"adinsights/internal/table"
	"adinsights/internal/transformer/builtin"
)

// Regions distributes ads (or a range metric such as spend) over the
// regions listed in delivery_by_region.
type Regions struct {
	Column string
	Metric string

	// Coordinates names a CSV with state, lat and lon columns. When set,
	// regions without coordinates are dropped.
	Coordinates string
}

func init() { Register("regions", newRegions) }

func newRegions(o config.Options) (Builder, error) {
	return Regions{
		Column:      o.String("region_column", "delivery_by_region"),
		Metric:      o.String("metric_column", ""),
		Coordinates: o.String("coordinates_file", ""),
	}, nil
}

// Build returns columns source, state, percentage, [metric], [lat, lon],
// formatted.
func (r Regions) Build(ctx context.Context, env Env, sources []Source) (*Result, error) {
	var coords *table.Table
	if r.Coordinates != "" {
		var err error
		if coords, err = loadCoordinates(ctx, r.Coordinates); err != nil {
			return nil, fmt.Errorf("regions: %w", err)
		}
	}

	region := r.Column + ".region"
	share := r.Column + ".percentage"
	countCol := "percentage"
	if r.Metric != "" {
		countCol = r.Metric
	}
	units := aggregate.SIUnits()

	var (
		parts  []*table.Table
		titles []string
	)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kept, err := src.Table.DropNulls(need(r.Column, r.Metric)...)
		if err != nil {
			return nil, fmt.Errorf("regions: %s: %w", src.Label, err)
		}
		t := kept
		if r.Metric != "" {
			if t, err = env.coerce(src.Label, kept, r.Metric, builtin.ToMidpoint, ""); err != nil {
				return nil, fmt.Errorf("regions: %w", err)
			}
		}
		ads := t.Len()

		flat, err := env.flattenColumn(src.Label, t, r.Column)
		if err != nil {
			return nil, fmt.Errorf("regions: %w", err)
		}
		sel, err := flat.Select(need(region, share, r.Metric)...)
		if err != nil {
			return nil, fmt.Errorf("regions: %s: %w", src.Label, err)
		}
		specs := []aggregate.Spec{{Column: share, Op: aggregate.Sum}}
		if r.Metric != "" {
			sel = sel.WithColumn(r.Metric, func(rec table.Record) table.Cell {
				m, ok1 := rec.Get(r.Metric).Float()
				p, ok2 := rec.Get(share).Float()
				if !ok1 || !ok2 {
					return table.NullCell()
				}
				return table.FloatCell(m * p)
			})
			specs = append(specs, aggregate.Spec{Column: r.Metric, Op: aggregate.Sum})
		}
		sums, err := aggregate.GroupBy(sel, []string{region}, specs...)
		if err != nil {
			return nil, fmt.Errorf("regions: %s: %w", src.Label, err)
		}
		sums = sums.WithColumn(share, func(rec table.Record) table.Cell {
			p, _ := rec.Get(share).Float()
			if ads == 0 {
				return table.FloatCell(0)
			}
			return table.FloatCell(p / float64(ads) * 100)
		})
		res, err := sums.Rename(map[string]string{region: "state", share: "percentage"})
		if err != nil {
			return nil, fmt.Errorf("regions: %s: %w", src.Label, err)
		}
		if coords != nil {
			if res, err = aggregate.InnerJoin(res, coords, "state"); err != nil {
				return nil, fmt.Errorf("regions: %s: %w", src.Label, err)
			}
		}
		res = res.WithColumn("formatted", func(rec table.Record) table.Cell {
			v, _ := rec.Get(countCol).Float()
			return table.StringCell(aggregate.FormatUnits(v, units))
		})
		total, err := aggregate.Total(res, countCol)
		if err != nil {
			return nil, fmt.Errorf("regions: %s: %w", src.Label, err)
		}
		part, err := withSource(src.Label, res)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		titles = append(titles, fmt.Sprintf("Distribution %s of ads of %s. Ads with %s data: %d%%. Total %s: %s",
			countCol, src.Label, countCol, aggregate.Percent(kept.Len(), src.Table.Len()),
			countCol, aggregate.FormatUnits(total, units)))
	}
	return &Result{
		Name:  "regions",
		Title: strings.Join(titles, "\n"),
		Table: table.Concat(parts...),
	}, nil
}

func loadCoordinates(ctx context.Context, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("coordinates: %w", err)
	}
	opt := csvparser.Options{Comma: ',', TrimSpace: true, HasHeader: true, Keep: []string{"state", "lat", "lon"}}
	t, err := csvparser.ReadTable(ctx, f, opt, nil)
	if err != nil {
		return nil, fmt.Errorf("coordinates %s: %w", path, err)
	}
	return t, nil
}
