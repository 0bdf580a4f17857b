package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adinsights/internal/aggregate"
	"adinsights/internal/config"
	"adinsights/internal/table"
)

// Categories counts the values of one plain column per source, keeping the
// most frequent ones and folding the rest into an "Other" row.
type Categories struct {
	Column string
	Top    int
	Other  string
}

func init() { Register("categories", newCategories) }

func newCategories(o config.Options) (Builder, error) {
	c := Categories{
		Column: o.String("column", ""),
		Top:    o.Int("top", 9),
		Other:  o.String("other", "Other"),
	}
	if c.Column == "" {
		return nil, errors.New("column is required")
	}
	return c, nil
}

// Build returns columns source, <column>, count.
func (c Categories) Build(ctx context.Context, env Env, sources []Source) (*Result, error) {
	var (
		parts  []*table.Table
		filled []string
	)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kept, err := src.Table.DropNulls(c.Column)
		if err != nil {
			return nil, fmt.Errorf("categories: %s: %w", src.Label, err)
		}
		counts, err := aggregate.GroupBy(kept, []string{c.Column}, aggregate.Spec{Op: aggregate.Count})
		if err != nil {
			return nil, fmt.Errorf("categories: %s: %w", src.Label, err)
		}
		top, err := aggregate.TopN(counts, c.Column, "count", c.Top, c.Other)
		if err != nil {
			return nil, fmt.Errorf("categories: %s: %w", src.Label, err)
		}
		part, err := withSource(src.Label, top)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		filled = append(filled, fmt.Sprintf("%s: %d%%", src.Label, aggregate.Percent(kept.Len(), src.Table.Len())))
	}
	return &Result{
		Name:  "categories",
		Title: fmt.Sprintf("Ads with %s data: %s.", titleFor(c.Column), strings.Join(filled, ", ")),
		Table: table.Concat(parts...),
	}, nil
}
