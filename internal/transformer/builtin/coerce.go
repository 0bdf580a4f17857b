package builtin

import (
	"fmt"
	"strings"

	"adinsights/internal/parser/ints"
	"adinsights/internal/table"
	"adinsights/internal/transformer"
)

// Coerce conversions.
const (
	// ToMidpoint turns a range such as "lower_bound: 100, upper_bound: 199"
	// into its numeric midpoint (149.5).
	ToMidpoint = "midpoint"

	// ToYear keeps the text before the first '-' of a date ("2020-10-03" →
	// "2020").
	ToYear = "year"
)

// Coerce converts Column in place (or into As when set). Rows whose value
// cannot be converted are dropped and reported to Reject. Null cells are
// kept as null.
type Coerce struct {
	Column string
	To     string
	As     string
	Reject func(transformer.RejectedRow)
}

func (Coerce) Name() string { return "coerce" }

// Apply returns the converted table.
func (c Coerce) Apply(in *table.Table) (*table.Table, error) {
	if !in.Has(c.Column) {
		return nil, unknown(c.Column)
	}
	var conv func(string) (table.Cell, error)
	switch c.To {
	case ToMidpoint:
		conv = func(s string) (table.Cell, error) {
			f, err := ints.Midpoint(s)
			if err != nil {
				return table.Cell{}, err
			}
			return table.FloatCell(f), nil
		}
	case ToYear:
		conv = func(s string) (table.Cell, error) {
			y, _, _ := strings.Cut(strings.TrimSpace(s), "-")
			if y == "" {
				return table.Cell{}, fmt.Errorf("no year in %q", s)
			}
			return table.StringCell(y), nil
		}
	default:
		return nil, fmt.Errorf("coerce: unknown conversion %q", c.To)
	}

	target := c.As
	if target == "" {
		target = c.Column
	}

	bad := map[int]bool{}
	out := in.WithColumn(target, func(r table.Record) table.Cell {
		v := r.Get(c.Column)
		if v.IsNull() {
			return v
		}
		cell, err := conv(v.Text())
		if err != nil {
			bad[r.Index()] = true
			if c.Reject != nil {
				c.Reject(transformer.RejectedRow{
					Step:   c.Name(),
					Row:    r.Index(),
					Column: c.Column,
					Reason: err.Error(),
					Raw:    v.Text(),
				})
			}
			return table.NullCell()
		}
		return cell
	})
	if len(bad) == 0 {
		return out, nil
	}
	// WithColumn keeps row positions, so r.Index() still names the input row.
	return out.Filter(func(r table.Record) bool { return !bad[r.Index()] }), nil
}
