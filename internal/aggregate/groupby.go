// Package aggregate groups, ranks and formats report tables.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"adinsights/internal/table"
)

// ErrNotNumeric is returned when a Sum meets a value that is not a number.
var ErrNotNumeric = errors.New("aggregate: non-numeric value")

// Op is an aggregation applied to one column of every group.
type Op int

const (
	// Sum adds the numeric values of the column. Nulls are skipped.
	Sum Op = iota
	// Count counts the non-null values of the column, or the rows of the
	// group when Column is empty.
	Count
)

// Spec describes one output column of GroupBy.
type Spec struct {
	Column string
	Op     Op
	// As names the output column; it defaults to Column, or "count".
	As string
}

func (s Spec) name() string {
	switch {
	case s.As != "":
		return s.As
	case s.Column != "":
		return s.Column
	}
	return "count"
}

type group struct {
	keys []table.Cell
	sums []float64
	ns   []int64
}

// GroupBy returns one row per distinct combination of the key columns,
// sorted ascending by the keys. Rows with a null key are left out.
func GroupBy(t *table.Table, keys []string, specs ...Spec) (*table.Table, error) {
	kix := make([]int, len(keys))
	for i, k := range keys {
		if kix[i] = t.Index(k); kix[i] < 0 {
			return nil, fmt.Errorf("aggregate: group key: %w: %q", table.ErrUnknownColumn, k)
		}
	}
	six := make([]int, len(specs))
	outCols := append([]string(nil), keys...)
	for i, s := range specs {
		six[i] = -1
		if s.Column != "" {
			if six[i] = t.Index(s.Column); six[i] < 0 {
				return nil, fmt.Errorf("aggregate: %w: %q", table.ErrUnknownColumn, s.Column)
			}
		} else if s.Op == Sum {
			return nil, errors.New("aggregate: sum needs a column")
		}
		outCols = append(outCols, s.name())
	}
	out, err := table.New(outCols...)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	groups := map[string]*group{}
	var order []*group
	var kb strings.Builder
rows:
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		kb.Reset()
		for _, j := range kix {
			c := row[j]
			if c.IsNull() {
				continue rows
			}
			txt := c.Text()
			kb.WriteString(strconv.Itoa(len(txt)))
			kb.WriteByte(':')
			kb.WriteString(txt)
		}
		g, ok := groups[kb.String()]
		if !ok {
			g = &group{sums: make([]float64, len(specs)), ns: make([]int64, len(specs))}
			for _, j := range kix {
				g.keys = append(g.keys, row[j])
			}
			groups[kb.String()] = g
			order = append(order, g)
		}
		for k, s := range specs {
			if six[k] < 0 {
				g.ns[k]++
				continue
			}
			c := row[six[k]]
			if c.IsNull() {
				continue
			}
			g.ns[k]++
			if s.Op != Sum {
				continue
			}
			f, ok := c.Float()
			if !ok {
				return nil, fmt.Errorf("%w: row %d column %q: %q", ErrNotNumeric, i, s.Column, c.Text())
			}
			g.sums[k] += f
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		for k := range kix {
			if c := table.Compare(order[a].keys[k], order[b].keys[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	for _, g := range order {
		row := append([]table.Cell(nil), g.keys...)
		for k, s := range specs {
			if s.Op == Sum {
				row = append(row, table.FloatCell(g.sums[k]))
			} else {
				row = append(row, table.IntCell(g.ns[k]))
			}
		}
		if err := out.Append(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TopN orders t by value descending (ties by label ascending) and keeps the
// first n rows. When rows remain, one more row labelled other carries the
// sum of their values; its other cells are null.
func TopN(t *table.Table, label, value string, n int, other string) (*table.Table, error) {
	if !t.Has(label) || !t.Has(value) {
		return nil, fmt.Errorf("aggregate: top: %w: %q/%q", table.ErrUnknownColumn, label, value)
	}
	sorted := t.Clone()
	if err := sorted.SortBy(false, label); err != nil {
		return nil, err
	}
	if err := sorted.SortBy(true, value); err != nil {
		return nil, err
	}
	if n < 0 || sorted.Len() <= n {
		return sorted, nil
	}

	out := table.MustNew(sorted.Columns()...)
	var rest float64
	for i := 0; i < sorted.Len(); i++ {
		if i < n {
			if err := out.Append(sorted.Row(i)...); err != nil {
				return nil, err
			}
			continue
		}
		f, ok := sorted.Get(i, value).Float()
		if !ok {
			return nil, fmt.Errorf("%w: column %q: %q", ErrNotNumeric, value, sorted.Get(i, value).Text())
		}
		rest += f
	}
	row := make([]table.Cell, out.Width())
	row[out.Index(label)] = table.StringCell(other)
	row[out.Index(value)] = table.FloatCell(rest)
	if err := out.Append(row...); err != nil {
		return nil, err
	}
	return out, nil
}

// Total sums the numeric cells of col. Nulls are skipped.
func Total(t *table.Table, col string) (float64, error) {
	j := t.Index(col)
	if j < 0 {
		return 0, fmt.Errorf("aggregate: %w: %q", table.ErrUnknownColumn, col)
	}
	var sum float64
	for i := 0; i < t.Len(); i++ {
		c := t.Row(i)[j]
		if c.IsNull() {
			continue
		}
		f, ok := c.Float()
		if !ok {
			return 0, fmt.Errorf("%w: row %d column %q: %q", ErrNotNumeric, i, col, c.Text())
		}
		sum += f
	}
	return sum, nil
}
