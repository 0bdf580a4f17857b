package aggregate

import (
	"fmt"

	"adinsights/internal/table"
)

// InnerJoin pairs every row of left with every row of right holding an equal
// cell in on. The result has left's columns followed by right's (on
// excluded) and keeps left's row order. Null keys never match.
func InnerJoin(left, right *table.Table, on string) (*table.Table, error) {
	lj, rj := left.Index(on), right.Index(on)
	if lj < 0 || rj < 0 {
		return nil, fmt.Errorf("aggregate: join: %w: %q", table.ErrUnknownColumn, on)
	}
	var rcols []string
	var rix []int
	for j, c := range right.Columns() {
		if j == rj {
			continue
		}
		rcols = append(rcols, c)
		rix = append(rix, j)
	}
	out, err := table.New(append(left.Columns(), rcols...)...)
	if err != nil {
		return nil, fmt.Errorf("aggregate: join: %w", err)
	}

	byKey := map[string][]int{}
	for i := 0; i < right.Len(); i++ {
		k := right.Row(i)[rj]
		if k.IsNull() {
			continue
		}
		byKey[k.Text()] = append(byKey[k.Text()], i)
	}
	for i := 0; i < left.Len(); i++ {
		lrow := left.Row(i)
		if lrow[lj].IsNull() {
			continue
		}
		for _, m := range byKey[lrow[lj].Text()] {
			row := make([]table.Cell, 0, out.Width())
			row = append(row, lrow...)
			for _, j := range rix {
				row = append(row, right.Row(m)[j])
			}
			if err := out.Append(row...); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
