package table

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateColumn is returned when a table would end up with two columns
// of the same name.
var ErrDuplicateColumn = errors.New("table: duplicate column")

// ErrUnknownColumn is returned when an operation names a column the table
// does not have.
var ErrUnknownColumn = errors.New("table: unknown column")

// Table is an ordered set of columns plus rows of positional cells. Every row
// has exactly one cell per column.
//
// Operations that reshape a table (Select, Drop, Rename, Filter, ...) return a
// new Table; rows are shared only where documented.
type Table struct {
	cols []string
	idx  map[string]int
	rows [][]Cell
}

// New returns an empty table with the given columns.
func New(columns ...string) (*Table, error) {
	t := &Table{
		cols: append([]string(nil), columns...),
		idx:  make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.idx[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		t.idx[c] = i
	}
	return t, nil
}

// MustNew is New for static column lists; it panics on duplicates.
func MustNew(columns ...string) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.cols...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Has reports whether the table has column col.
func (t *Table) Has(col string) bool {
	_, ok := t.idx[col]
	return ok
}

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	if i, ok := t.idx[col]; ok {
		return i
	}
	return -1
}

// Append adds a row. The row must have one cell per column; the slice is
// retained.
func (t *Table) Append(row ...Cell) error {
	if len(row) != len(t.cols) {
		return fmt.Errorf("table: row has %d cells, table has %d columns", len(row), len(t.cols))
	}
	t.rows = append(t.rows, row)
	return nil
}

// AppendRecord adds a row from a column → cell mapping. Columns missing from
// rec are null; keys that are not table columns are rejected.
func (t *Table) AppendRecord(rec map[string]Cell) error {
	row := make([]Cell, len(t.cols))
	for k, v := range rec {
		i, ok := t.idx[k]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, k)
		}
		row[i] = v
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns row i. The slice is shared with the table.
func (t *Table) Row(i int) []Cell { return t.rows[i] }

// Get returns the cell at row i, column col. Unknown columns read as null.
func (t *Table) Get(i int, col string) Cell {
	j, ok := t.idx[col]
	if !ok {
		return Cell{}
	}
	return t.rows[i][j]
}

// Set overwrites the cell at row i, column col.
func (t *Table) Set(i int, col string, c Cell) error {
	j, ok := t.idx[col]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	t.rows[i][j] = c
	return nil
}

// Column returns a copy of the cells of col, one per row.
func (t *Table) Column(col string) ([]Cell, error) {
	j, ok := t.idx[col]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	out := make([]Cell, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Record is a read-only view of one row.
type Record struct {
	t *Table
	i int
}

// Index returns the row position of the record.
func (r Record) Index() int { return r.i }

// Get returns the cell for col; unknown columns read as null.
func (r Record) Get(col string) Cell { return r.t.Get(r.i, col) }

// Records returns a view per row, in order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.rows))
	for i := range t.rows {
		out[i] = Record{t: t, i: i}
	}
	return out
}

// Select returns a table with exactly the given columns, in the given order.
// Columns the table does not have are added as all-null columns, which is
// how per-file column pruning treats files that lack a requested column.
func (t *Table) Select(cols ...string) (*Table, error) {
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	src := make([]int, len(cols))
	for k, c := range cols {
		src[k] = t.Index(c)
	}
	out.rows = make([][]Cell, len(t.rows))
	for i, r := range t.rows {
		row := make([]Cell, len(cols))
		for k, j := range src {
			if j >= 0 {
				row[k] = r[j]
			}
		}
		out.rows[i] = row
	}
	return out, nil
}

// Drop returns a table without the given columns. Unknown names are ignored.
func (t *Table) Drop(cols ...string) *Table {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}
	keep := make([]string, 0, len(t.cols))
	for _, c := range t.cols {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// Rename returns a table whose columns are renamed per m (old → new). Rows
// are shared with t.
func (t *Table) Rename(m map[string]string) (*Table, error) {
	cols := make([]string, len(t.cols))
	for i, c := range t.cols {
		if n, ok := m[c]; ok {
			cols[i] = n
		} else {
			cols[i] = c
		}
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows
	return out, nil
}

// Filter returns a table holding the rows for which keep returns true. Rows
// are shared with t.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := &Table{cols: t.cols, idx: t.idx}
	for i, r := range t.rows {
		if keep(Record{t: t, i: i}) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// DropNulls returns the rows whose cells in every listed column are non-null.
// It is the equivalent of a "dropna(subset=cols)".
func (t *Table) DropNulls(cols ...string) (*Table, error) {
	ix := make([]int, len(cols))
	for k, c := range cols {
		j, ok := t.idx[c]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
		ix[k] = j
	}
	out := &Table{cols: t.cols, idx: t.idx}
	for _, r := range t.rows {
		ok := true
		for _, j := range ix {
			if r[j].IsNull() {
				ok = false
				break
			}
		}
		if ok {
			out.rows = append(out.rows, r)
		}
	}
	return out, nil
}

// WithColumn returns a table with col appended (or replaced, when present),
// filled by fn per row. Other rows' cells are copied.
func (t *Table) WithColumn(col string, fn func(Record) Cell) *Table {
	j, exists := t.idx[col]
	cols := t.cols
	if !exists {
		cols = append(append([]string(nil), t.cols...), col)
		j = len(t.cols)
	}
	out := MustNew(cols...)
	out.rows = make([][]Cell, len(t.rows))
	for i, r := range t.rows {
		row := make([]Cell, len(cols))
		copy(row, r)
		row[j] = fn(Record{t: t, i: i})
		out.rows[i] = row
	}
	return out
}

// Clone returns a deep copy of the row slices (cells are values; nested
// sequences and maps are shared).
func (t *Table) Clone() *Table {
	out := MustNew(t.cols...)
	out.rows = make([][]Cell, len(t.rows))
	for i, r := range t.rows {
		out.rows[i] = append([]Cell(nil), r...)
	}
	return out
}

// SortBy stably sorts rows in place by the given columns. desc flips the
// order of every key.
func (t *Table) SortBy(desc bool, cols ...string) error {
	ix := make([]int, len(cols))
	for k, c := range cols {
		j, ok := t.idx[c]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
		ix[k] = j
	}
	sort.SliceStable(t.rows, func(a, b int) bool {
		for _, j := range ix {
			c := Compare(t.rows[a][j], t.rows[b][j])
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

// Concat stacks tables vertically. The result has the union of all columns
// in first-appearance order; cells for columns a table lacks are null.
func Concat(tables ...*Table) *Table {
	var cols []string
	seen := map[string]bool{}
	for _, t := range tables {
		for _, c := range t.cols {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	out := MustNew(cols...)
	for _, t := range tables {
		if len(t.cols) == len(cols) && sameOrder(t.cols, cols) {
			out.rows = append(out.rows, t.rows...)
			continue
		}
		aligned, _ := t.Select(cols...)
		out.rows = append(out.rows, aligned.rows...)
	}
	return out
}

func sameOrder(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal reports whether two tables have the same columns (in order) and
// equal rows (in order).
func Equal(a, b *Table) bool {
	if len(a.cols) != len(b.cols) || !sameOrder(a.cols, b.cols) || len(a.rows) != len(b.rows) {
		return false
	}
	for i := range a.rows {
		for j := range a.rows[i] {
			if !a.rows[i][j].Equal(b.rows[i][j]) {
				return false
			}
		}
	}
	return true
}
