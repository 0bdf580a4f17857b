// Package flatten expands nested cells into plain columns and rows.
//
// A column whose every cell is a mapping becomes one column per key, named
// "<column>.<key>". A column whose every cell is a sequence is exploded into
// one row per element. Both steps repeat on the columns they produce until
// no uniformly nested column is left:
//
//	id | dist                                    id | dist.age | dist.pct
//	1  | [{"age":"18-24","pct":10},        →     1  | 18-24    | 10
//	   |  {"age":"25-34","pct":20}]              1  | 25-34    | 20
//
// Columns mixing shapes are left untouched. Under the strict null policy a
// null cell makes a column mixed; under skip_nulls nulls are ignored when
// deciding uniformity.
package flatten

import (
	"fmt"

	"go.uber.org/zap"

	"adinsights/internal/config"
	"adinsights/internal/table"
)

// NullPolicy decides how null cells affect column uniformity.
type NullPolicy string

const (
	// Strict treats a null as a scalar: a column with any null is mixed.
	Strict NullPolicy = "strict"

	// SkipNulls excludes nulls from the uniformity check. A null in a map
	// column yields null in every derived column; a null in a list column
	// yields one row holding null.
	SkipNulls NullPolicy = "skip_nulls"
)

// DefaultMaxPasses bounds the fixed-point iteration when Options.MaxPasses
// is zero.
const DefaultMaxPasses = 64

// Options configures a Flattener. The zero value is usable.
type Options struct {
	NullPolicy NullPolicy
	MaxPasses  int
	Logger     *zap.Logger
}

// Flattener runs the fixed-point expansion. It holds no per-table state and
// may be reused.
type Flattener struct {
	policy    NullPolicy
	maxPasses int
	log       *zap.Logger
}

// New returns a Flattener for opt, filling defaults.
func New(opt Options) *Flattener {
	f := &Flattener{policy: opt.NullPolicy, maxPasses: opt.MaxPasses, log: opt.Logger}
	if f.policy == "" {
		f.policy = Strict
	}
	if f.maxPasses <= 0 {
		f.maxPasses = DefaultMaxPasses
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	return f
}

// FromConfig maps the pipeline's flatten block onto flattener and decoder
// options.
func FromConfig(c config.Flatten, log *zap.Logger) (Options, DecodeOptions) {
	return Options{
			NullPolicy: NullPolicy(c.NullPolicy),
			MaxPasses:  c.MaxPasses,
			Logger:     log,
		}, DecodeOptions{
			WrapBrackets: c.Wrap(),
			OnMalformed:  MalformedPolicy(c.OnMalformed),
		}
}

// Flatten flattens t with default options.
func Flatten(t *table.Table) (*table.Table, error) {
	return New(Options{}).Flatten(t)
}

// Flatten returns a table in which no column is uniformly a sequence or a
// mapping. t is not modified. A table with no rows is returned as is.
func (f *Flattener) Flatten(t *table.Table) (*table.Table, error) {
	if t.Len() == 0 {
		return t, nil
	}
	f.log.Debug("flatten: start",
		zap.Int("rows", t.Len()),
		zap.Int("columns", t.Width()))

	candidates := t.Columns()
	for pass := 1; ; pass++ {
		lists, maps := f.partition(t, candidates)
		if len(lists) == 0 && len(maps) == 0 {
			break
		}
		if pass > f.maxPasses {
			return nil, fmt.Errorf("%w: still nested after %d passes (lists=%v maps=%v)",
				ErrTooDeep, f.maxPasses, lists, maps)
		}
		f.log.Debug("flatten: pass",
			zap.Int("pass", pass),
			zap.Strings("list_columns", lists),
			zap.Strings("map_columns", maps))

		var (
			produced []string
			err      error
		)
		for _, c := range maps {
			var derived []string
			t, derived, err = f.expandMap(t, c)
			if err != nil {
				return nil, err
			}
			f.log.Debug("flatten: expanded map column",
				zap.String("column", c),
				zap.Strings("derived", derived))
			produced = append(produced, derived...)
		}
		for _, c := range lists {
			before := t.Len()
			t, err = f.explodeList(t, c)
			if err != nil {
				return nil, err
			}
			f.log.Debug("flatten: exploded list column",
				zap.String("column", c),
				zap.Int("rows_before", before),
				zap.Int("rows_after", t.Len()))
			produced = append(produced, c)
		}
		candidates = produced
	}

	f.log.Debug("flatten: done",
		zap.Int("rows", t.Len()),
		zap.Int("columns", t.Width()))
	return t, nil
}

// partition returns the uniform-list and uniform-map columns among cols,
// in cols order. Columns t no longer has are ignored.
func (f *Flattener) partition(t *table.Table, cols []string) (lists, maps []string) {
	if t.Len() == 0 {
		return nil, nil
	}
	for _, c := range cols {
		j := t.Index(c)
		if j < 0 {
			continue
		}
		switch k, ok := f.uniformKind(t, j); {
		case !ok:
		case k == table.Sequence:
			lists = append(lists, c)
		case k == table.Mapping:
			maps = append(maps, c)
		}
	}
	return lists, maps
}

// uniformKind reports the shared nested kind of column j, if any.
func (f *Flattener) uniformKind(t *table.Table, j int) (table.Kind, bool) {
	var (
		kind table.Kind
		seen bool
	)
	for i := 0; i < t.Len(); i++ {
		c := t.Row(i)[j]
		if c.IsNull() && f.policy == SkipNulls {
			continue
		}
		if c.Kind() == table.Scalar {
			return 0, false
		}
		if !seen {
			kind, seen = c.Kind(), true
			continue
		}
		if c.Kind() != kind {
			return 0, false
		}
	}
	return kind, seen
}

// expandMap replaces col with one column per key seen across its maps,
// appended after the remaining columns in first-appearance order.
func (f *Flattener) expandMap(t *table.Table, col string) (*table.Table, []string, error) {
	j := t.Index(col)

	var keys []string
	seen := map[string]bool{}
	for i := 0; i < t.Len(); i++ {
		c := t.Row(i)[j]
		switch {
		case c.Kind() == table.Mapping:
			for _, k := range c.Map().Keys() {
				if !seen[k] {
					seen[k] = true
					keys = append(keys, k)
				}
			}
		case c.IsNull() && f.policy == SkipNulls:
		default:
			return nil, nil, &MalformedRecordError{
				Row:    i,
				Column: col,
				Reason: ReasonShapeMismatch,
				Err:    fmt.Errorf("%w: want mapping, got %s", ErrShapeMismatch, describe(c)),
			}
		}
	}

	rest := t.Drop(col)
	derived := make([]string, len(keys))
	for k, key := range keys {
		derived[k] = col + "." + key
	}
	out, err := table.New(append(rest.Columns(), derived...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("flatten: expand %q: %w", col, err)
	}
	for i := 0; i < t.Len(); i++ {
		row := make([]table.Cell, 0, out.Width())
		row = append(row, rest.Row(i)...)
		m := t.Row(i)[j].Map()
		for _, key := range keys {
			v, _ := m.Get(key)
			row = append(row, v)
		}
		if err := out.Append(row...); err != nil {
			return nil, nil, err
		}
	}
	return out, derived, nil
}

// explodeList emits one row per element of col, moving col to the end.
func (f *Flattener) explodeList(t *table.Table, col string) (*table.Table, error) {
	j := t.Index(col)
	rest := t.Drop(col)
	out, err := table.New(append(rest.Columns(), col)...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < t.Len(); i++ {
		c := t.Row(i)[j]
		var items []table.Cell
		switch {
		case c.Kind() == table.Sequence:
			items = c.Items()
		case c.IsNull() && f.policy == SkipNulls:
			items = []table.Cell{table.NullCell()}
		default:
			return nil, &MalformedRecordError{
				Row:    i,
				Column: col,
				Reason: ReasonShapeMismatch,
				Err:    fmt.Errorf("%w: want sequence, got %s", ErrShapeMismatch, describe(c)),
			}
		}
		base := rest.Row(i)
		for _, it := range items {
			row := make([]table.Cell, 0, out.Width())
			row = append(row, base...)
			row = append(row, it)
			if err := out.Append(row...); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func describe(c table.Cell) string {
	if c.IsNull() {
		return "null"
	}
	return c.Kind().String()
}
