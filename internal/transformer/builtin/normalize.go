package builtin

import (
	"strings"

	"adinsights/internal/parser/html"
	"adinsights/internal/table"
	"adinsights/internal/textutil"
)

// Normalize cleans text cells of Columns: "Â " mojibake becomes a plain
// space, markup is stripped and whitespace collapsed. Fold additionally
// removes diacritics. Cells that end up empty become null.
type Normalize struct {
	Columns []string
	Fold    bool
}

func (Normalize) Name() string { return "normalize" }

// Apply returns a table with the listed columns cleaned.
func (n Normalize) Apply(in *table.Table) (*table.Table, error) {
	out := in
	for _, col := range n.Columns {
		if !out.Has(col) {
			return nil, unknown(col)
		}
		out = out.WithColumn(col, func(r table.Record) table.Cell {
			v := r.Get(col)
			s, ok := v.Str()
			if !ok {
				return v
			}
			s = html.NormalizeText(strings.ReplaceAll(s, "Â ", " "))
			if n.Fold {
				s = textutil.Fold(s)
			}
			if s == "" {
				return table.NullCell()
			}
			return table.StringCell(s)
		})
	}
	return out, nil
}
