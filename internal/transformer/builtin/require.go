// Package builtin contains the reusable transformer steps a pipeline names
// in its transform list.
package builtin

import "adinsights/internal/table"

// Require drops every row with a null in any of Columns.
type Require struct {
	Columns []string
}

func (Require) Name() string { return "require" }

// Apply returns the rows whose listed columns are all non-null.
func (r Require) Apply(in *table.Table) (*table.Table, error) {
	return in.DropNulls(r.Columns...)
}
