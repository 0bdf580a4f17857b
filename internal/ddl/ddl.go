// Package ddl defines a small, backend-agnostic model for SQL DDL and infers
// it from report tables.
//
// Columns carry a logical type ("float", "bool" or "text"); backend
// packages map it to their dialect and render CREATE TABLE statements of
// their own.
package ddl

import (
	"fmt"
	"strings"

	"adinsights/internal/table"
	"adinsights/internal/textutil"
)

// Logical column types.
const (
	TypeText  = "text"
	TypeFloat = "float"
	TypeBool  = "bool"
)

// RunIDColumn is the leading column of every stored table.
const RunIDColumn = "run_id"

// ColumnDef describes one column.
type ColumnDef struct {
	Name       string
	Type       string // logical type
	SQLType    string // dialect type, filled by the backend
	Nullable   bool
	PrimaryKey bool
	Default    string // raw SQL
}

// TableDef describes a table. FQN may be schema-qualified ("dbo.regions").
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the column names in order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// WithSQLTypes returns a copy of t whose SQLType is mapType(Type) for every
// column.
func (t TableDef) WithSQLTypes(mapType func(string) string) TableDef {
	out := TableDef{FQN: t.FQN, Columns: make([]ColumnDef, len(t.Columns))}
	for i, c := range t.Columns {
		c.SQLType = mapType(c.Type)
		out.Columns[i] = c
	}
	return out
}

// InferTable derives a definition for storing t: a non-null run_id text
// column followed by one nullable column per table column, its name made
// SQL-safe by textutil.NormalizeFieldName.
func InferTable(name string, t *table.Table) (TableDef, error) {
	if strings.TrimSpace(name) == "" {
		return TableDef{}, fmt.Errorf("ddl: missing table name")
	}
	def := TableDef{
		FQN:     name,
		Columns: []ColumnDef{{Name: RunIDColumn, Type: TypeText}},
	}
	seen := map[string]string{RunIDColumn: RunIDColumn}
	for j, c := range t.Columns() {
		n := textutil.NormalizeFieldName(c)
		if prev, dup := seen[n]; dup {
			return TableDef{}, fmt.Errorf("ddl: columns %q and %q both map to %q", prev, c, n)
		}
		seen[n] = c
		def.Columns = append(def.Columns, ColumnDef{Name: n, Type: inferType(t, j), Nullable: true})
	}
	return def, nil
}

// inferType is float when every non-null cell of column j is a number, bool
// when every one is a boolean, and text otherwise (or when all are null).
func inferType(t *table.Table, j int) string {
	kind := ""
	for i := 0; i < t.Len(); i++ {
		c := t.Row(i)[j]
		if c.IsNull() {
			continue
		}
		var k string
		switch {
		case c.Kind() != table.Scalar:
			return TypeText
		case c.ScalarKind() == table.Number:
			k = TypeFloat
		case c.ScalarKind() == table.Bool:
			k = TypeBool
		default:
			return TypeText
		}
		if kind != "" && kind != k {
			return TypeText
		}
		kind = k
	}
	if kind == "" {
		return TypeText
	}
	return kind
}
