package ddl

import (
	"fmt"
	"strings"
)

// Quoter quotes one identifier segment in a backend's dialect.
type Quoter func(string) string

// ColumnClauses renders one `<name> <SQLType> [NOT NULL] [DEFAULT expr]`
// clause per column, followed by a PRIMARY KEY clause when any column is a
// key. Default is emitted as raw SQL.
func ColumnClauses(t TableDef, quote Quoter) ([]string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return nil, fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return nil, fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if d := strings.TrimSpace(c.Default); d != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(d)
		}
		cols = append(cols, sb.String())
		if c.PrimaryKey {
			pks = append(pks, quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return cols, nil
}

// QuoteFQN quotes each non-empty dot-separated segment of fqn.
//
//	"dbo.regions" -> [dbo].[regions]   (with a bracket quoter)
func QuoteFQN(fqn string, quote Quoter) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}

// DoubleQuote is the ANSI quoter used by Postgres and SQLite.
func DoubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
