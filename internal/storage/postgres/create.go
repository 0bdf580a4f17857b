package postgres

import (
	"context"
	"fmt"
	"strings"

	"adinsights/internal/ddl"
	"adinsights/internal/storage"
)

// MapType maps a logical column type to a Postgres type.
func MapType(kind string) string {
	switch kind {
	case ddl.TypeFloat:
		return "DOUBLE PRECISION"
	case ddl.TypeBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement with
// every column's SQLType set to MapType(Type).
func BuildCreateTableSQL(t ddl.TableDef) (string, error) {
	t = t.WithSQLTypes(MapType)
	cols, err := ddl.ColumnClauses(t, ddl.DoubleQuote)
	if err != nil {
		return "", fmt.Errorf("postgres ddl: %w", err)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		ddl.QuoteFQN(t.FQN, ddl.DoubleQuote), strings.Join(cols, ",\n  ")), nil
}

// EnsureTable creates the table if it does not exist.
func EnsureTable(ctx context.Context, repo storage.Repository, def ddl.TableDef) error {
	stmt, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, stmt)
}
