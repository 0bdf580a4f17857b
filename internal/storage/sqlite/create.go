package sqlite

import (
	"context"
	"fmt"
	"strings"

	"adinsights/internal/ddl"
	"adinsights/internal/storage"
)

// MapType maps a logical column type to SQLite's storage classes.
func MapType(kind string) string {
	switch kind {
	case ddl.TypeFloat:
		return "REAL"
	case ddl.TypeBool:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL renders
//
//	CREATE TABLE IF NOT EXISTS "table" (
//	  "col" TYPE [NOT NULL],
//	  ...
//	);
//
// Every column's SQLType is MapType(Type).
func BuildCreateTableSQL(t ddl.TableDef) (string, error) {
	t = t.WithSQLTypes(MapType)
	cols, err := ddl.ColumnClauses(t, ddl.DoubleQuote)
	if err != nil {
		return "", fmt.Errorf("sqlite ddl: %w", err)
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
