package mssql

import (
	"context"
	"fmt"
	"strings"

	"adinsights/internal/ddl"
	"adinsights/internal/storage"
)

// MapType maps a logical column type to a SQL Server type.
func MapType(kind string) string {
	switch kind {
	case ddl.TypeFloat:
		return "FLOAT"
	case ddl.TypeBool:
		return "BIT"
	default:
		return "NVARCHAR(MAX)"
	}
}

// BuildCreateTableSQL renders a guarded CREATE TABLE, since T-SQL has no
// CREATE TABLE IF NOT EXISTS:
//
//	IF OBJECT_ID(N'[dbo].[spend]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[spend] (
//	    [run_id] NVARCHAR(MAX) NOT NULL,
//	    ...
//	  );
//	END;
func BuildCreateTableSQL(t ddl.TableDef) (string, error) {
	t = t.WithSQLTypes(MapType)
	cols, err := ddl.ColumnClauses(t, quoteIdent)
	if err != nil {
		return "", fmt.Errorf("mssql ddl: %w", err)
	}
	fqn := ddl.QuoteFQN(t.FQN, quoteIdent)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		strings.ReplaceAll(fqn, "'", "''"), fqn, strings.Join(cols, ",\n    ")), nil
}

// EnsureTable creates the table if it does not exist.
func EnsureTable(ctx context.Context, repo storage.Repository, def ddl.TableDef) error {
	stmt, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, stmt)
}
