package mssql

import (
	"context"
	"strings"
	"testing"

	"adinsights/internal/ddl"
	"adinsights/internal/storage"
)

type execRepo struct {
	storage.Repository
	sql []string
}

func (e *execRepo) Exec(_ context.Context, sql string) error {
	e.sql = append(e.sql, sql)
	return nil
}

func TestQuoteIdent(t *testing.T) {
	cases := []struct{ in, want string }{
		{"simple", "[simple]"},
		{"brack]et", "[brack]]et]"},
		{"", "[]"},
	}
	for _, tc := range cases {
		if got := quoteIdent(tc.in); got != tc.want {
			t.Fatalf("quoteIdent(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	def := ddl.TableDef{FQN: "dbo.spend", Columns: []ddl.ColumnDef{
		{Name: "run_id", Type: ddl.TypeText},
		{Name: "amount", Type: ddl.TypeFloat, Nullable: true},
		{Name: "flag", Type: ddl.TypeBool, Nullable: true},
	}}
	got, err := BuildCreateTableSQL(def)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	for _, want := range []string{
		"IF OBJECT_ID(N'[dbo].[spend]', N'U') IS NULL",
		"CREATE TABLE [dbo].[spend] (",
		"[run_id] NVARCHAR(MAX) NOT NULL,",
		"[amount] FLOAT,",
		"[flag] BIT",
		"END;",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("sql missing %q:\n%s", want, got)
		}
	}
}

func TestEnsureTable_RegisteredForKind(t *testing.T) {
	repo := &execRepo{}
	def := ddl.TableDef{FQN: "terms", Columns: []ddl.ColumnDef{{Name: "run_id", Type: ddl.TypeText}}}
	if err := storage.EnsureTable(context.Background(), "mssql", repo, def); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(repo.sql) != 1 || !strings.HasPrefix(repo.sql[0], "IF OBJECT_ID(N'[terms]'") {
		t.Fatalf("sql = %q", repo.sql)
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"}); err == nil {
		t.Fatal("want DSN error")
	}
}

func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var closed bool
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://u:p@h?database=d", Table: "dbo.spend"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	w, ok := repo.(*wrappedRepo)
	if !ok || w.cfg.Table != "dbo.spend" {
		t.Fatalf("storage.New returned %T", repo)
	}
	repo.Close()
	if !closed {
		t.Fatal("Close did not invoke cleanup")
	}
}
