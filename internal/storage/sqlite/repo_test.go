package sqlite

import (
	"context"
	"strings"
	"testing"

	"adinsights/internal/ddl"
	"adinsights/internal/storage"
	"adinsights/internal/table"
)

func openMem(tb testing.TB, tableName string) *wrappedRepo {
	tb.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: ":memory:", Table: tableName})
	if err != nil {
		tb.Fatalf("NewRepository: %v", err)
	}
	w := &wrappedRepo{Repository: r, closeFn: closeFn}
	tb.Cleanup(w.Close)
	return w
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	def := ddl.TableDef{FQN: "spend", Columns: []ddl.ColumnDef{
		{Name: "run_id", Type: ddl.TypeText},
		{Name: "amount", Type: ddl.TypeFloat, Nullable: true},
		{Name: "flag", Type: ddl.TypeBool, Nullable: true},
	}}
	got, err := BuildCreateTableSQL(def)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"spend\" (\n  \"run_id\" TEXT NOT NULL,\n  \"amount\" REAL,\n  \"flag\" INTEGER\n);"
	if got != want {
		t.Fatalf("sql =\n%s\nwant\n%s", got, want)
	}

	if _, err := BuildCreateTableSQL(ddl.TableDef{FQN: "x"}); err == nil {
		t.Fatal("no columns: want error")
	}
}

// TestWriteTableRoundTrip creates a table from an inferred definition,
// writes a report table through storage.WriteTable and reads it back.
func TestWriteTableRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := openMem(t, "regions")

	tb := table.MustNew("source", "state", "percentage")
	rows := [][]table.Cell{
		{table.StringCell("dem"), table.StringCell("Ohio"), table.FloatCell(60)},
		{table.StringCell("dem"), table.StringCell("Iowa"), table.NullCell()},
	}
	for _, row := range rows {
		if err := tb.Append(row...); err != nil {
			t.Fatal(err)
		}
	}
	def, err := ddl.InferTable("regions", tb)
	if err != nil {
		t.Fatalf("InferTable: %v", err)
	}
	if err := EnsureTable(ctx, r, def); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	// Idempotent.
	if err := EnsureTable(ctx, r, def); err != nil {
		t.Fatalf("EnsureTable again: %v", err)
	}

	n, err := storage.WriteTable(ctx, r, def, tb, "run-7", 1, nil)
	if err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if n != 2 {
		t.Fatalf("written = %d, want 2", n)
	}

	var (
		count int
		pct   float64
		runID string
	)
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "regions"`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT run_id, percentage FROM "regions" WHERE state = 'Ohio'`).Scan(&runID, &pct); err != nil {
		t.Fatalf("select: %v", err)
	}
	if runID != "run-7" || pct != 60 {
		t.Fatalf("row = (%q, %v), want (run-7, 60)", runID, pct)
	}
}

func TestCopyFrom_RowLengthMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := openMem(t, "t")
	if err := r.Exec(ctx, `CREATE TABLE "t" ("a" TEXT, "b" TEXT)`); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	_, err := r.CopyFrom(ctx, []string{"a", "b"}, [][]any{{"x"}})
	if err == nil || !strings.Contains(err.Error(), "row length") {
		t.Fatalf("err = %v, want row length error", err)
	}
	n, err := r.CopyFrom(ctx, []string{"a", "b"}, nil)
	if err != nil || n != 0 {
		t.Fatalf("empty CopyFrom = (%d, %v)", n, err)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()
	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatal("want error for empty DSN")
	}
}

// TestRegistrationUsesNewRepositoryHook checks that storage.New("sqlite")
// goes through the hook and that Close runs the cleanup.
func TestRegistrationUsesNewRepositoryHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var (
		gotCfg Config
		closed bool
		fake   = &Repository{}
	)
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return fake, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: "x.db", Table: "spend"})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if gotCfg.DSN != "x.db" || gotCfg.Table != "spend" {
		t.Fatalf("hook cfg = %+v", gotCfg)
	}
	w, ok := repo.(*wrappedRepo)
	if !ok || w.Repository != fake {
		t.Fatalf("storage.New returned %T", repo)
	}
	repo.Close()
	if !closed {
		t.Fatal("Close did not invoke cleanup")
	}
}
