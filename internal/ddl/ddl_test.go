package ddl

import (
	"strings"
	"testing"

	"adinsights/internal/table"
)

func TestInferTable(t *testing.T) {
	tb := table.MustNew("source", "delivery_by_region.percentage", "flag", "mixed", "empty")
	if err := tb.Append(table.StringCell("D"), table.FloatCell(75), table.BoolCell(true), table.IntCell(1), table.NullCell()); err != nil {
		t.Fatal(err)
	}
	if err := tb.Append(table.StringCell("R"), table.NullCell(), table.BoolCell(false), table.StringCell("x"), table.NullCell()); err != nil {
		t.Fatal(err)
	}

	def, err := InferTable("regions", tb)
	if err != nil {
		t.Fatalf("InferTable: %v", err)
	}
	wantNames := []string{"run_id", "source", "delivery_by_region_percentage", "flag", "mixed", "empty"}
	if got := strings.Join(def.ColumnNames(), ","); got != strings.Join(wantNames, ",") {
		t.Fatalf("columns = %s, want %v", got, wantNames)
	}
	wantTypes := []string{TypeText, TypeText, TypeFloat, TypeBool, TypeText, TypeText}
	for i, c := range def.Columns {
		if c.Type != wantTypes[i] {
			t.Errorf("column %s type = %s, want %s", c.Name, c.Type, wantTypes[i])
		}
	}
	if def.Columns[0].Nullable {
		t.Errorf("run_id must not be nullable")
	}
}

func TestInferTable_Errors(t *testing.T) {
	if _, err := InferTable(" ", table.MustNew("a")); err == nil {
		t.Fatal("expected error for empty table name")
	}
	if _, err := InferTable("t", table.MustNew("a.b", "a_b")); err == nil {
		t.Fatal("expected error for colliding column names")
	}
	if _, err := InferTable("t", table.MustNew("run_id")); err == nil {
		t.Fatal("expected error for a column named run_id")
	}
}

func TestWithSQLTypes(t *testing.T) {
	def := TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a", Type: TypeFloat}, {Name: "b", Type: TypeText}}}
	mapped := def.WithSQLTypes(func(k string) string { return strings.ToUpper(k) })
	if mapped.Columns[0].SQLType != "FLOAT" || mapped.Columns[1].SQLType != "TEXT" {
		t.Fatalf("unexpected mapping: %+v", mapped.Columns)
	}
	if def.Columns[0].SQLType != "" {
		t.Fatalf("input definition was modified")
	}
}

func TestColumnClauses(t *testing.T) {
	def := TableDef{FQN: "main.spend", Columns: []ColumnDef{
		{Name: "run_id", SQLType: "TEXT", PrimaryKey: true},
		{Name: "amount", SQLType: "REAL", Nullable: true, Default: "0"},
	}}
	got, err := ColumnClauses(def, DoubleQuote)
	if err != nil {
		t.Fatalf("ColumnClauses: %v", err)
	}
	want := []string{
		`"run_id" TEXT NOT NULL`,
		`"amount" REAL DEFAULT 0`,
		`PRIMARY KEY ("run_id")`,
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("clauses = %q, want %q", got, want)
	}
}

func TestColumnClauses_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  TableDef
	}{
		{"empty FQN", TableDef{FQN: " ", Columns: []ColumnDef{{Name: "a", SQLType: "TEXT"}}}},
		{"no columns", TableDef{FQN: "t"}},
		{"empty name", TableDef{FQN: "t", Columns: []ColumnDef{{Name: " ", SQLType: "TEXT"}}}},
		{"missing type", TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a"}}}},
	}
	for _, tt := range tests {
		if _, err := ColumnClauses(tt.def, DoubleQuote); err == nil {
			t.Errorf("%s: want error", tt.name)
		}
	}
}

func TestQuoteFQN(t *testing.T) {
	tests := []struct{ in, want string }{
		{"users", `"users"`},
		{"public.users", `"public"."users"`},
		{".public..users.", `"public"."users"`},
		{`sch."t"`, `"sch"."""t"""`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := QuoteFQN(tt.in, DoubleQuote); got != tt.want {
			t.Errorf("QuoteFQN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
