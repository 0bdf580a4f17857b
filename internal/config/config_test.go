package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	return Pipeline{
		Job:     "demographics",
		Sources: []Source{{Label: "Democrats", Dir: "data/d"}, {Label: "Republicans", Dir: "data/r"}},
		Parser:  Parser{Kind: "csv", Options: Options{}},
		Columns: []string{"ad_archive_id", "impressions", "demographic_distribution"},
		Transform: []Transform{
			{Kind: "require", Options: Options{"columns": []any{"demographic_distribution"}}},
		},
		Report: Report{Kind: "demographics", Options: Options{"metric_column": "impressions"}},
		Output: Output{Dir: "out", Format: "csv"},
	}
}

/*
TestValidatePipeline_ValidMinimal verifies that a well-formed pipeline produces
no issues at all.
*/
func TestValidatePipeline_ValidMinimal(t *testing.T) {
	issues := ValidatePipeline(validPipeline())
	assert.Empty(t, issues)
}

func TestValidatePipeline_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		path   string
		msg    string
	}{
		{"missing job", func(p *Pipeline) { p.Job = " " }, "job", "must not be empty"},
		{"no sources", func(p *Pipeline) { p.Sources = nil }, "sources", "at least one"},
		{"duplicate label", func(p *Pipeline) { p.Sources[1].Label = "Democrats" }, "sources[1].label", "duplicate"},
		{"empty dir", func(p *Pipeline) { p.Sources[0].Dir = "" }, "sources[0].dir", "must not be empty"},
		{"bad parser", func(p *Pipeline) { p.Parser.Kind = "xml" }, "parser.kind", "unknown parser"},
		{"bad comma", func(p *Pipeline) { p.Parser.Options["comma"] = ";;" }, "parser.options.comma", "single character"},
		{"unknown transform", func(p *Pipeline) { p.Transform[0].Kind = "explode" }, "transform[0].kind", "unknown transform"},
		{"require without columns", func(p *Pipeline) { p.Transform[0].Options = Options{} }, "transform[0].options.columns", "at least one"},
		{"bad null policy", func(p *Pipeline) { p.Flatten.NullPolicy = "lenient" }, "flatten.null_policy", "unknown null_policy"},
		{"bad on_malformed", func(p *Pipeline) { p.Flatten.OnMalformed = "skip" }, "flatten.on_malformed", "unknown on_malformed"},
		{"unknown report", func(p *Pipeline) { p.Report.Kind = "piechart" }, "report.kind", "unknown report kind"},
		{"categories needs column", func(p *Pipeline) { p.Report = Report{Kind: "categories", Options: Options{}} }, "report.options.column", "needs a column"},
		{"keywords need input", func(p *Pipeline) { p.Report = Report{Kind: "keywords", Options: Options{}} }, "report.options.keywords", "keywords_file"},
		{"audience needs id", func(p *Pipeline) {
			p.Report = Report{Kind: "audience", Options: Options{}}
			p.Columns = []string{"demographic_distribution"}
		}, "columns", "ad_archive_id"},
		{"bad format", func(p *Pipeline) { p.Output.Format = "xlsx" }, "output.format", "unknown output format"},
		{"storage without dsn", func(p *Pipeline) { p.Storage = Storage{Kind: "sqlite", DB: DBConfig{Table: "t"}} }, "storage.db.dsn", "must not be empty"},
		{"negative workers", func(p *Pipeline) { p.Runtime.ReaderWorkers = -1 }, "runtime.reader_workers", "negative"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validPipeline()
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			assert.True(t, hasIssue(t, issues, SeverityError, tc.path, tc.msg), "issues: %+v", issues)
			assert.True(t, HasErrors(issues))
		})
	}
}

func TestValidatePipeline_Warnings(t *testing.T) {
	p := validPipeline()
	p.Parser.Kind = ""
	p.Output.Dir = ""
	p.Metrics.Backend = "statsd"

	issues := ValidatePipeline(p)
	assert.False(t, HasErrors(issues))
	assert.True(t, hasIssue(t, issues, SeverityWarning, "parser.kind", "defaulting to csv"))
	assert.True(t, hasIssue(t, issues, SeverityWarning, "output.dir", "working directory"))
	assert.True(t, hasIssue(t, issues, SeverityWarning, "metrics.backend", "disabled"))
}

/*
TestLoad_YAMLAndJSON writes the same pipeline in both formats and checks they
decode identically, including Options bags and the WrapBrackets default.
*/
func TestLoad_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yml := `
job: regions
sources:
  - label: Democrats
    dir: data/d
parser:
  kind: csv
  options:
    trim_space: true
report:
  kind: regions
  options:
    metric_column: spend
    top: 5
flatten:
  null_policy: skip_nulls
`
	js := `{
  "job": "regions",
  "sources": [{"label": "Democrats", "dir": "data/d"}],
  "parser": {"kind": "csv", "options": {"trim_space": true}},
  "report": {"kind": "regions", "options": {"metric_column": "spend", "top": 5}},
  "flatten": {"null_policy": "skip_nulls"}
}`
	yPath := filepath.Join(dir, "p.yaml")
	jPath := filepath.Join(dir, "p.json")
	require.NoError(t, os.WriteFile(yPath, []byte(yml), 0o644))
	require.NoError(t, os.WriteFile(jPath, []byte(js), 0o644))

	for _, path := range []string{yPath, jPath} {
		p, err := Load(path)
		require.NoError(t, err, path)
		assert.Equal(t, "regions", p.Job)
		require.Len(t, p.Sources, 1)
		assert.Equal(t, "data/d", p.Sources[0].Dir)
		assert.True(t, p.Parser.Options.Bool("trim_space", false))
		assert.Equal(t, "spend", p.Report.Options.String("metric_column", ""))
		assert.Equal(t, 5, p.Report.Options.Int("top", 9))
		assert.Equal(t, "skip_nulls", p.Flatten.NullPolicy)
		assert.True(t, p.Flatten.Wrap())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptions_Getters(t *testing.T) {
	o := Options{
		"s":   "x",
		"f":   float64(2.5),
		"i":   7,
		"b":   true,
		"ss":  []any{"a", 1, "b"},
		"m":   map[string]any{"k": "v", "n": 1},
		"sep": ";",
	}
	assert.Equal(t, "x", o.String("s", "d"))
	assert.Equal(t, "d", o.String("missing", "d"))
	assert.Equal(t, 2, o.Int("f", 0))
	assert.Equal(t, 7, o.Int("i", 0))
	assert.Equal(t, 7.0, o.Float("i", 0))
	assert.Equal(t, 2.5, o.Float("f", 0))
	assert.True(t, o.Bool("b", false))
	assert.Equal(t, []string{"a", "b"}, o.StringSlice("ss"))
	assert.Equal(t, map[string]string{"k": "v"}, o.StringMap("m"))
	assert.Equal(t, ';', o.Rune("sep", ','))
	assert.Nil(t, o.Any("missing"))
}
