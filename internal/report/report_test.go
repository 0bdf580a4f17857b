package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adinsights/internal/config"
	"adinsights/internal/flatten"
	"adinsights/internal/table"
	"adinsights/internal/transformer"
)

// source builds a Source from text rows; "" is null.
func source(t *testing.T, label string, cols []string, rows ...[]string) Source {
	t.Helper()
	tb := table.MustNew(cols...)
	for _, r := range rows {
		cells := make([]table.Cell, len(r))
		for i, v := range r {
			if v != "" {
				cells[i] = table.StringCell(v)
			}
		}
		require.NoError(t, tb.Append(cells...))
	}
	return Source{Label: label, Table: tb}
}

// dump renders a table as header plus text rows.
func dump(tb *table.Table) [][]string {
	out := [][]string{tb.Columns()}
	for i := 0; i < tb.Len(); i++ {
		row := make([]string, tb.Width())
		for j, c := range tb.Row(i) {
			row[j] = c.Text()
		}
		out = append(out, row)
	}
	return out
}

func build(t *testing.T, kind string, opts config.Options, env Env, sources ...Source) *Result {
	t.Helper()
	b, err := New(kind, opts)
	require.NoError(t, err)
	res, err := b.Build(context.Background(), env, sources)
	require.NoError(t, err)
	return res
}

func assertTable(t *testing.T, want [][]string, got *table.Table) {
	t.Helper()
	if diff := cmp.Diff(want, dump(got)); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"audience", "categories", "demographics", "keywords", "regions", "spend", "terms"}, Kinds())
	assert.ElementsMatch(t, config.ReportKinds, Kinds())

	_, err := New("wordcloud", nil)
	assert.True(t, errors.Is(err, ErrUnknownReport))

	_, err = New("categories", config.Options{})
	assert.Error(t, err, "column is required")
}

/*
TestCategories keeps the most frequent value per source and folds the rest
into an Other row; a source with nothing left over gets no Other row.
*/
func TestCategories(t *testing.T) {
	dem := source(t, "Democrats", []string{"languages"}, []string{"en"}, []string{"en"}, []string{"fr"}, []string{""}, []string{"de"})
	rep := source(t, "Republicans", []string{"languages"}, []string{"en"}, []string{"en"})

	res := build(t, "categories", config.Options{"column": "languages", "top": 1}, DefaultEnv(nil), dem, rep)

	assertTable(t, [][]string{
		{"source", "languages", "count"},
		{"Democrats", "en", "2"},
		{"Democrats", "Other", "2"},
		{"Republicans", "en", "2"},
	}, res.Table)
	assert.Equal(t, "Ads with languages data: Democrats: 80%, Republicans: 100%.", res.Title)
}

/*
TestDemographics decodes the distribution text, sums the shares per
currency and age, drops currencies below the minimum share and counts the
malformed cell it recovered.
*/
func TestDemographics(t *testing.T) {
	cols := []string{"ad_archive_id", "currency", "demographic_distribution"}
	dem := source(t, "Democrats", cols,
		[]string{"1", "USD", `{"percentage":"0.75","age":"18-24","gender":"female"},{"percentage":"0.25","age":"25-34","gender":"male"}`},
		[]string{"2", "USD", `{"percentage":"1","age":"18-24","gender":"male"}`},
		[]string{"3", "EUR", `{"percentage":"0.125","age":"18-24","gender":"female"}`},
		[]string{"4", "", `{"percentage":"1","age":"65+","gender":"male"}`},
		[]string{"5", "USD", `{"percentage":`},
	)

	env := DefaultEnv(nil)
	var malformed []string
	env.OnMalformed = func(src string, e *flatten.MalformedRecordError) { malformed = append(malformed, src+"/"+e.Column) }

	res := build(t, "demographics", config.Options{}, env, dem)
	assertTable(t, [][]string{
		{"source", "currency", "age", "amount"},
		{"Democrats", "USD", "18-24", "1.75"},
		{"Democrats", "USD", "25-34", "0.25"},
	}, res.Table)
	assert.Equal(t, []string{"Democrats/demographic_distribution"}, malformed)
	assert.Equal(t, "Democrats. Currency grouped by age. Ads with currency and age data: 80%.", res.Title)
}

func TestDemographics_ByGenderWithoutMetric(t *testing.T) {
	dem := source(t, "D", []string{"demographic_distribution"},
		[]string{`{"percentage":"0.5","age":"18-24","gender":"female"},{"percentage":"0.5","age":"18-24","gender":"male"}`},
		[]string{`{"percentage":"1","age":"18-24","gender":"female"}`},
	)
	res := build(t, "demographics", config.Options{"metric_column": "", "group_by": "gender"}, DefaultEnv(nil), dem)
	assertTable(t, [][]string{
		{"source", "gender", "amount"},
		{"D", "female", "1.5"},
		{"D", "male", "0.5"},
	}, res.Table)

	_, err := New("demographics", config.Options{"group_by": "region"})
	assert.Error(t, err)
}

func TestRegions(t *testing.T) {
	coords := filepath.Join(t.TempDir(), "coordinates.csv")
	require.NoError(t, os.WriteFile(coords, []byte("state,lat,lon\nTexas,31.9,-99.9\n"), 0o644))

	dem := source(t, "Democrats", []string{"spend", "delivery_by_region"},
		[]string{"lower_bound: 100, upper_bound: 199", `{"percentage":"0.5","region":"Texas"},{"percentage":"0.5","region":"Ohio"}`},
		[]string{"lower_bound: 0, upper_bound: 99", `{"percentage":"1","region":"Texas"}`},
		[]string{"", `{"percentage":"1","region":"Texas"}`},
	)
	res := build(t, "regions", config.Options{"metric_column": "spend", "coordinates_file": coords}, DefaultEnv(nil), dem)

	assertTable(t, [][]string{
		{"source", "state", "percentage", "spend", "lat", "lon", "formatted"},
		{"Democrats", "Texas", "75", "124.25", "31.9", "-99.9", "124.250"},
	}, res.Table)
	assert.Equal(t, "Distribution spend of ads of Democrats. Ads with spend data: 67%. Total spend: 124.250", res.Title)
}

func TestRegions_PercentageOnly(t *testing.T) {
	dem := source(t, "D", []string{"delivery_by_region"},
		[]string{`{"percentage":"0.5","region":"Texas"},{"percentage":"0.5","region":"Ohio"}`},
		[]string{`{"percentage":"1","region":"Texas"}`},
	)
	res := build(t, "regions", config.Options{}, DefaultEnv(nil), dem)
	assertTable(t, [][]string{
		{"source", "state", "percentage", "formatted"},
		{"D", "Ohio", "25", "25.000"},
		{"D", "Texas", "75", "75.000"},
	}, res.Table)
}

func TestRegions_MissingCoordinates(t *testing.T) {
	b, err := New("regions", config.Options{"coordinates_file": filepath.Join(t.TempDir(), "nope.csv")})
	require.NoError(t, err)
	_, err = b.Build(context.Background(), DefaultEnv(nil), []Source{source(t, "D", []string{"delivery_by_region"})})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestAudience(t *testing.T) {
	dem := source(t, "Democrats", []string{"ad_archive_id", "demographic_distribution"},
		[]string{"1", `{"percentage":"0.5","age":"18-24","gender":"female"},{"percentage":"0.5","age":"25-34","gender":"female"}`},
		[]string{"2", `{"percentage":"0.9","age":"18-24","gender":"female"},{"percentage":"0.1","age":"18-24","gender":"male"}`},
		[]string{"3", ""},
	)
	res := build(t, "audience", config.Options{}, DefaultEnv(nil), dem)
	assertTable(t, [][]string{
		{"source", "gender", "threshold", "matching", "filled", "percent"},
		{"Democrats", "female", "0.95", "1", "2", "50"},
	}, res.Table)
	assert.Equal(t, "Democrats: 50% of the ads has an audience that consists of at least 95% female", res.Title)

	_, err := New("audience", config.Options{"threshold": 2})
	assert.Error(t, err)
}

func keywordSources(t *testing.T) []Source {
	cols := append([]string{"ad_archive_id", DateColumn}, DefaultTextColumns...)
	dem := source(t, "Democrats", cols,
		[]string{"d1", "2020-10-01", "Vote for change", "", "", ""},
		[]string{"d2", "2020-10-03", "", "Vote early", "", ""},
		[]string{"d3", "2020-10-03", "nothing", "", "", ""},
	)
	rep := source(t, "Republicans", cols,
		[]string{"r1", "2020-10-02", "", "", "economy", "Vote now"},
		[]string{"r2", "2020-10-02", "economy first", "", "", ""},
	)
	return []Source{dem, rep}
}

/*
TestKeywords_PerKeyword pools the sources, counts matches per day for each
keyword, completes the missing days with zeros and skips keywords that
match nothing.
*/
func TestKeywords_PerKeyword(t *testing.T) {
	res := build(t, "keywords", config.Options{"keywords": []any{"Vote", "economy", "zebra"}}, DefaultEnv(nil), keywordSources(t)...)
	assertTable(t, [][]string{
		{"date", "Vote", "economy"},
		{"2020-10-01", "1", "0"},
		{"2020-10-02", "1", "2"},
		{"2020-10-03", "1", "0"},
	}, res.Table)
	assert.Equal(t, "Keywords found in ads. Ads that match any of the keywords: 100%.", res.Title)
}

func TestKeywords_PerSource(t *testing.T) {
	res := build(t, "keywords", config.Options{"keywords": []any{"economy"}, "series": "source"}, DefaultEnv(nil), keywordSources(t)...)
	assertTable(t, [][]string{
		{"date", "Republicans"},
		{"2020-10-02", "2"},
	}, res.Table)
	assert.Equal(t, "Keywords found in ads. Ads that match any of the keywords: 40%.", res.Title)
}

func TestKeywords_NoResultsIsCaseSensitive(t *testing.T) {
	b, err := New("keywords", config.Options{"keywords": []any{"vote"}})
	require.NoError(t, err)
	_, err = b.Build(context.Background(), DefaultEnv(nil), keywordSources(t))
	assert.True(t, errors.Is(err, ErrNoResults))
	assert.Equal(t, "no results found matching the keyword", ErrNoResults.Error())
}

func TestKeywords_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kw.txt")
	require.NoError(t, os.WriteFile(path, []byte("economy\n\nVote\neconomy\n"), 0o644))
	b, err := New("keywords", config.Options{"keywords_file": path})
	require.NoError(t, err)
	assert.Equal(t, []string{"economy", "Vote"}, b.(Keywords).Keywords)

	_, err = New("keywords", config.Options{})
	assert.Error(t, err)
}

func TestSpend(t *testing.T) {
	dem := source(t, "Democrats", []string{"spend", DateColumn},
		[]string{"lower_bound: 100, upper_bound: 199", "2019-05-01"},
		[]string{"lower_bound: 0, upper_bound: 99", "2020-01-01"},
		[]string{"lower_bound: 1000, upper_bound: 1999", "2020-10-01"},
		[]string{"unknown", "2020-02-02"},
		[]string{"", "2020-03-03"},
	)
	env := DefaultEnv(nil)
	var rejected []transformer.RejectedRow
	env.OnReject = func(_ string, r transformer.RejectedRow) { rejected = append(rejected, r) }

	res := build(t, "spend", config.Options{}, env, dem)
	assertTable(t, [][]string{
		{"source", "year", "spend"},
		{"Democrats", "2019", "149.5"},
		{"Democrats", "2020", "1549"},
	}, res.Table)
	require.Len(t, rejected, 1)
	assert.Equal(t, "unknown", rejected[0].Raw)
	assert.Equal(t, "Spend per source per year. Democrats filled in: 80%.", res.Title)
}

func TestTerms_Build(t *testing.T) {
	cols := append([]string{DateColumn}, DefaultTermColumns...)
	dem := source(t, "Democrats", cols,
		[]string{"2020-10-05", "<p>Vote</p>", "economy", "Vote!"},
		[]string{"2020-09-05", "Vote", "x", "y"},
		[]string{"2020-10-06", "jobs", "", "jobs"},
	)
	res := build(t, "terms", config.Options{"year": 2020, "month": 10, "min_count": 1}, DefaultEnv(nil), dem)

	assertTable(t, [][]string{
		{"source", "term", "count"},
		{"Democrats", "vote", "2"},
		{"Democrats", "economy", "1"},
	}, res.Table)
	require.Len(t, res.TermFiles, 1)
	assert.Equal(t, "Democrats-1-counts.txt", res.TermFiles[0].Name)
	assert.Equal(t, []TermCount{{"vote", 2}, {"economy", 1}}, res.TermFiles[0].Terms)
	assert.Equal(t, "Terms used in ads. Ads with text data: Democrats: 33%.", res.Title)
}

func TestCountTerms(t *testing.T) {
	got := CountTerms([]string{"Vote, vote! Economy", "vote economy jobs", "the THE the"}, 2,
		newStop(t))
	assert.Equal(t, []TermCount{{"vote", 3}, {"economy", 2}}, got)
}

func TestBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := New("spend", config.Options{})
	require.NoError(t, err)
	_, err = b.Build(ctx, DefaultEnv(nil), []Source{source(t, "D", []string{"spend", DateColumn})})
	assert.ErrorIs(t, err, context.Canceled)
}
