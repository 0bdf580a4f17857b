package csv

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adinsights/internal/config"
)

func src(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

/*
TestNormalizeHeader covers BOM stripping, trimming, header_map lookup and the
lower-case/underscore fallback.
*/
func TestNormalizeHeader(t *testing.T) {
	hm := map[string]string{"Ad Spend": "spend"}
	tests := []struct{ in, want string }{
		{"\uFEFFad_archive_id", "ad_archive_id"},
		{"  Page Name ", "page_name"},
		{"Ad Spend", "spend"},
		{" Ad Spend", "spend"},
		{"impressions", "impressions"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NormalizeHeader(tc.in, hm), tc.in)
	}
}

func TestReadTable_AllColumns(t *testing.T) {
	in := "\uFEFFad_archive_id,Page Name,spend\n1, Foo ,\"lower_bound: 100, upper_bound: 199\"\n2,,x\n"
	opt := FromConfigOptions(config.Options{}, nil, nil)

	tb, err := ReadTable(context.Background(), src(in), opt, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ad_archive_id", "page_name", "spend"}, tb.Columns())
	require.Equal(t, 2, tb.Len())
	assert.Equal(t, "Foo", tb.Get(0, "page_name").Text())
	assert.Equal(t, "lower_bound: 100, upper_bound: 199", tb.Get(0, "spend").Text())
	assert.True(t, tb.Get(1, "page_name").IsNull())
}

func TestReadTable_KeepPrunesAndAddsMissing(t *testing.T) {
	in := "a,b,c\n1,2,3\n"
	opt := FromConfigOptions(config.Options{}, []string{"c", "a", "zzz"}, nil)

	tb, err := ReadTable(context.Background(), src(in), opt, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "zzz"}, tb.Columns())
	assert.Equal(t, "3", tb.Get(0, "c").Text())
	assert.Equal(t, "1", tb.Get(0, "a").Text())
	assert.True(t, tb.Get(0, "zzz").IsNull())
}

func TestReadTable_SoftDropsBadRows(t *testing.T) {
	in := "a,b\n1,2\n3\n4,5\n"
	var lines []int
	tb, err := ReadTable(context.Background(), src(in), FromConfigOptions(config.Options{}, nil, nil),
		func(line int, err error) { lines = append(lines, line) })
	require.NoError(t, err)
	assert.Equal(t, 2, tb.Len())
	assert.Equal(t, []int{3}, lines)
	assert.Equal(t, "4", tb.Get(1, "a").Text())
}

func TestReadTable_Semicolons(t *testing.T) {
	in := "a;b\n1;2\n"
	opt := FromConfigOptions(config.Options{"comma": ";"}, nil, nil)
	tb, err := ReadTable(context.Background(), src(in), opt, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", tb.Get(0, "b").Text())
}

func TestReadTable_EmptyInput(t *testing.T) {
	opt := FromConfigOptions(config.Options{}, []string{"a"}, nil)
	tb, err := ReadTable(context.Background(), src(""), opt, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tb.Len())
	assert.Equal(t, []string{"a"}, tb.Columns())
}

func TestReadTable_NoHeaderNeedsColumns(t *testing.T) {
	opt := FromConfigOptions(config.Options{"has_header": false}, nil, nil)
	_, err := ReadTable(context.Background(), src("1,2\n"), opt, nil)
	assert.Error(t, err)

	opt.Keep = []string{"x", "y"}
	tb, err := ReadTable(context.Background(), src("1,2\n"), opt, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", tb.Get(0, "y").Text())
}

func TestReadTable_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadTable(ctx, src("a\n1\n"), FromConfigOptions(config.Options{}, nil, nil), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
