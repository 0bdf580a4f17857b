package table

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAppend(t *testing.T, tb *Table, row ...Cell) {
	t.Helper()
	require.NoError(t, tb.Append(row...))
}

func TestNew_RejectsDuplicateColumns(t *testing.T) {
	_, err := New("a", "b", "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateColumn))
}

func TestCell_KindsAndAccessors(t *testing.T) {
	assert.True(t, NullCell().IsNull())
	assert.Equal(t, Scalar, NullCell().Kind())

	s, ok := StringCell("x").Str()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	f, ok := NumberCell("0.25").Float()
	assert.True(t, ok)
	assert.Equal(t, 0.25, f)

	f, ok = StringCell(" 12 ").Float()
	assert.True(t, ok)
	assert.Equal(t, 12.0, f)

	_, ok = StringCell("abc").Float()
	assert.False(t, ok)

	seq := SequenceCell()
	assert.Equal(t, Sequence, seq.Kind())
	assert.False(t, seq.IsNull())
	assert.Empty(t, seq.Items())

	m := NewMap()
	m.Set("b", IntCell(2))
	m.Set("a", IntCell(1))
	m.Set("b", IntCell(3))
	assert.Equal(t, []string{"b", "a"}, m.Keys())
	v, ok := m.Get("b")
	require.True(t, ok)
	assert.True(t, v.Equal(IntCell(3)))
}

func TestCell_MarshalJSONKeepsKeyOrder(t *testing.T) {
	m := NewMap()
	m.Set("z", StringCell("last"))
	m.Set("a", SequenceCell(NumberCell("1"), BoolCell(true), NullCell()))
	b, err := json.Marshal(MappingCell(m))
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last","a":[1,true,null]}`, string(b))
}

func TestCell_EqualNumbersByValue(t *testing.T) {
	assert.True(t, NumberCell("1").Equal(NumberCell("1.0")))
	assert.False(t, NumberCell("1").Equal(StringCell("1")))
}

func TestCompare_Ordering(t *testing.T) {
	assert.Equal(t, -1, Compare(NullCell(), StringCell("a")))
	assert.Equal(t, -1, Compare(NumberCell("2"), NumberCell("10")))
	assert.Equal(t, 1, Compare(StringCell("b"), StringCell("a")))
	assert.Equal(t, 0, Compare(StringCell("a"), StringCell("a")))
}

func TestSelect_AddsMissingColumnsAsNull(t *testing.T) {
	tb := MustNew("a", "b")
	mustAppend(t, tb, StringCell("1"), StringCell("2"))

	out, err := tb.Select("b", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, out.Columns())
	assert.Equal(t, "2", out.Get(0, "b").Text())
	assert.True(t, out.Get(0, "c").IsNull())
}

func TestDropNulls(t *testing.T) {
	tb := MustNew("a", "b")
	mustAppend(t, tb, StringCell("1"), NullCell())
	mustAppend(t, tb, StringCell("2"), StringCell("x"))
	mustAppend(t, tb, NullCell(), StringCell("y"))

	out, err := tb.DropNulls("a", "b")
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "2", out.Get(0, "a").Text())

	_, err = tb.DropNulls("missing")
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestRenameAndDrop(t *testing.T) {
	tb := MustNew("a", "b", "c")
	mustAppend(t, tb, StringCell("1"), StringCell("2"), StringCell("3"))

	r, err := tb.Rename(map[string]string{"b": "beta"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "beta", "c"}, r.Columns())

	d := r.Drop("a", "nope")
	assert.Equal(t, []string{"beta", "c"}, d.Columns())
	assert.Equal(t, "3", d.Get(0, "c").Text())

	_, err = tb.Rename(map[string]string{"a": "c"})
	assert.True(t, errors.Is(err, ErrDuplicateColumn))
}

func TestConcat_UnionOfColumns(t *testing.T) {
	a := MustNew("x", "y")
	mustAppend(t, a, StringCell("1"), StringCell("2"))
	b := MustNew("y", "z")
	mustAppend(t, b, StringCell("3"), StringCell("4"))

	out := Concat(a, b)
	assert.Equal(t, []string{"x", "y", "z"}, out.Columns())
	require.Equal(t, 2, out.Len())
	assert.True(t, out.Get(0, "z").IsNull())
	assert.True(t, out.Get(1, "x").IsNull())
	assert.Equal(t, "3", out.Get(1, "y").Text())
}

func TestSortBy_StableDescending(t *testing.T) {
	tb := MustNew("k", "v")
	mustAppend(t, tb, StringCell("a"), IntCell(1))
	mustAppend(t, tb, StringCell("b"), IntCell(3))
	mustAppend(t, tb, StringCell("c"), IntCell(3))

	require.NoError(t, tb.SortBy(true, "v"))
	assert.Equal(t, "b", tb.Get(0, "k").Text())
	assert.Equal(t, "c", tb.Get(1, "k").Text())
	assert.Equal(t, "a", tb.Get(2, "k").Text())
}

func TestWithColumn_AppendsAndReplaces(t *testing.T) {
	tb := MustNew("a")
	mustAppend(t, tb, IntCell(2))

	out := tb.WithColumn("double", func(r Record) Cell {
		f, _ := r.Get("a").Float()
		return FloatCell(f * 2)
	})
	assert.Equal(t, []string{"a", "double"}, out.Columns())
	assert.Equal(t, "4", out.Get(0, "double").Text())

	out = out.WithColumn("a", func(Record) Cell { return StringCell("x") })
	assert.Equal(t, []string{"a", "double"}, out.Columns())
	assert.Equal(t, "x", out.Get(0, "a").Text())
	assert.Equal(t, "2", tb.Get(0, "a").Text(), "source table must not change")
}
