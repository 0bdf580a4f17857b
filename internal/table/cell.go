// Package table holds the in-memory tabular model shared by the loaders, the
// flattener and the report builders.
//
// A Table is an ordered list of column names plus positional rows. Every cell
// is a tagged variant (Cell) that is either a scalar, a sequence or a mapping,
// so consumers switch on Cell.Kind instead of inspecting dynamic types.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the structural shape of a cell.
type Kind uint8

const (
	Scalar Kind = iota
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ScalarKind refines a Scalar cell.
type ScalarKind uint8

const (
	Null ScalarKind = iota
	String
	Number
	Bool
)

// Cell is a single table value. The zero Cell is a null scalar.
//
// Number cells keep their literal text (as produced by a JSON decoder using
// UseNumber, or by FloatCell) so that values round-trip exactly.
type Cell struct {
	kind  Kind
	sk    ScalarKind
	text  string
	b     bool
	items []Cell
	m     *Map
}

// NullCell returns a null scalar.
func NullCell() Cell { return Cell{} }

// StringCell returns a string scalar.
func StringCell(s string) Cell { return Cell{kind: Scalar, sk: String, text: s} }

// NumberCell returns a number scalar from its literal text, e.g. "10" or "0.25".
func NumberCell(literal string) Cell { return Cell{kind: Scalar, sk: Number, text: literal} }

// FloatCell returns a number scalar holding f.
func FloatCell(f float64) Cell {
	return Cell{kind: Scalar, sk: Number, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// IntCell returns a number scalar holding n.
func IntCell(n int64) Cell { return Cell{kind: Scalar, sk: Number, text: strconv.FormatInt(n, 10)} }

// BoolCell returns a boolean scalar.
func BoolCell(b bool) Cell { return Cell{kind: Scalar, sk: Bool, b: b} }

// SequenceCell returns a sequence holding items. A nil or empty argument list
// yields an empty (non-null) sequence.
func SequenceCell(items ...Cell) Cell {
	if items == nil {
		items = []Cell{}
	}
	return Cell{kind: Sequence, items: items}
}

// MappingCell returns a mapping cell backed by m. A nil m yields an empty map.
func MappingCell(m *Map) Cell {
	if m == nil {
		m = NewMap()
	}
	return Cell{kind: Mapping, m: m}
}

// Kind reports the structural shape of c.
func (c Cell) Kind() Kind { return c.kind }

// ScalarKind reports the scalar sub-kind. It is Null for non-scalars.
func (c Cell) ScalarKind() ScalarKind {
	if c.kind != Scalar {
		return Null
	}
	return c.sk
}

// IsNull reports whether c is a null scalar.
func (c Cell) IsNull() bool { return c.kind == Scalar && c.sk == Null }

// Str returns the string payload of a String cell.
func (c Cell) Str() (string, bool) {
	if c.kind == Scalar && c.sk == String {
		return c.text, true
	}
	return "", false
}

// Float returns the numeric value of c. Number cells always convert; String
// cells convert when their trimmed text parses as a float; Bool cells map to
// 0/1. Nulls and nested cells report false.
func (c Cell) Float() (float64, bool) {
	if c.kind != Scalar {
		return 0, false
	}
	switch c.sk {
	case Number, String:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case Bool:
		if c.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// BoolValue returns the payload of a Bool cell.
func (c Cell) BoolValue() (bool, bool) {
	if c.kind == Scalar && c.sk == Bool {
		return c.b, true
	}
	return false, false
}

// Items returns the elements of a Sequence cell. The slice is shared.
func (c Cell) Items() []Cell {
	if c.kind != Sequence {
		return nil
	}
	return c.items
}

// Map returns the mapping of a Mapping cell, or nil.
func (c Cell) Map() *Map {
	if c.kind != Mapping {
		return nil
	}
	return c.m
}

// Text renders c for display and for CSV output. Nulls render as "", nested
// cells as compact JSON.
func (c Cell) Text() string {
	switch c.kind {
	case Scalar:
		switch c.sk {
		case String, Number:
			return c.text
		case Bool:
			return strconv.FormatBool(c.b)
		}
		return ""
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// String implements fmt.Stringer.
func (c Cell) String() string {
	if c.IsNull() {
		return "<null>"
	}
	return c.Text()
}

// Value converts c into a plain Go value suitable for database drivers:
// nil, string, float64 or bool. Nested cells become their JSON text.
func (c Cell) Value() any {
	switch c.kind {
	case Scalar:
		switch c.sk {
		case String:
			return c.text
		case Number:
			if f, ok := c.Float(); ok {
				return f
			}
			return c.text
		case Bool:
			return c.b
		}
		return nil
	default:
		return c.Text()
	}
}

// Equal reports deep equality. Numbers compare by value, so "1" equals "1.0".
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case Scalar:
		if c.sk != o.sk {
			return false
		}
		switch c.sk {
		case Null:
			return true
		case String:
			return c.text == o.text
		case Bool:
			return c.b == o.b
		case Number:
			a, aok := c.Float()
			b, bok := o.Float()
			if aok && bok {
				return a == b
			}
			return c.text == o.text
		}
	case Sequence:
		if len(c.items) != len(o.items) {
			return false
		}
		for i := range c.items {
			if !c.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case Mapping:
		return c.m.Equal(o.m)
	}
	return false
}

// Compare orders two cells for sorting and grouping: nulls first, then
// booleans, numbers (by value), strings (lexically), sequences and mappings
// (by their JSON text).
func Compare(a, b Cell) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		return 0
	case 1:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case 2:
		fa, _ := a.Float()
		fb, _ := b.Float()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	default:
		return strings.Compare(a.Text(), b.Text())
	}
}

func rank(c Cell) int {
	switch c.kind {
	case Scalar:
		switch c.sk {
		case Null:
			return 0
		case Bool:
			return 1
		case Number:
			if f, ok := c.Float(); ok && !math.IsNaN(f) {
				return 2
			}
			return 3
		}
		return 3
	case Sequence:
		return 4
	}
	return 5
}

// MarshalJSON encodes c as plain JSON (null, string, number, bool, array or
// object with keys in insertion order).
func (c Cell) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Cell) writeJSON(buf *bytes.Buffer) error {
	switch c.kind {
	case Scalar:
		switch c.sk {
		case Null:
			buf.WriteString("null")
		case String:
			b, err := json.Marshal(c.text)
			if err != nil {
				return err
			}
			buf.Write(b)
		case Number:
			f, ok := c.Float()
			if !ok {
				return fmt.Errorf("table: invalid number literal %q", c.text)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				buf.WriteString("null")
				return nil
			}
			buf.WriteString(c.text)
		case Bool:
			buf.WriteString(strconv.FormatBool(c.b))
		}
	case Sequence:
		buf.WriteByte('[')
		for i, it := range c.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Mapping:
		buf.WriteByte('{')
		for i, k := range c.m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := c.m.vals[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// Map is an insertion-ordered string-keyed mapping of cells.
type Map struct {
	keys []string
	vals map[string]Cell
}

// NewMap returns an empty Map.
func NewMap() *Map { return &Map{vals: map[string]Cell{}} }

// Set stores v under k. Re-setting an existing key keeps its original
// position.
func (m *Map) Set(k string, v Cell) {
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

// Get returns the value stored under k.
func (m *Map) Get(k string) (Cell, bool) {
	if m == nil {
		return Cell{}, false
	}
	v, ok := m.vals[k]
	return v, ok
}

// Keys returns the keys in insertion order. The slice is shared.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Equal reports whether both maps hold equal values under the same keys.
// Key order is not significant.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for _, k := range m.Keys() {
		ov, ok := o.Get(k)
		if !ok {
			return false
		}
		if !m.vals[k].Equal(ov) {
			return false
		}
	}
	return true
}
