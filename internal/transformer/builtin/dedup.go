package builtin

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"adinsights/internal/table"
)

// Dedupe collapses rows sharing the same key. Exports downloaded in
// overlapping date windows repeat the same ad, so this usually runs on
// ad_archive_id right after loading.
//
// Policies:
//
//   - "keep-first" (default): keep the earliest occurrence, in input order
//   - "keep-last": keep the latest occurrence, in the order of the kept rows
type Dedupe struct {
	// Keys form the row key. Empty means every column.
	Keys   []string
	Policy string
}

func (Dedupe) Name() string { return "dedupe" }

// Apply returns the surviving rows. Rows are compared by a 128-bit xxh3
// hash of their key cells.
func (d Dedupe) Apply(in *table.Table) (*table.Table, error) {
	keys := d.Keys
	if len(keys) == 0 {
		keys = in.Columns()
	}
	ix := make([]int, len(keys))
	for k, c := range keys {
		j := in.Index(c)
		if j < 0 {
			return nil, unknown(c)
		}
		ix[k] = j
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	switch policy {
	case "", "keep-first", "keep-last":
	default:
		return nil, fmt.Errorf("dedupe: unknown policy %q", d.Policy)
	}

	winner := make(map[xxh3.Uint128]int, in.Len())
	order := make([]xxh3.Uint128, 0, in.Len())
	for i := 0; i < in.Len(); i++ {
		h := rowKey(in.Row(i), ix)
		if _, seen := winner[h]; !seen {
			order = append(order, h)
			winner[h] = i
			continue
		}
		if policy == "keep-last" {
			winner[h] = i
		}
	}
	if len(order) == in.Len() {
		return in, nil
	}

	keep := make(map[int]bool, len(order))
	for _, h := range order {
		keep[winner[h]] = true
	}
	return in.Filter(func(r table.Record) bool { return keep[r.Index()] }), nil
}

// rowKey hashes the selected cells. Each cell contributes its kind tag and
// length-prefixed text so that ("ab","c") and ("a","bc") differ and a null
// differs from an empty string.
func rowKey(row []table.Cell, ix []int) xxh3.Uint128 {
	var b strings.Builder
	for _, j := range ix {
		c := row[j]
		if c.IsNull() {
			b.WriteString("\x00|")
			continue
		}
		txt := c.Text()
		fmt.Fprintf(&b, "%d:%d:%s|", c.Kind(), len(txt), txt)
	}
	return xxh3.HashString128(b.String())
}
