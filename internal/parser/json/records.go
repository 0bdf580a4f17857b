package json

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"adinsights/internal/config"
	"adinsights/internal/table"
)

// Options configures ReadTable.
type Options struct {
	// HeaderMap renames object keys (original → column) before columns are
	// resolved.
	HeaderMap map[string]string

	// Keep prunes the result to these columns, in this order. Requested
	// columns no record carries become null columns. Empty keeps every key.
	Keep []string
}

// FromConfigOptions builds Options from parser.options. Keep comes from the
// pipeline's columns list, not from the options bag.
func FromConfigOptions(o config.Options, keep []string) Options {
	return Options{
		HeaderMap: readHeaderMap(o),
		Keep:      keep,
	}
}

// ReadTable reads JSON records from r into a table. Accepted shapes:
//
//   - a root array of objects: [ {...}, {...} ]
//   - an envelope object whose first array-of-objects field holds the records:
//     { "data": [ {...} ], "paging": {...} }
//   - a single object, or a stream of objects (NDJSON)
//
// Nested values stay nested (Sequence/Mapping cells) so the flattener can
// expand them without a second decode. Non-object array elements are
// reported to onErr with their 1-based position and skipped.
func ReadTable(ctx context.Context, r io.Reader, opt Options, onErr func(line int, err error)) (*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var (
		objs []*table.Map
		line int
	)
	emit := func(m *table.Map) {
		line++
		objs = append(objs, rename(m, opt.HeaderMap))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("json: decode value %d: %w", line+1, err)
		}
		root, err := fromToken(dec, tok)
		if err != nil {
			return nil, fmt.Errorf("json: decode value %d: %w", line+1, err)
		}

		switch root.Kind() {
		case table.Sequence:
			for _, el := range root.Items() {
				if el.Kind() != table.Mapping {
					line++
					if onErr != nil {
						onErr(line, fmt.Errorf("json: array element is %s, want object", el.Kind()))
					}
					continue
				}
				emit(el.Map())
			}
		case table.Mapping:
			if recs := findObjectSlice(root.Map()); recs != nil {
				for _, m := range recs {
					emit(m)
				}
			} else {
				emit(root.Map())
			}
		default:
			return nil, fmt.Errorf("json: unsupported root value %s (want object or array)", root.Text())
		}
	}

	cols := opt.Keep
	if len(cols) == 0 {
		cols = unionKeys(objs)
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	for _, m := range objs {
		row := make([]table.Cell, len(cols))
		for i, c := range cols {
			row[i], _ = m.Get(c)
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// findObjectSlice returns the first field of root holding a non-empty array
// of objects. Null elements are skipped.
func findObjectSlice(root *table.Map) []*table.Map {
	for _, k := range root.Keys() {
		v, _ := root.Get(k)
		if v.Kind() != table.Sequence || len(v.Items()) == 0 {
			continue
		}
		objs := make([]*table.Map, 0, len(v.Items()))
		valid := true
		for _, el := range v.Items() {
			if el.IsNull() {
				continue
			}
			if el.Kind() != table.Mapping {
				valid = false
				break
			}
			objs = append(objs, el.Map())
		}
		if valid && len(objs) > 0 {
			return objs
		}
	}
	return nil
}

func rename(m *table.Map, headerMap map[string]string) *table.Map {
	if len(headerMap) == 0 {
		return m
	}
	out := table.NewMap()
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if mapped, ok := headerMap[k]; ok && mapped != "" {
			out.Set(mapped, v)
		} else {
			out.Set(k, v)
		}
	}
	return out
}

func unionKeys(objs []*table.Map) []string {
	var cols []string
	seen := map[string]bool{}
	for _, m := range objs {
		for _, k := range m.Keys() {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// readHeaderMap accepts both map[string]any (decoded config) and
// map[string]string (built in Go).
func readHeaderMap(opts config.Options) map[string]string {
	res := make(map[string]string)
	switch m := opts.Any("header_map").(type) {
	case map[string]string:
		for k, v := range m {
			res[k] = v
		}
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				res[k] = s
			}
		}
	}
	return res
}
