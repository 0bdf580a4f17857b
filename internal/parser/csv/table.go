// Package csv reads ad-library CSV exports into tables.
//
// The first record is the header. Header cells are normalized the same way
// for every file (BOM stripped, trimmed, header_map applied, otherwise
// lower-cased with spaces turned into underscores) so that exports written
// by different tools line up on the same column names. Empty cells become
// nulls.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"adinsights/internal/config"
	"adinsights/internal/table"
)

const utf8BOM = "\uFEFF"

// Options configures ReadTable.
type Options struct {
	Comma      rune
	TrimSpace  bool
	LazyQuotes bool

	// HasHeader is true for every known export. Without a header, Keep
	// names the columns positionally.
	HasHeader bool

	// HeaderMap renames raw header cells (after trimming) to column names.
	HeaderMap map[string]string

	// Keep prunes each file to these columns in this order. Requested
	// columns the file lacks become null columns.
	Keep []string

	Logger *zap.Logger
}

// FromConfigOptions reads comma, trim_space, lazy_quotes, has_header and
// header_map from parser.options.
func FromConfigOptions(o config.Options, keep []string, log *zap.Logger) Options {
	return Options{
		Comma:      o.Rune("comma", ','),
		TrimSpace:  o.Bool("trim_space", true),
		LazyQuotes: o.Bool("lazy_quotes", false),
		HasHeader:  o.Bool("has_header", true),
		HeaderMap:  o.StringMap("header_map"),
		Keep:       keep,
		Logger:     log,
	}
}

// NormalizeHeader maps one raw header cell to its column name.
func NormalizeHeader(h string, headerMap map[string]string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
	if mapped, ok := headerMap[h]; ok && mapped != "" {
		return mapped
	}
	return strings.ReplaceAll(strings.ToLower(h), " ", "_")
}

// ReadTable reads src into a table and closes it. Records whose field count
// differs from the header's are dropped and reported to onErr with their
// 1-based line number.
func ReadTable(ctx context.Context, src io.ReadCloser, opt Options, onErr func(line int, err error)) (*table.Table, error) {
	defer src.Close()

	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opt.Comma == 0 {
		opt.Comma = ','
	}

	cr := csv.NewReader(src)
	cr.Comma = opt.Comma
	cr.LazyQuotes = opt.LazyQuotes
	cr.ReuseRecord = true

	var (
		cols  []string
		colIx []int // colIx[target] = source index, or -1
	)
	if opt.HasHeader {
		hdr, err := cr.Read()
		if err == io.EOF {
			return table.New(opt.Keep...)
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read header: %w", err)
		}
		srcToIdx := make(map[string]int, len(hdr))
		names := make([]string, len(hdr))
		for i, h := range hdr {
			names[i] = NormalizeHeader(h, opt.HeaderMap)
			if _, dup := srcToIdx[names[i]]; !dup {
				srcToIdx[names[i]] = i
			}
		}
		cols = opt.Keep
		if len(cols) == 0 {
			cols = names
		}
		colIx = make([]int, len(cols))
		for t, c := range cols {
			colIx[t] = -1
			if si, ok := srcToIdx[c]; ok {
				colIx[t] = si
			}
		}
	} else {
		if len(opt.Keep) == 0 {
			return nil, errors.New("csv: has_header=false requires an explicit column list")
		}
		cr.FieldsPerRecord = len(opt.Keep)
		cols = opt.Keep
		colIx = make([]int, len(cols))
		for i := range colIx {
			colIx[i] = i
		}
	}

	t, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("csv: header: %w", err)
	}

	const logEveryN = 50_000
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("csv: %w", err)
			}
			if onErr != nil {
				onErr(perr.StartLine, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		row := make([]table.Cell, len(cols))
		for k, si := range colIx {
			if si < 0 || si >= len(rec) {
				continue
			}
			v := rec[si]
			if opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			if v != "" {
				row[k] = table.StringCell(v)
			}
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
		if t.Len()%logEveryN == 0 {
			log.Debug("csv: reading", zap.Int("rows", t.Len()))
		}
	}
	return t, nil
}
