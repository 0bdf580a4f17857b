// Package report builds the ad-library reports: each builder takes the
// loaded table of every source (one per party, typically) and returns a
// single result table plus a human-readable title.
//
// Builders register themselves by kind at init time; New looks them up the
// same way the storage backends are looked up.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"adinsights/internal/config"
	"adinsights/internal/flatten"
	"adinsights/internal/table"
	"adinsights/internal/transformer"
	"adinsights/internal/transformer/builtin"
)

// SourceColumn is the leading column of per-source results.
const SourceColumn = "source"

var (
	// ErrNoResults is returned when filtering leaves nothing to report.
	ErrNoResults = errors.New("no results found matching the keyword")

	// ErrUnknownReport is returned by New for an unregistered kind.
	ErrUnknownReport = errors.New("report: unknown kind")
)

// Source is the loaded table of one labelled input directory.
type Source struct {
	Label string
	Table *table.Table
}

// Result is what a builder produces.
type Result struct {
	Name  string
	Title string
	Table *table.Table

	// TermFiles is set by the terms report only.
	TermFiles []TermFile
}

// Env carries what builders share: logging, flattener settings and the
// callbacks that count recovered problems.
type Env struct {
	Logger  *zap.Logger
	Flatten flatten.Options
	Decode  flatten.DecodeOptions

	// OnMalformed receives every nested cell that failed to decode.
	OnMalformed func(source string, err *flatten.MalformedRecordError)

	// OnReject receives every row dropped by a value conversion.
	OnReject func(source string, r transformer.RejectedRow)
}

// DefaultEnv returns an Env with the default flattener and decoder settings.
func DefaultEnv(log *zap.Logger) Env {
	return Env{
		Logger:  log,
		Flatten: flatten.Options{Logger: log},
		Decode:  flatten.DefaultDecodeOptions(),
	}
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// flattenColumn decodes col and flattens the result.
func (e Env) flattenColumn(source string, t *table.Table, col string) (*table.Table, error) {
	decoded, err := flatten.DecodeColumns(t, []string{col}, e.Decode, func(m *flatten.MalformedRecordError) {
		e.logger().Debug("report: malformed nested cell",
			zap.String("source", source),
			zap.String("column", m.Column),
			zap.Int("row", m.Row),
			zap.Error(m.Err))
		if e.OnMalformed != nil {
			e.OnMalformed(source, m)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	opt := e.Flatten
	if opt.Logger == nil {
		opt.Logger = e.Logger
	}
	out, err := flatten.New(opt).Flatten(decoded)
	if err != nil {
		return nil, fmt.Errorf("%s: flatten %s: %w", source, col, err)
	}
	return out, nil
}

// coerce runs a builtin conversion, routing rejected rows to OnReject.
func (e Env) coerce(source string, t *table.Table, col, to, as string) (*table.Table, error) {
	step := builtin.Coerce{
		Column: col,
		To:     to,
		As:     as,
		Reject: func(r transformer.RejectedRow) {
			if e.OnReject != nil {
				e.OnReject(source, r)
			}
		},
	}
	out, err := step.Apply(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return out, nil
}

// Builder produces a Result from the sources.
type Builder interface {
	Build(ctx context.Context, env Env, sources []Source) (*Result, error)
}

// Factory makes a Builder from report.options.
type Factory func(opts config.Options) (Builder, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = f
}

// New returns the builder registered for kind.
func New(kind string, opts config.Options) (Builder, error) {
	registryMu.RLock()
	f, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReport, kind)
	}
	b, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", kind, err)
	}
	return b, nil
}

// Kinds lists the registered report kinds in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// withSource prepends a source column holding label.
func withSource(label string, t *table.Table) (*table.Table, error) {
	cols := append([]string{SourceColumn}, t.Columns()...)
	out, err := t.WithColumn(SourceColumn, func(table.Record) table.Cell {
		return table.StringCell(label)
	}).Select(cols...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return out, nil
}

// titleFor names a column in titles.
func titleFor(col string) string {
	if col == "publisher_platforms" {
		return "Advertising platforms"
	}
	return col
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// need returns the non-empty column names.
func need(cols ...string) []string {
	out := cols[:0:0]
	for _, c := range cols {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
