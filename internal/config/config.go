// Package config defines the pipeline configuration model for adinsights
// runs. A pipeline file names the labeled source directories, how files are
// parsed and pruned, the row-level transforms, the flattening policy, the
// report to build, and where the result goes (files and, optionally, a SQL
// table).
//
// Pipelines are written in YAML or JSON; Load picks the decoder by file
// extension. Report, parser and transform settings that vary by kind live in
// free-form Options bags with typed getters.
//
// Example (trimmed):
//
//	job: demographics-2024
//	sources:
//	  - { label: Democrats,   dir: data/democrats }
//	  - { label: Republicans, dir: data/republicans }
//	parser: { kind: csv, options: { trim_space: true } }
//	columns: [ad_archive_id, impressions, demographic_distribution]
//	transform:
//	  - { kind: require, options: { columns: [demographic_distribution] } }
//	report: { kind: demographics, options: { metric_column: impressions, group_by: age } }
//	output: { dir: out, format: csv }
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job labels the run in logs and metrics.
	Job string `json:"job" yaml:"job"`

	// Sources are the labeled input directories (e.g. one per party).
	Sources []Source `json:"sources" yaml:"sources"`

	Parser Parser `json:"parser" yaml:"parser"`

	// Columns prunes every loaded file to this ordered set. Empty keeps all
	// columns.
	Columns []string `json:"columns" yaml:"columns"`

	// Transform lists the ordered row-level steps applied after loading.
	Transform []Transform `json:"transform" yaml:"transform"`

	Flatten Flatten       `json:"flatten" yaml:"flatten"`
	Report  Report        `json:"report" yaml:"report"`
	Output  Output        `json:"output" yaml:"output"`
	Storage Storage       `json:"storage" yaml:"storage"`
	Metrics Metrics       `json:"metrics" yaml:"metrics"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// Source is one labeled directory of input files.
type Source struct {
	Label string `json:"label" yaml:"label"`
	Dir   string `json:"dir" yaml:"dir"`

	// Pattern filters file names (filepath.Match syntax). Default "*.csv".
	Pattern string `json:"pattern" yaml:"pattern"`
}

// Parser selects how raw files become tables.
type Parser struct {
	// Kind is "csv" (default) or "json".
	Kind string `json:"kind" yaml:"kind"`

	// Options is interpreted by the parser. For CSV: comma (string),
	// trim_space (bool), lazy_quotes (bool), header_map (object).
	Options Options `json:"options" yaml:"options"`
}

// Transform defines a single row-level step.
type Transform struct {
	// Kind is one of "require", "dedupe", "coerce", "normalize".
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Flatten configures JSON-cell decoding and the flattener.
type Flatten struct {
	// NullPolicy is "strict" (default) or "skip_nulls".
	NullPolicy string `json:"null_policy" yaml:"null_policy"`

	// WrapBrackets wraps raw cell text in "[" "]" before decoding. Nil means
	// true.
	WrapBrackets *bool `json:"wrap_brackets" yaml:"wrap_brackets"`

	// OnMalformed is "empty" (default) or "fail".
	OnMalformed string `json:"on_malformed" yaml:"on_malformed"`

	// MaxPasses bounds the fixed-point iteration. Zero means the default.
	MaxPasses int `json:"max_passes" yaml:"max_passes"`
}

// Wrap reports the effective WrapBrackets setting.
func (f Flatten) Wrap() bool {
	if f.WrapBrackets == nil {
		return true
	}
	return *f.WrapBrackets
}

// Report selects the report builder and its settings.
type Report struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Output controls where report files are written.
type Output struct {
	Dir string `json:"dir" yaml:"dir"`

	// Format is "csv" (default) or "json". Term reports always write term
	// files.
	Format string `json:"format" yaml:"format"`

	// Name overrides the output file base name (default: report kind).
	Name string `json:"name" yaml:"name"`
}

// Storage selects an optional SQL sink for the report table.
type Storage struct {
	// Kind is "sqlite", "postgres" or "mssql". Empty disables the sink.
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the SQL sink.
type DBConfig struct {
	// DSN is the driver connection string (file path or ":memory:" for
	// sqlite).
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the destination table, optionally schema-qualified.
	Table string `json:"table" yaml:"table"`

	// AutoCreateTable creates the table from the report columns when it does
	// not exist.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// Metrics selects the metrics backend. Flags and environment variables
// override it.
type Metrics struct {
	// Backend is "none" (default), "pushgateway" or "datadog".
	Backend string `json:"backend" yaml:"backend"`
	URL     string `json:"url" yaml:"url"`
}

// RuntimeConfig controls read concurrency and storage batching.
type RuntimeConfig struct {
	ReaderWorkers int `json:"reader_workers" yaml:"reader_workers"`
	BatchSize     int `json:"batch_size" yaml:"batch_size"`
}

// Load reads a pipeline file. ".yaml" and ".yml" files are decoded as YAML,
// everything else as JSON.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("config: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &p); err != nil {
			return p, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &p); err != nil {
			return p, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	return p, nil
}

// Options fetches typed values from free-form option maps. It performs only
// minimal coercion and returns the provided default when a key is absent or
// of an unexpected type. Values may come from encoding/json (float64
// numbers) or yaml.v3 (int or float64 numbers).
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Float returns the float value for key or def.
func (o Options) Float(key string, def float64) float64 {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns the string-valued entries of an object value. It returns
// an empty map when the key is missing or not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, vv := range m {
				res[k] = vv
			}
		}
	}
	return res
}

// StringSlice returns the string elements of an array value, or nil.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON makes a missing or null options object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (o *Options) UnmarshalYAML(n *yaml.Node) error {
	var tmp map[string]any
	if err := n.Decode(&tmp); err != nil {
		return err
	}
	if tmp == nil {
		tmp = map[string]any{}
	}
	*o = Options(tmp)
	return nil
}
