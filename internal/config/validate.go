package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config (e.g. "sources[1].dir", "report.options.column").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ReportKinds lists the report builders a pipeline may name.
var ReportKinds = []string{
	"audience",
	"categories",
	"demographics",
	"keywords",
	"regions",
	"spend",
	"terms",
}

// TransformKinds lists the row-level steps a pipeline may name.
var TransformKinds = []string{"require", "dedupe", "coerce", "normalize"}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate p; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels logs and metrics",
		})
	}
	issues = append(issues, validateSources(p.Sources)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateTransforms(p.Transform)...)
	issues = append(issues, validateFlatten(p.Flatten)...)
	issues = append(issues, validateReport(p.Report, p.Columns)...)
	issues = append(issues, validateOutput(p.Output)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateSources(ss []Source) []Issue {
	var issues []Issue
	if len(ss) == 0 {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources",
			Message:  "at least one source directory is required",
		})
	}
	seen := map[string]int{}
	for i, s := range ss {
		if strings.TrimSpace(s.Label) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("sources[%d].label", i),
				Message:  "source label must not be empty",
			})
		} else if j, dup := seen[s.Label]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("sources[%d].label", i),
				Message:  fmt.Sprintf("duplicate source label %q (also sources[%d])", s.Label, j),
			})
		} else {
			seen[s.Label] = i
		}
		if strings.TrimSpace(s.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("sources[%d].dir", i),
				Message:  "source dir must not be empty",
			})
		}
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue
	switch p.Kind {
	case "":
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.kind",
			Message:  "parser.kind is empty; defaulting to csv",
		})
	case "csv":
		if c := p.Options.String("comma", ","); len([]rune(c)) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.comma",
				Message:  fmt.Sprintf("comma must be a single character, got %q", c),
			})
		}
	case "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q (want csv or json)", p.Kind),
		})
	}
	return issues
}

func validateTransforms(ts []Transform) []Issue {
	var issues []Issue
	for i, t := range ts {
		path := fmt.Sprintf("transform[%d]", i)
		if strings.TrimSpace(t.Kind) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".kind",
				Message:  "transform kind must not be empty",
			})
			continue
		}
		if !contains(TransformKinds, t.Kind) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".kind",
				Message:  fmt.Sprintf("unknown transform kind %q", t.Kind),
			})
			continue
		}

		switch t.Kind {
		case "require", "normalize":
			if len(t.Options.StringSlice("columns")) == 0 {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".options.columns",
					Message:  t.Kind + " transform needs at least one column",
				})
			}
		case "coerce":
			if t.Options.String("column", "") == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".options.column",
					Message:  "coerce transform needs a column",
				})
			}
			switch k := t.Options.String("to", ""); k {
			case "midpoint", "year":
			default:
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path + ".options.to",
					Message:  fmt.Sprintf("unknown coercion %q (want midpoint or year)", k),
				})
			}
		}
	}
	return issues
}

func validateFlatten(f Flatten) []Issue {
	var issues []Issue
	switch f.NullPolicy {
	case "", "strict", "skip_nulls":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "flatten.null_policy",
			Message:  fmt.Sprintf("unknown null_policy %q (want strict or skip_nulls)", f.NullPolicy),
		})
	}
	switch f.OnMalformed {
	case "", "empty", "fail":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "flatten.on_malformed",
			Message:  fmt.Sprintf("unknown on_malformed %q (want empty or fail)", f.OnMalformed),
		})
	}
	if f.MaxPasses < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "flatten.max_passes",
			Message:  "max_passes must not be negative",
		})
	}
	return issues
}

func validateReport(r Report, columns []string) []Issue {
	var issues []Issue
	if strings.TrimSpace(r.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "report.kind",
			Message:  "report.kind must not be empty",
		})
	}
	if !contains(ReportKinds, r.Kind) {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "report.kind",
			Message:  fmt.Sprintf("unknown report kind %q (known: %s)", r.Kind, strings.Join(ReportKinds, ", ")),
		})
	}

	switch r.Kind {
	case "categories":
		if r.Options.String("column", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "report.options.column",
				Message:  "categories report needs a column to count",
			})
		}
	case "keywords":
		kws := r.Options.StringSlice("keywords")
		file := r.Options.String("keywords_file", "")
		if len(kws) == 0 && file == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "report.options.keywords",
				Message:  "keywords report needs keywords or keywords_file",
			})
		}
		switch s := r.Options.String("series", "keyword"); s {
		case "keyword", "source":
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "report.options.series",
				Message:  fmt.Sprintf("unknown series %q (want keyword or source)", s),
			})
		}
	case "audience":
		th := r.Options.Float("threshold", 0.95)
		if th < 0 || th > 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "report.options.threshold",
				Message:  fmt.Sprintf("threshold %v must lie in [0, 1]", th),
			})
		}
		if len(columns) > 0 && !contains(columns, "ad_archive_id") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "columns",
				Message:  "audience report groups by ad_archive_id; add it to columns",
			})
		}
	case "terms":
		if r.Options.Int("min_count", 3) < 1 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "report.options.min_count",
				Message:  "min_count below 1 keeps every term",
			})
		}
		if m := r.Options.Int("month", 0); m < 0 || m > 12 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "report.options.month",
				Message:  fmt.Sprintf("month %d out of range", m),
			})
		}
	}
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue
	switch o.Format {
	case "", "csv", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.format",
			Message:  fmt.Sprintf("unknown output format %q (want csv or json)", o.Format),
		})
	}
	if strings.TrimSpace(o.Dir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output.dir",
			Message:  "output.dir is empty; files are written to the working directory",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Kind) == "" {
		return nil
	}
	switch s.Kind {
	case "sqlite", "postgres", "mssql":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.table",
			Message:  "storage.db.table must not be empty",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none", "pushgateway", "datadog":
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "metrics.backend",
		Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
	}}
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.ReaderWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.reader_workers",
			Message:  "reader_workers must not be negative",
		})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	return issues
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
