package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adinsights/internal/config"
	"adinsights/internal/flatten"
	"adinsights/internal/loader"
	"adinsights/internal/metrics"
	csvparser "adinsights/internal/parser/csv"
	jsonparser "adinsights/internal/parser/json"
	"adinsights/internal/report"
	"adinsights/internal/transformer"
	"adinsights/internal/transformer/builtin"
)

func newRunCmd() *cobra.Command {
	var (
		cfgPath  string
		validate bool
		sel      metricsSelection
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the sources of a pipeline, build its report and write the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadAndValidate(cmd.ErrOrStderr(), cfgPath)
			if err != nil {
				return err
			}
			if validate {
				logger.Info("configuration is valid", zap.String("config", cfgPath))
				return nil
			}
			flush := initMetrics(sel, p, logger)
			defer flush()

			_, err = runPipeline(cmd.Context(), p, logger, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "pipeline.yaml", "pipeline config path (.yaml, .yml or .json)")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the configuration and exit")
	cmd.Flags().StringVar(&sel.backend, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (overrides METRICS_BACKEND)")
	cmd.Flags().StringVar(&sel.url, "metrics-url", "", "Pushgateway URL or DogStatsD address (overrides PUSHGATEWAY_URL)")
	return cmd
}

// loadAndValidate decodes the pipeline and prints every validation issue to
// w. Any error-severity issue fails.
func loadAndValidate(w io.Writer, path string) (config.Pipeline, error) {
	p, err := config.Load(path)
	if err != nil {
		return p, err
	}
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return p, fmt.Errorf("configuration %s is invalid", path)
	}
	return p, nil
}

// runResult is what a finished run produced.
type runResult struct {
	Result *report.Result
	Paths  []string
	RunID  string
	Stored int64
}

// runPipeline loads every source, applies the transform chain, builds the
// report, writes it to the output directory and, when configured, stores the
// result table. The report title is printed to out.
func runPipeline(ctx context.Context, p config.Pipeline, log *zap.Logger, out io.Writer) (*runResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()
	rc := newRuntimeConfig(p)
	cnt := &counters{}
	parseAgg := newErrAgg(thisMany)
	rejectAgg := newErrAgg(thisMany)
	malformedAgg := newErrAgg(thisMany)
	defer func() {
		parseAgg.log(log, "parse errors")
		rejectAgg.log(log, "rejected rows")
		malformedAgg.log(log, "malformed nested cells")
		logGlobalSummary(log, p.Job, cnt, time.Since(start))
	}()

	log.Info("pipeline: start",
		zap.String("job", p.Job),
		zap.String("report", p.Report.Kind),
		zap.Int("sources", len(p.Sources)),
		zap.Int("reader_workers", rc.readerWorkers),
		zap.Int("batch_size", rc.batchSize))

	onReject := func(source string) func(transformer.RejectedRow) {
		return func(r transformer.RejectedRow) {
			cnt.rejected.Add(1)
			rejectAgg.add(fmt.Sprintf("%s: %s %s: %s", source, r.Step, r.Column, r.Reason))
		}
	}

	sources := make([]report.Source, 0, len(p.Sources))
	for _, s := range p.Sources {
		t0 := time.Now()
		t, st, err := loader.LoadSource(ctx, s.Dir, loaderOptions(p, s, rc, log, cnt, parseAgg))
		metrics.RecordStep(p.Job, "load", err, time.Since(t0))
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", s.Label, err)
		}
		cnt.files.Add(int64(st.Files))
		cnt.loaded.Add(int64(st.Rows))
		metrics.RecordRow(p.Job, "loaded", int64(st.Rows))
		metrics.RecordRow(p.Job, "parse_errors", st.ParseErrors)

		t0 = time.Now()
		chain, err := builtin.Build(p.Transform, onReject(s.Label))
		if err == nil {
			t, err = chain.Apply(t)
		}
		metrics.RecordStep(p.Job, "transform", err, time.Since(t0))
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", s.Label, err)
		}
		cnt.transformed.Add(int64(t.Len()))
		sources = append(sources, report.Source{Label: s.Label, Table: t})
	}

	env := reportEnv(p, log, cnt, malformedAgg, onReject)
	t0 := time.Now()
	b, err := report.New(p.Report.Kind, p.Report.Options)
	var res *report.Result
	if err == nil {
		res, err = b.Build(ctx, env, sources)
	}
	metrics.RecordStep(p.Job, "report", err, time.Since(t0))
	metrics.RecordRow(p.Job, "rejected", cnt.rejected.Load())
	metrics.RecordRow(p.Job, "malformed", cnt.malformed.Load())
	if err != nil {
		if errors.Is(err, report.ErrNoResults) {
			log.Info("report: nothing to report", zap.String("report", p.Report.Kind))
		}
		return nil, err
	}
	cnt.reported.Add(int64(res.Table.Len()))
	metrics.RecordRow(p.Job, "report", int64(res.Table.Len()))

	t0 = time.Now()
	paths, err := report.Save(p.Output.Dir, p.Output.Name, p.Output.Format, res)
	metrics.RecordStep(p.Job, "write", err, time.Since(t0))
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	log.Info("report: written", zap.String("title", res.Title), zap.Strings("paths", paths))
	fmt.Fprintln(out, res.Title)

	rr := &runResult{Result: res, Paths: paths}
	if p.Storage.Kind != "" {
		t0 = time.Now()
		rr.RunID, rr.Stored, err = storeTable(ctx, p.Storage, res.Table, rc.batchSize, log)
		metrics.RecordStep(p.Job, "store", err, time.Since(t0))
		if err != nil {
			return nil, err
		}
		cnt.stored.Add(rr.Stored)
		metrics.RecordRow(p.Job, "stored", rr.Stored)
		metrics.RecordBatches(p.Job, (rr.Stored+int64(rc.batchSize)-1)/int64(rc.batchSize))
	}
	return rr, nil
}

func loaderOptions(p config.Pipeline, s config.Source, rc runtimeConfig, log *zap.Logger, cnt *counters, agg *errAgg) loader.Options {
	pattern := s.Pattern
	if pattern == "" && p.Parser.Kind == "json" {
		pattern = "*.json"
	}
	return loader.Options{
		Parser:  p.Parser.Kind,
		CSV:     csvparser.FromConfigOptions(p.Parser.Options, p.Columns, log),
		JSON:    jsonparser.FromConfigOptions(p.Parser.Options, p.Columns),
		Pattern: pattern,
		Workers: rc.readerWorkers,
		Logger:  log,
		OnRowErr: func(file string, line int, err error) {
			cnt.parseErrors.Add(1)
			agg.add(fmt.Sprintf("%s:%d: %v", file, line, err))
		},
	}
}

func reportEnv(p config.Pipeline, log *zap.Logger, cnt *counters, agg *errAgg, onReject func(string) func(transformer.RejectedRow)) report.Env {
	env := report.DefaultEnv(log)
	env.Flatten, env.Decode = flatten.FromConfig(p.Flatten, log)
	env.OnMalformed = func(source string, m *flatten.MalformedRecordError) {
		cnt.malformed.Add(1)
		agg.add(fmt.Sprintf("%s: %s", source, m.Error()))
	}
	env.OnReject = func(source string, r transformer.RejectedRow) {
		onReject(source)(r)
	}
	return env
}
