package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adinsights/internal/config"
	"adinsights/internal/ddl"
	"adinsights/internal/metrics"
	"adinsights/internal/metrics/datadog"
	"adinsights/internal/metrics/prompush"
	"adinsights/internal/storage"
	"adinsights/internal/table"
)

// thisMany bounds the sample messages each errAgg keeps.
const thisMany = 3

// counters holds run statistics. Loading updates them from several
// goroutines, so every field is atomic.
type counters struct {
	files       atomic.Int64 // input files read
	loaded      atomic.Int64 // rows read from every source
	parseErrors atomic.Int64 // records dropped by the parser
	transformed atomic.Int64 // rows leaving the transform chain
	rejected    atomic.Int64 // rows dropped by a value conversion
	malformed   atomic.Int64 // nested cells recovered as empty lists
	reported    atomic.Int64 // rows in the result table
	stored      atomic.Int64 // rows copied into storage
}

// runtimeConfig is the resolved concurrency and batching for a run: the
// pipeline value when positive, else the environment, else the default.
type runtimeConfig struct {
	readerWorkers int
	batchSize     int
}

func newRuntimeConfig(spec config.Pipeline) runtimeConfig {
	return runtimeConfig{
		readerWorkers: pickInt(spec.Runtime.ReaderWorkers, getenvInt("ADINSIGHTS_READER_WORKERS", 4)),
		batchSize:     pickInt(spec.Runtime.BatchSize, getenvInt("ADINSIGHTS_BATCH_SIZE", 5000)),
	}
}

// getenvInt reads an int from the environment, returning def when unset or
// invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt returns a when positive, otherwise b.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// errAgg counts messages and keeps the first few for the summary.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []string
	buckets map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buckets[msg]++
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
}

func (a *errAgg) log(log *zap.Logger, what string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return
	}
	log.Warn(what,
		zap.Int("count", a.count),
		zap.Int("distinct", len(a.buckets)),
		zap.Strings("first", a.first))
}

func logGlobalSummary(log *zap.Logger, job string, c *counters, d time.Duration) {
	log.Info("summary",
		zap.String("job", job),
		zap.Int64("files", c.files.Load()),
		zap.Int64("loaded", c.loaded.Load()),
		zap.Int64("parse_errors", c.parseErrors.Load()),
		zap.Int64("transformed", c.transformed.Load()),
		zap.Int64("rejected", c.rejected.Load()),
		zap.Int64("malformed_cells", c.malformed.Load()),
		zap.Int64("reported", c.reported.Load()),
		zap.Int64("stored", c.stored.Load()),
		zap.Duration("elapsed", d.Truncate(time.Millisecond)))
}

// metricsSelection is what the CLI flags say about metrics; empty fields
// fall back to the environment and then the pipeline.
type metricsSelection struct {
	backend string
	url     string
}

// initMetrics installs the selected backend (flag, then METRICS_BACKEND,
// then metrics.backend) and returns a flush function. A backend that fails
// to initialize leaves the no-op backend in place.
func initMetrics(sel metricsSelection, spec config.Pipeline, log *zap.Logger) func() {
	name := firstNonEmpty(sel.backend, os.Getenv("METRICS_BACKEND"), spec.Metrics.Backend)
	job := firstNonEmpty(spec.Job, "adinsights")

	var (
		b   metrics.Backend
		err error
	)
	switch name {
	case "pushgateway":
		url := firstNonEmpty(sel.url, os.Getenv("PUSHGATEWAY_URL"), spec.Metrics.URL, "http://localhost:9091")
		b, err = prompush.NewBackend(job, url)
		log.Info("metrics: pushgateway", zap.String("url", url), zap.String("job", job))
	case "datadog":
		addr := firstNonEmpty(sel.url, spec.Metrics.URL)
		if addr == "" {
			if host := os.Getenv("DD_AGENT_HOST"); host != "" {
				addr = host + ":8125"
			}
		}
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "adinsights.",
			GlobalTags: []string{"job:" + job},
		})
		log.Info("metrics: datadog", zap.String("addr", addr))
	case "", "none":
		log.Debug("metrics: disabled")
		return func() {}
	default:
		log.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", name))
		return func() {}
	}
	if err != nil {
		log.Warn("metrics: backend init failed; using nop", zap.String("backend", name), zap.Error(err))
		return func() {}
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", zap.Error(err))
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// newRepositoryFn is a test seam around storage.New.
var newRepositoryFn = storage.New

// storeTable writes t to the configured sink with a fresh run id, creating
// the table first when autoCreate is set. It returns the run id and the
// number of rows written.
func storeTable(ctx context.Context, sc config.Storage, t *table.Table, batchSize int, log *zap.Logger) (string, int64, error) {
	def, err := ddl.InferTable(sc.DB.Table, t)
	if err != nil {
		return "", 0, err
	}
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    sc.Kind,
		DSN:     sc.DB.DSN,
		Table:   sc.DB.Table,
		Columns: def.ColumnNames(),
	})
	if err != nil {
		return "", 0, fmt.Errorf("storage %s: %w", sc.Kind, err)
	}
	defer repo.Close()

	if sc.DB.AutoCreateTable {
		if err := storage.EnsureTable(ctx, sc.Kind, repo, def); err != nil {
			return "", 0, fmt.Errorf("ensure table %s: %w", sc.DB.Table, err)
		}
	}

	runID := uuid.NewString()
	n, err := storage.WriteTable(ctx, repo, def, t, runID, batchSize, log)
	if err != nil {
		return runID, n, fmt.Errorf("store %s: %w", sc.DB.Table, err)
	}
	log.Info("storage: table written",
		zap.String("kind", sc.Kind),
		zap.String("table", sc.DB.Table),
		zap.String("run_id", runID),
		zap.Int64("rows", n))
	return runID, n, nil
}
