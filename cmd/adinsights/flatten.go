package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adinsights/internal/config"
	"adinsights/internal/flatten"
	"adinsights/internal/loader"
	csvparser "adinsights/internal/parser/csv"
	"adinsights/internal/report"
	"adinsights/internal/table"
)

type flattenOptions struct {
	dir         string
	pattern     string
	jsonColumns []string
	out         string
	format      string
	nullPolicy  string
	onMalformed string

	storageKind string
	dsn         string
	table       string
	autoCreate  bool
}

func newFlattenCmd() *cobra.Command {
	var o flattenOptions
	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Load a directory of exports, decode JSON columns and flatten them into plain rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if o.out != "" && o.out != "-" {
				f, err := os.Create(o.out)
				if err != nil {
					return fmt.Errorf("create %s: %w", o.out, err)
				}
				defer f.Close()
				w = f
			}
			return runFlatten(cmd.Context(), o, logger, w)
		},
	}
	cmd.Flags().StringVar(&o.dir, "dir", "", "directory of CSV files")
	cmd.Flags().StringVar(&o.pattern, "pattern", "", "file name pattern (default *.csv)")
	cmd.Flags().StringSliceVar(&o.jsonColumns, "json-column", nil, "column holding JSON text; repeatable")
	cmd.Flags().StringVar(&o.out, "out", "", "output file (default stdout)")
	cmd.Flags().StringVar(&o.format, "format", report.FormatCSV, "output format: csv or json")
	cmd.Flags().StringVar(&o.nullPolicy, "null-policy", string(flatten.Strict), "strict or skip_nulls")
	cmd.Flags().StringVar(&o.onMalformed, "on-malformed", string(flatten.RecoverEmpty), "empty or fail")
	cmd.Flags().StringVar(&o.storageKind, "storage-kind", "", "also store the table: sqlite, postgres or mssql")
	cmd.Flags().StringVar(&o.dsn, "dsn", "", "storage connection string")
	cmd.Flags().StringVar(&o.table, "table", "flattened", "storage table")
	cmd.Flags().BoolVar(&o.autoCreate, "auto-create-table", true, "create the storage table when missing")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

// runFlatten loads o.dir, decodes and flattens the JSON columns and writes
// the result to w, optionally storing it as well.
func runFlatten(ctx context.Context, o flattenOptions, log *zap.Logger, w io.Writer) error {
	if log == nil {
		log = zap.NewNop()
	}
	switch flatten.NullPolicy(o.nullPolicy) {
	case flatten.Strict, flatten.SkipNulls:
	default:
		return fmt.Errorf("unknown null policy %q (want strict or skip_nulls)", o.nullPolicy)
	}
	switch flatten.MalformedPolicy(o.onMalformed) {
	case flatten.RecoverEmpty, flatten.FailFast:
	default:
		return fmt.Errorf("unknown on-malformed policy %q (want empty or fail)", o.onMalformed)
	}
	var format string
	switch o.format {
	case "", report.FormatCSV:
		format = report.FormatCSV
	case report.FormatJSON:
		format = report.FormatJSON
	default:
		return fmt.Errorf("unknown output format %q", o.format)
	}

	t, st, err := loader.LoadSource(ctx, o.dir, loader.Options{
		CSV:     csvparser.FromConfigOptions(config.Options{}, nil, log),
		Pattern: o.pattern,
		Workers: getenvInt("ADINSIGHTS_READER_WORKERS", loader.DefaultWorkers),
		Logger:  log,
		OnRowErr: func(file string, line int, err error) {
			log.Debug("flatten: dropped record", zap.String("file", file), zap.Int("line", line), zap.Error(err))
		},
	})
	if err != nil {
		return err
	}

	var malformed int
	decoded, err := flatten.DecodeColumns(t, o.jsonColumns, flatten.DecodeOptions{
		WrapBrackets: true,
		OnMalformed:  flatten.MalformedPolicy(o.onMalformed),
	}, func(m *flatten.MalformedRecordError) {
		malformed++
		log.Debug("flatten: malformed cell", zap.String("column", m.Column), zap.Int("row", m.Row), zap.Error(m.Err))
	})
	if err != nil {
		return err
	}
	flat, err := flatten.New(flatten.Options{NullPolicy: flatten.NullPolicy(o.nullPolicy), Logger: log}).Flatten(decoded)
	if err != nil {
		return err
	}
	log.Info("flatten: done",
		zap.String("dir", o.dir),
		zap.Int("files", st.Files),
		zap.Int("rows_in", t.Len()),
		zap.Int("rows_out", flat.Len()),
		zap.Int("columns", flat.Width()),
		zap.Int("malformed_cells", malformed))

	if err := writeTable(w, format, flat); err != nil {
		return err
	}

	if o.storageKind != "" {
		_, _, err := storeTable(ctx, config.Storage{
			Kind: o.storageKind,
			DB:   config.DBConfig{DSN: o.dsn, Table: o.table, AutoCreateTable: o.autoCreate},
		}, flat, getenvInt("ADINSIGHTS_BATCH_SIZE", 5000), log)
		return err
	}
	return nil
}

func writeTable(w io.Writer, format string, t *table.Table) error {
	if format == report.FormatJSON {
		return report.WriteJSON(w, &report.Result{Name: "flatten", Table: t})
	}
	return report.WriteCSV(w, t)
}
