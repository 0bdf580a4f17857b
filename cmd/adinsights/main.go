// Command adinsights turns ad-library CSV exports into report tables.
//
//	adinsights run --config pipelines/demographics.yaml
//	adinsights flatten --dir data/democrats --json-column demographic_distribution
//	adinsights rank-diff -a dem-3-counts.txt -b rep-3-counts.txt -n 30
//	adinsights validate --config pipelines/terms.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// register all backends with the storage factory.
	_ "adinsights/internal/storage/all"

	"adinsights/internal/report"
)

var (
	verbose bool
	logger  = zap.NewNop()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adinsights",
		Short:         "Flatten political ad-library exports and build reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(
		newRunCmd(),
		newFlattenCmd(),
		newRankDiffCmd(),
		newValidateCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, newRootCmd())
	stop()
	os.Exit(code)
}

// execute runs root and maps the outcome to an exit code. An empty report
// is not a failure: its message is printed and the code is 0.
func execute(ctx context.Context, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, report.ErrNoResults):
		fmt.Fprintln(root.OutOrStdout(), report.ErrNoResults.Error())
		return 0
	default:
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return 1
	}
}
