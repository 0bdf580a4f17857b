package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"adinsights/internal/report"
)

type rankDiffOptions struct {
	fileA, fileB string
	limit        int
	listOnly     bool
	reverse      bool
}

func newRankDiffCmd() *cobra.Command {
	var o rankDiffOptions
	cmd := &cobra.Command{
		Use:   "rank-diff",
		Short: "Compare two term files and print the terms most typical of each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRankDiff(o, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&o.fileA, "file-a", "a", "", "first term file")
	cmd.Flags().StringVarP(&o.fileB, "file-b", "b", "", "second term file")
	cmd.Flags().IntVarP(&o.limit, "num-terms", "n", 20, "terms to print per list")
	cmd.Flags().BoolVarP(&o.listOnly, "list-only", "l", false, "print only the terms most typical of the first file")
	cmd.Flags().BoolVarP(&o.reverse, "reverse", "r", false, "print the terms on the other side of zero instead")
	_ = cmd.MarkFlagRequired("file-a")
	_ = cmd.MarkFlagRequired("file-b")
	return cmd
}

func runRankDiff(o rankDiffOptions, w io.Writer) error {
	a, err := readTermFile(o.fileA)
	if err != nil {
		return err
	}
	b, err := readTermFile(o.fileB)
	if err != nil {
		return err
	}
	diffs := report.RankDifference(a, b)

	if o.listOnly {
		for _, d := range report.DescriptiveA(diffs, report.RankDiffOptions{Limit: o.limit}) {
			fmt.Fprintln(w, d.Term)
		}
		return nil
	}

	opt := report.RankDiffOptions{Limit: o.limit, Reverse: o.reverse}
	if err := printDiffs(w, o.fileA, report.DescriptiveA(diffs, opt)); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return printDiffs(w, o.fileB, report.DescriptiveB(diffs, opt))
}

func printDiffs(w io.Writer, name string, diffs []report.TermDiff) error {
	fmt.Fprintf(w, "Descriptive terms for %s:\n", name)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "term\tdiff\tfreq_a\tfreq_b")
	for _, d := range diffs {
		fmt.Fprintf(tw, "%s\t%.4f\t%d\t%d\n", d.Term, d.Diff, d.FreqA, d.FreqB)
	}
	return tw.Flush()
}

func readTermFile(path string) ([]report.TermCount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open term file: %w", err)
	}
	defer f.Close()
	terms, err := report.ReadTerms(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return terms, nil
}
