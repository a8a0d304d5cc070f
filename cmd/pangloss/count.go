package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pangloss/internal/freq"
	"pangloss/internal/histogram"
	"pangloss/internal/token"
)

type countOptions struct {
	top        int
	ignore     []string
	format     string
	label      string
	extensions []string
}

// newCountCmd builds the frequency-table builder: it ranks the tokens of
// stdin (or the named files) for pasting into a model table.
func newCountCmd() *cobra.Command {
	opts := &countOptions{}
	cmd := &cobra.Command{
		Use:   "count [flags] [file...]",
		Short: "Print the most frequent tokens of the input",
		Long: `Count reads stdin, or every named file in turn, and prints its most
frequent whitespace-separated tokens in descending count order. Ties keep
first-seen order. --format=toml prints a [[language]] table for --models.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, args, opts)
		},
	}
	cmd.Flags().IntVar(&opts.top, "top", freq.DefaultLimit, "number of ranks to keep")
	cmd.Flags().StringSliceVar(&opts.ignore, "ignore", nil, "tokens to drop after ranking")
	cmd.Flags().StringVar(&opts.format, "format", "literal", "output format (literal|toml)")
	cmd.Flags().StringVar(&opts.label, "label", "Unnamed", "language label for --format=toml")
	cmd.Flags().StringSliceVar(&opts.extensions, "extensions", nil, "extension hints for --format=toml, e.g. .rb,.rake")
	return cmd
}

func runCount(cmd *cobra.Command, args []string, opts *countOptions) error {
	format := strings.ToLower(opts.format)
	if format != "literal" && format != "toml" {
		return fmt.Errorf("unsupported format %q (must be literal or toml)", opts.format)
	}
	if opts.top <= 0 {
		return fmt.Errorf("--top must be positive, got %d", opts.top)
	}

	h := histogram.New()
	if len(args) == 0 {
		if err := countInto(h, cmd.InOrStdin()); err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
	}
	for _, path := range args {
		if err := countFile(h, path); err != nil {
			return err
		}
	}

	entries := freq.Top(h, freq.Options{Limit: opts.top, Ignore: opts.ignore})
	out := bufio.NewWriter(cmd.OutOrStdout())
	var err error
	if format == "toml" {
		err = freq.WriteTOML(out, opts.label, opts.extensions, entries)
	} else {
		err = freq.WriteLiteral(out, entries)
	}
	if err != nil {
		return err
	}
	return out.Flush()
}

func countFile(h *histogram.Histogram, path string) (err error) {
	// #nosec G304 -- path comes from the command line
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := countInto(h, f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func countInto(h *histogram.Histogram, r io.Reader) error {
	sc := token.NewScanner(r)
	for sc.Scan() {
		h.Add(sc.Text())
	}
	return sc.Err()
}
