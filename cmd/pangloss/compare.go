package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pangloss/internal/crosscheck"
	"pangloss/internal/driver"
)

// newCompareCmd classifies like the root command and sets go-enry's guess
// next to each label.
func newCompareCmd() *cobra.Command {
	var opts *classifyOptions
	cmd := &cobra.Command{
		Use:   "compare { filename [--ext=XYZ] } | --batch=FILE",
		Short: "Classify files and compare with go-enry (GitHub Linguist)",
		Long: `Compare classifies the inputs and prints, per file,
"<filename>,<label>,<linguist language>,<agree|disagree|unknown>".
An agreement summary goes to stderr.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, args, opts)
		},
	}
	opts = &classifyOptions{ext: newExtFlag(cmd.Flags())}
	cmd.Flags().Var(opts.ext, "ext", "override the extension hint of the preceding filename")
	cmd.Flags().StringVar(&opts.batch, "batch", "", "read \"filename[,extension]\" lines from FILE")
	return cmd
}

func runCompare(cmd *cobra.Command, args []string, opts *classifyOptions) error {
	s := newSession(cmd)
	var summary crosscheck.Summary
	defer func() { s.close(cmd, fmt.Sprintf("%d files", summary.Total)) }()

	inputs, err := resolveInputs(cmd.Context(), args, opts)
	if err != nil {
		return err
	}
	if err := s.open(cmd); err != nil {
		return err
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	emit := func(r driver.Result) error {
		// #nosec G304 -- the driver just read the same path
		content, err := os.ReadFile(r.Input.Path)
		if err != nil {
			return &driver.FileError{Index: r.Pos, Path: r.Input.Path, Err: err}
		}
		guess := crosscheck.Detect(r.Input.Path, content, r.Input.Ext)
		summary.Add(r.Label, guess)
		verdict := "unknown"
		if guess.Known() {
			verdict = "disagree"
			if crosscheck.Agrees(r.Label, guess.Language) {
				verdict = "agree"
			}
		}
		lang := guess.Language
		if lang == "" {
			lang = "-"
		}
		_, err = fmt.Fprintf(out, "%s,%s,%s,%s\n", r.Input.Path, r.Label, lang, verdict)
		return err
	}

	runErr := driver.Run(cmd.Context(), inputs, s.driverOptions(), emit)
	if err := out.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	if summary.Total > 0 {
		printCompareSummary(cmd, summary)
	}
	return runErr
}

func printCompareSummary(cmd *cobra.Command, s crosscheck.Summary) {
	var b strings.Builder
	fmt.Fprintf(&b, "compared %d files: %d agree, %d disagree, %d unknown", s.Total, s.Agree, s.Disagree, s.Unknown)
	if s.Agree+s.Disagree > 0 {
		fmt.Fprintf(&b, " (%.1f%% agreement)", 100*s.Rate())
	}
	fmt.Fprintln(cmd.ErrOrStderr(), b.String())
}
