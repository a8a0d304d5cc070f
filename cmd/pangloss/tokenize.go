package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pangloss/internal/token"
)

type tokenRecord struct {
	Index int    `json:"index"`
	Line  int    `json:"line"`
	Text  string `json:"text"`
}

func newTokenizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokenize [flags] file",
		Short: "Print the tokens a file is scored on",
		Long:  `Tokenize splits a file into the whitespace-separated tokens the classifier counts`,
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenize,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

func runTokenize(cmd *cobra.Command, args []string) (err error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	// #nosec G304 -- path comes from the command line
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	out := bufio.NewWriter(cmd.OutOrStdout())
	if format == "json" {
		err = formatTokensJSON(out, token.NewScanner(f))
	} else {
		err = formatTokensPretty(out, token.NewScanner(f))
	}
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}
	return out.Flush()
}

var lineColor = color.New(color.FgHiBlack)

func formatTokensPretty(w io.Writer, sc *token.Scanner) error {
	n := 0
	for sc.Scan() {
		if _, err := fmt.Fprintf(w, "%s %5d  %s\n", lineColor.Sprintf("%5d", sc.Line()), n, sc.Text()); err != nil {
			return err
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d tokens\n", n)
	return err
}

func formatTokensJSON(w io.Writer, sc *token.Scanner) error {
	records := []tokenRecord{}
	for sc.Scan() {
		records = append(records, tokenRecord{Index: len(records), Line: sc.Line(), Text: sc.Text()})
	}
	if err := sc.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
