package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pangloss/internal/model"
	"pangloss/internal/resolve"
)

type modelInfo struct {
	Index      int      `json:"index"`
	Label      string   `json:"label"`
	Extensions []string `json:"extensions"`
	Vocabulary int      `json:"vocabulary"`
	Total      uint64   `json:"total"`
}

type modelsPayload struct {
	Source    string      `json:"source"`
	Digest    string      `json:"digest"`
	Default   float64     `json:"default"`
	Prior     float64     `json:"prior"`
	Languages []modelInfo `json:"languages"`
}

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the language models in tie-break order",
		Args:  cobra.NoArgs,
		RunE:  runModels,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json|toml|source)")
	return cmd
}

func runModels(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	table, err := loadTable(cfg.Models)
	if err != nil {
		return err
	}
	source := cfg.Models
	if source == "" {
		source = "built-in"
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	switch strings.ToLower(format) {
	case "pretty":
		err = renderModelsPretty(out, source, table)
	case "json":
		err = renderModelsJSON(out, source, table)
	case "toml":
		err = model.Encode(out, table)
	case "source":
		err = writeModelsSource(out, cfg.Models)
	default:
		return &resolve.UsageError{Msg: fmt.Sprintf("unsupported format %q (must be pretty, json, toml or source)", format)}
	}
	if err != nil {
		return err
	}
	return out.Flush()
}

// writeModelsSource copies the table's TOML as written, comments included.
func writeModelsSource(w io.Writer, path string) error {
	if path == "" {
		_, err := w.Write(model.BuiltinSource())
		return err
	}
	// #nosec G304 -- path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model table: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func collectModels(table *model.Table) []modelInfo {
	infos := make([]modelInfo, 0, table.Len())
	for _, l := range table.Languages() {
		exts := l.Extensions
		if exts == nil {
			exts = []string{}
		}
		infos = append(infos, modelInfo{
			Index:      l.ID,
			Label:      l.Label,
			Extensions: exts,
			Vocabulary: l.VocabularySize(),
			Total:      l.Total(),
		})
	}
	return infos
}

var headerColor = color.New(color.Bold)

func renderModelsPretty(w io.Writer, source string, table *model.Table) error {
	p := message.NewPrinter(language.English)
	digest := table.Digest()
	fmt.Fprintf(w, "%s %s  digest %s  default %s  prior %s\n",
		headerColor.Sprint("table"), source, hex.EncodeToString(digest[:6]),
		formatModelFloat(table.Default()), formatModelFloat(table.Prior()))
	fmt.Fprintln(w, headerColor.Sprintf("%3s  %-12s %-28s %10s %14s", "#", "label", "extensions", "vocabulary", "total"))
	for _, info := range collectModels(table) {
		total := "-"
		if info.Total > 0 {
			total = p.Sprintf("%d", info.Total)
		}
		if _, err := fmt.Fprintf(w, "%3d  %-12s %-28s %10s %14s\n",
			info.Index, info.Label, strings.Join(info.Extensions, " "),
			p.Sprintf("%d", info.Vocabulary), total); err != nil {
			return err
		}
	}
	return nil
}

func renderModelsJSON(w io.Writer, source string, table *model.Table) error {
	digest := table.Digest()
	payload := modelsPayload{
		Source:    source,
		Digest:    hex.EncodeToString(digest[:]),
		Default:   table.Default(),
		Prior:     table.Prior(),
		Languages: collectModels(table),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func formatModelFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
