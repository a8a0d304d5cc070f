package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"

	"pangloss/internal/classify"
	"pangloss/internal/driver"
	"pangloss/internal/model"
)

// resultWriter renders classification results in input order.
type resultWriter interface {
	Write(r driver.Result) error
	Close() error
}

// newResultWriter picks a writer for format. table names the scores
// reported by --explain.
func newResultWriter(w io.Writer, format string, policy classify.Policy, table *model.Table, colored bool) (resultWriter, error) {
	switch format {
	case "csv", "":
		return &csvWriter{w: w, policy: policy}, nil
	case "json":
		return &jsonWriter{enc: json.NewEncoder(w), policy: policy, table: table}, nil
	case "pretty":
		return &prettyWriter{w: w, policy: policy, table: table, colored: colored}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (must be csv, json or pretty)", format)
	}
}

// csvWriter prints "<filename>,<label>,<confidence>".
type csvWriter struct {
	w      io.Writer
	policy classify.Policy
}

func (c *csvWriter) Write(r driver.Result) error {
	_, err := fmt.Fprintf(c.w, "%s,%s,%s\n", r.Input.Path, r.Label, r.FormatConfidence(c.policy))
	return err
}

func (c *csvWriter) Close() error { return nil }

type jsonScore struct {
	Label string   `json:"label"`
	Score *float64 `json:"score"`
}

type jsonResult struct {
	Index      int         `json:"index"`
	File       string      `json:"file"`
	Ext        string      `json:"ext"`
	Label      string      `json:"label"`
	Confidence string      `json:"confidence"`
	Best       *float64    `json:"best"`
	Second     *float64    `json:"second"`
	Tokens     int         `json:"tokens"`
	Cached     bool        `json:"cached,omitempty"`
	Scores     []jsonScore `json:"scores,omitempty"`
}

// jsonWriter prints one object per line.
type jsonWriter struct {
	enc    *json.Encoder
	policy classify.Policy
	table  *model.Table
}

func (j *jsonWriter) Write(r driver.Result) error {
	out := jsonResult{
		Index:      r.Pos,
		File:       r.Input.Path,
		Ext:        r.Input.Ext,
		Label:      r.Label,
		Confidence: r.FormatConfidence(j.policy),
		Best:       finite(r.Best),
		Second:     finite(r.Second),
		Tokens:     r.Tokens,
		Cached:     r.Cached,
	}
	for i, sc := range r.Scores {
		out.Scores = append(out.Scores, jsonScore{Label: labelAt(j.table, i), Score: finite(sc)})
	}
	return j.enc.Encode(out)
}

func (j *jsonWriter) Close() error { return nil }

// finite maps infinities and NaN to null.
func finite(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

func labelAt(t *model.Table, i int) string {
	if t == nil || i >= t.Len() {
		return fmt.Sprintf("#%d", i)
	}
	return t.At(i).Label
}

var (
	labelColor    = color.New(color.FgCyan, color.Bold)
	cachedColor   = color.New(color.FgHiBlack)
	lowConfColor  = color.New(color.FgYellow)
	highConfColor = color.New(color.FgGreen)
)

// labelWidth fits the longest built-in label, "Objective-C".
const labelWidth = 11

// prettyWriter prints aligned, optionally colored rows.
type prettyWriter struct {
	w       io.Writer
	policy  classify.Policy
	colored bool
	table   *model.Table
}

func (p *prettyWriter) paint(c *color.Color, s string) string {
	if !p.colored {
		return s
	}
	return c.Sprint(s)
}

func (p *prettyWriter) Write(r driver.Result) error {
	label := fmt.Sprintf("%-*s", labelWidth, r.Label)
	conf := fmt.Sprintf("%14s", r.FormatConfidence(p.policy))
	confColor := highConfColor
	if v, ok := r.ConfidenceValue(p.policy); !ok || v < 0 {
		confColor = lowConfColor
	}
	line := fmt.Sprintf("%s %s  %s", p.paint(labelColor, label), p.paint(confColor, conf), r.Input.Path)
	if r.Cached {
		line += p.paint(cachedColor, " (cached)")
	}
	if _, err := fmt.Fprintln(p.w, line); err != nil {
		return err
	}
	if len(r.Scores) == 0 {
		return nil
	}
	var sb strings.Builder
	for i, sc := range r.Scores {
		marker := " "
		if i == r.Index {
			marker = "*"
		}
		fmt.Fprintf(&sb, "    %s %-*s %s\n", marker, labelWidth, labelAt(p.table, i), classify.FormatFloat(sc))
	}
	_, err := io.WriteString(p.w, sb.String())
	return err
}

func (p *prettyWriter) Close() error { return nil }
