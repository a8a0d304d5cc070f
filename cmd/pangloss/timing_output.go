package main

import (
	"fmt"
	"io"

	"pangloss/internal/observ"
)

// printTimings writes one line per phase followed by the total.
func printTimings(out io.Writer, timer *observ.Timer) {
	if out == nil || timer == nil {
		return
	}
	report := timer.Report()
	for _, p := range report.Phases {
		line := fmt.Sprintf("%-12s %8.1f ms", p.Name, p.DurationMS)
		if p.Count > 1 {
			line += fmt.Sprintf("  x%d", p.Count)
		}
		if p.Note != "" {
			line += "  (" + p.Note + ")"
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%-12s %8.1f ms\n", "total", report.TotalMS)
}
