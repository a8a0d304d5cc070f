package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"pangloss/internal/driver"
	"pangloss/internal/resolve"
	"pangloss/internal/ui"
)

// runWithUI runs the driver while a progress view draws on stderr. Results
// still go through emit in input order.
func runWithUI(ctx context.Context, title string, inputs []resolve.Input, dopts driver.Options, emit driver.EmitFunc, stderr io.Writer) error {
	events := make(chan driver.Event, 256)
	outcome := make(chan error, 1)

	go func() {
		opts := dopts
		opts.Sink = driver.ChannelSink{Ch: events}
		outcome <- driver.Run(ctx, inputs, opts, emit)
		close(events)
	}()

	files := make([]string, len(inputs))
	for i, in := range inputs {
		files[i] = in.Path
	}
	program := tea.NewProgram(ui.NewProgressModel(title, files, events), tea.WithOutput(stderr), tea.WithInput(nil))
	_, uiErr := program.Run()
	// the view may quit early; keep draining so workers never block on send
	go func() {
		for range events {
		}
	}()
	runErr := <-outcome
	if runErr != nil {
		return runErr
	}
	return uiErr
}
