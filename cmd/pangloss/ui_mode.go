package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pangloss/internal/resolve"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "auto":
		return uiModeAuto, nil
	case "", "off":
		return uiModeOff, nil
	case "on":
		return uiModeOn, nil
	default:
		return "", &resolve.UsageError{Msg: fmt.Sprintf("invalid --ui value %q (expected auto|on|off)", value)}
	}
}

// shouldUseTUI reports whether the progress view should run. The view draws
// on stderr, so auto checks stderr rather than stdout.
func shouldUseTUI(cmd *cobra.Command, value string) bool {
	mode, err := readUIMode(value)
	if err != nil {
		return false
	}
	switch mode {
	case uiModeOn:
		return true
	case uiModeAuto:
		f, ok := cmd.ErrOrStderr().(*os.File)
		return ok && isTerminal(f)
	default:
		return false
	}
}
