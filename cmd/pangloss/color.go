package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pangloss/internal/resolve"
)

// applyColor applies the --color flag before configuration is loaded so
// that early errors honor it too.
func applyColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	return applyColorMode(mode)
}

// applyColorMode sets the global color switch. "auto" keeps the terminal
// detection done by fatih/color.
func applyColorMode(mode string) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return &resolve.UsageError{Msg: fmt.Sprintf("invalid --color value %q (expected auto|on|off)", mode)}
	}
	return nil
}

func useColor() bool { return !color.NoColor }
