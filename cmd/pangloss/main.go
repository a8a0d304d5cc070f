package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pangloss/internal/driver"
	"pangloss/internal/resolve"
	"pangloss/internal/version"
)

const rootLong = `pangloss determines the programming language a file is written in.

It scores the file's whitespace-separated tokens against token frequency
tables for eleven languages and uses the file extension only as a hint.
The --ext argument overrides the extension of the filename just before it.
With --batch, the named file lists one "filename[,extension]" per line.`

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "pangloss { filename [--ext=XYZ] } | --batch=FILE",
		Short:             "Guess the programming language of source files",
		Long:              rootLong,
		Version:           version.Version,
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: setupRun,
	}
	opts := addClassifyFlags(root)
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runClassify(cmd, args, opts)
	}

	root.AddCommand(newCountCmd())
	root.AddCommand(newTokenizeCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newCompareCmd())
	root.AddCommand(newVersionCmd())

	registerPersistentFlags(root)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &resolve.UsageError{Msg: err.Error()}
	})
	return root
}

// cleanups run in reverse order after the command returns, including on error.
var cleanups []func()

func addCleanup(fn func()) { cleanups = append(cleanups, fn) }

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// main registers subcommands and persistent flags and executes the root
// command. Any error exits with status 1; usage errors also print usage.
func main() {
	os.Exit(execute(newRootCmd(), os.Args[1:], os.Stderr))
}

// execute runs root with args and returns the process exit code.
func execute(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	cmd, err := root.ExecuteC()
	if err != nil {
		dumpTraceRing(stderr)
	}
	runCleanups()
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "pangloss: %v\n", err)
	if resolve.IsUsage(err) {
		if cmd == nil {
			cmd = root
		}
		fmt.Fprint(stderr, cmd.UsageString())
		return 1
	}
	var fe *driver.FileError
	if errors.As(err, &fe) && fe.Index > 0 {
		fmt.Fprintf(stderr, "pangloss: stopped at input #%d; earlier results were printed\n", fe.Index+1)
	}
	return 1
}

func registerPersistentFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pangloss.toml or $XDG_CONFIG_HOME/pangloss/pangloss.toml)")
	pf.String("env-file", "", "dotenv file to load before reading PANGLOSS_* variables (default: .env if present)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("ui", "off", "show a progress view on stderr (auto|on|off)")
	pf.Bool("timings", false, "print phase timings to stderr")

	pf.Int("jobs", 1, "files classified concurrently (0 = one per CPU); output order is unchanged")
	pf.String("models", "", "model table TOML file (default: built-in 11-language table)")
	pf.String("confidence", "literal", "confidence when no runner-up exists (literal|guarded)")
	pf.String("cache", "off", "result cache (off|memory|disk|redis)")
	pf.String("cache-dir", "", "disk cache directory (default: $XDG_CACHE_HOME/pangloss)")
	pf.Int("cache-size", 4096, "memory cache entry limit")
	pf.String("redis-url", "", "redis cache url, e.g. redis://localhost:6379/0")
	pf.Duration("redis-ttl", 0, "expiry of redis cache entries (0 = never)")
	pf.Bool("cache-clear", false, "drop every disk cache entry before classifying")

	pf.String("trace", "", "write trace events to file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept in ring mode")
	pf.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 = off)")

	pf.String("cpu-profile", "", "write a CPU profile to file")
	pf.String("mem-profile", "", "write a heap profile to file")
	pf.String("runtime-trace", "", "write a Go runtime trace to file")
}

// setupRun applies --color and starts tracing and profiling for every command.
func setupRun(cmd *cobra.Command, _ []string) error {
	if err := applyColor(cmd); err != nil {
		return err
	}
	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	addCleanup(traceCleanup)
	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	addCleanup(profCleanup)
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
