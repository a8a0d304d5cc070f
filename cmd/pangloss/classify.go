package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pangloss/internal/cache"
	"pangloss/internal/classify"
	"pangloss/internal/config"
	"pangloss/internal/driver"
	"pangloss/internal/model"
	"pangloss/internal/observ"
	"pangloss/internal/resolve"
	"pangloss/internal/trace"
)

type classifyOptions struct {
	ext     *extFlag
	batch   string
	explain bool
}

func addClassifyFlags(cmd *cobra.Command) *classifyOptions {
	opts := &classifyOptions{ext: newExtFlag(cmd.Flags())}
	cmd.Flags().Var(opts.ext, "ext", "override the extension hint of the preceding filename")
	cmd.Flags().StringVar(&opts.batch, "batch", "", "read \"filename[,extension]\" lines from FILE")
	cmd.Flags().String("format", "csv", "output format (csv|json|pretty)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "include every language's score (json|pretty)")
	return opts
}

// session is everything a classifying command needs after configuration.
type session struct {
	cfg    *config.Config
	engine *classify.Engine
	cache  cache.Cache
	timer  *observ.Timer
	span   *trace.Span
}

// newSession opens the "run" span and starts the phase timer. Call open
// next and close when done, even after errors.
func newSession(cmd *cobra.Command) *session {
	ctx := cmd.Context()
	s := &session{timer: observ.NewTimer()}
	s.span = trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "run", 0)
	cmd.SetContext(trace.WithSpan(ctx, s.span.ID()))
	return s
}

// open loads configuration and the model table, and opens the cache.
func (s *session) open(cmd *cobra.Command) error {
	ctx := cmd.Context()
	tr := trace.FromContext(ctx)

	idx := s.timer.Begin("config")
	cfg, err := loadConfig(cmd)
	s.timer.End(idx, "")
	if err != nil {
		return err
	}
	s.cfg = cfg
	if err := applyColorMode(cfg.Color); err != nil {
		return err
	}

	idx = s.timer.Begin("load-models")
	span := trace.Begin(tr, trace.ScopePass, "load-models", s.span.ID())
	table, err := loadTable(cfg.Models)
	span.End(cfg.Models)
	s.timer.End(idx, fmt.Sprintf("%d languages", tableLen(table)))
	if err != nil {
		return err
	}
	s.engine = classify.New(table)

	c, err := cache.Open(ctx, cfg.CacheConfig())
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	s.cache = c
	if drop, _ := cmd.Flags().GetBool("cache-clear"); drop {
		dropped, err := cache.Clear(c)
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		if !dropped && cfg.CacheConfig().Mode == cache.ModeRedis {
			fmt.Fprintln(cmd.ErrOrStderr(), "pangloss: --cache-clear has no effect on the redis cache")
		}
	}
	return nil
}

func (s *session) close(cmd *cobra.Command, detail string) {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "pangloss: cache close: %v\n", err)
		}
	}
	s.span.End(detail)
	if s.cfg != nil && s.cfg.Timings {
		printTimings(cmd.ErrOrStderr(), s.timer)
	}
}

func (s *session) driverOptions() driver.Options {
	return driver.Options{
		Engine: s.engine,
		Jobs:   s.cfg.Jobs,
		Policy: s.cfg.Policy(),
		Cache:  s.cache,
		Timer:  s.timer,
	}
}

func tableLen(t *model.Table) int {
	if t == nil {
		return 0
	}
	return t.Len()
}

func loadTable(path string) (*model.Table, error) {
	if path == "" {
		return model.Builtin()
	}
	return model.LoadFile(path)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	root := cmd.Root()
	file, err := root.PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	envFile, err := root.PersistentFlags().GetString("env-file")
	if err != nil {
		return nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}
	return config.NewLoader().Load(config.Options{
		File:    file,
		EnvFile: envFile,
		Flags:   configFlags(cmd),
	})
}

// configFlags collects the flags that feed configuration keys: every
// persistent flag, plus the root command's own flags when it is the one
// running. Subcommand flags that share a key name, such as count --format,
// stay out.
func configFlags(cmd *cobra.Command) *pflag.FlagSet {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.AddFlagSet(cmd.Root().PersistentFlags())
	if cmd == cmd.Root() {
		fs.AddFlagSet(cmd.LocalNonPersistentFlags())
	}
	return fs
}

func runClassify(cmd *cobra.Command, args []string, opts *classifyOptions) error {
	s := newSession(cmd)
	count := 0
	defer func() { s.close(cmd, strconv.Itoa(count)+" files") }()

	idx := s.timer.Begin("resolve")
	inputs, err := resolveInputs(cmd.Context(), args, opts)
	s.timer.End(idx, fmt.Sprintf("%d inputs", len(inputs)))
	if err != nil {
		return err
	}
	if err := s.open(cmd); err != nil {
		return err
	}
	ctx := cmd.Context()

	out := bufio.NewWriter(cmd.OutOrStdout())
	w, err := newResultWriter(out, s.cfg.Format, s.cfg.Policy(), s.engine.Table(), useColor())
	if err != nil {
		return err
	}
	dopts := s.driverOptions()
	dopts.Explain = opts.explain

	emit := func(r driver.Result) error {
		count++
		return w.Write(r)
	}

	var runErr error
	if shouldUseTUI(cmd, s.cfg.UI) {
		runErr = runWithUI(ctx, "classifying", inputs, dopts, emit, cmd.ErrOrStderr())
	} else {
		runErr = driver.Run(ctx, inputs, dopts, emit)
	}
	if err := w.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if err := out.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// resolveInputs turns the command line into the input list. Usage problems
// come back as *resolve.UsageError.
func resolveInputs(ctx context.Context, args []string, opts *classifyOptions) ([]resolve.Input, error) {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopePass, "resolve", trace.SpanFromContext(ctx))
	inputs, err := resolve.Resolve(resolve.Options{
		Files:     args,
		Overrides: opts.ext.overrides,
		Batch:     opts.batch,
	})
	span.WithExtra("inputs", strconv.Itoa(len(inputs)))
	span.End("")
	return inputs, err
}
