// Package driver runs the classifier over resolved inputs and hands back
// results in input order.
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pangloss/internal/cache"
	"pangloss/internal/classify"
	"pangloss/internal/histogram"
	"pangloss/internal/observ"
	"pangloss/internal/resolve"
	"pangloss/internal/trace"
)

// Options configures Run.
type Options struct {
	Engine *classify.Engine
	// Jobs bounds concurrent files. 1 processes strictly in order; 0 or
	// less uses GOMAXPROCS.
	Jobs int
	// Policy is part of the cache key and of the traced confidence.
	Policy classify.Policy
	// Explain keeps every language's score. Explained runs bypass the cache.
	Explain bool
	Cache   cache.Cache
	Sink    ProgressSink
	Timer   *observ.Timer
}

// Result is the classification of one input.
type Result struct {
	classify.Result
	Input  resolve.Input
	Pos    int // position in the input list
	Tokens int
	Cached bool
}

// EmitFunc receives results in input order. An error stops the run.
type EmitFunc func(Result) error

// Run classifies inputs and calls emit once per input, in input order.
// When an input cannot be read, every input before it is still emitted and
// Run returns a *FileError for it; later inputs are not emitted.
func Run(ctx context.Context, inputs []resolve.Input, opts Options, emit EmitFunc) error {
	if opts.Engine == nil {
		return errors.New("driver: missing engine")
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.Cache == nil || opts.Explain {
		opts.Cache = cache.Nop{}
	}
	for i, in := range inputs {
		opts.Sink.OnEvent(Event{Index: i, File: in.Path, Stage: StageRead, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	if jobs == 1 || len(inputs) <= 1 {
		return runSequential(ctx, inputs, opts, emit)
	}
	return runParallel(ctx, inputs, opts, min(jobs, len(inputs)), emit)
}

func runSequential(ctx context.Context, inputs []resolve.Input, opts Options, emit EmitFunc) error {
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := classifyOne(ctx, i, in, opts)
		if err != nil {
			return err
		}
		if err := emit(res); err != nil {
			return err
		}
	}
	return nil
}

// runParallel fans files out to a bounded pool. Finished results are
// flushed to emit as soon as every earlier input has been flushed.
func runParallel(ctx context.Context, inputs []resolve.Input, opts Options, jobs int, emit EmitFunc) error {
	var (
		mu      sync.Mutex
		results = make([]*Result, len(inputs))
		errs    = make([]error, len(inputs))
		next    int
		emitErr error
	)
	var firstFail atomic.Int64
	firstFail.Store(int64(len(inputs)))

	markFailed := func(i int) {
		for {
			cur := firstFail.Load()
			if int64(i) >= cur || firstFail.CompareAndSwap(cur, int64(i)) {
				return
			}
		}
	}

	// flush emits the ready prefix. Callers hold mu.
	flush := func() error {
		if emitErr != nil {
			return emitErr
		}
		for next < len(results) && results[next] != nil {
			if err := emit(*results[next]); err != nil {
				emitErr = err
				return err
			}
			results[next] = nil
			next++
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, in := range inputs {
		if int64(i) > firstFail.Load() {
			opts.Sink.OnEvent(Event{Index: i, File: in.Path, Stage: StageRead, Status: StatusSkipped})
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if int64(i) > firstFail.Load() {
				opts.Sink.OnEvent(Event{Index: i, File: in.Path, Stage: StageRead, Status: StatusSkipped})
				return nil
			}
			res, err := classifyOne(gctx, i, in, opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var fe *FileError
				if !errors.As(err, &fe) {
					return err
				}
				errs[i] = err
				markFailed(i)
				return nil
			}
			results[i] = &res
			return flush()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if fail := int(firstFail.Load()); fail < len(inputs) {
		return errs[fail]
	}
	return nil
}

func classifyOne(ctx context.Context, i int, in resolve.Input, opts Options) (Result, error) {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeFile, "file:"+in.Path, trace.SpanFromContext(ctx))
	started := time.Now()
	sink := opts.Sink
	sink.OnEvent(Event{Index: i, File: in.Path, Stage: StageRead, Status: StatusWorking})

	res, err := classifyFile(ctx, i, in, opts)
	elapsed := time.Since(started)
	if opts.Timer != nil {
		opts.Timer.Add("classify", elapsed)
	}
	if err != nil {
		span.End(err.Error())
		sink.OnEvent(Event{Index: i, File: in.Path, Stage: StageRead, Status: StatusError, Err: err, Elapsed: elapsed})
		return Result{}, err
	}

	span.WithExtra("label", res.Label).
		WithExtra("confidence", res.FormatConfidence(opts.Policy)).
		WithExtra("tokens", strconv.Itoa(res.Tokens)).
		WithExtra("cached", strconv.FormatBool(res.Cached))
	span.End("")
	stage := StageScore
	if res.Cached {
		stage = StageCache
	}
	sink.OnEvent(Event{Index: i, File: in.Path, Stage: stage, Status: StatusDone, Label: res.Label, Elapsed: elapsed})
	return res, nil
}

func classifyFile(ctx context.Context, i int, in resolve.Input, opts Options) (Result, error) {
	if _, isNop := opts.Cache.(cache.Nop); isNop {
		h, err := histogram.ReadFile(in.Path)
		if err != nil {
			return Result{}, &FileError{Index: i, Path: in.Path, Err: unwrapPath(err)}
		}
		return score(i, in, h, opts), nil
	}

	// #nosec G304 -- input paths come from the command line or batch file
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return Result{}, &FileError{Index: i, Path: in.Path, Err: unwrapPath(err)}
	}
	key := cache.NewKey(data, in.Ext, opts.Engine.Table().Digest(), opts.Policy.String())
	entry, ok, err := opts.Cache.Get(ctx, key)
	if err != nil {
		trace.Point(trace.FromContext(ctx), trace.ScopeFile, "cache-get", err.Error(), 0)
	}
	if ok && err == nil {
		return Result{
			Result: classify.Result{Index: entry.Index, Label: entry.Label, Best: entry.Best, Second: entry.Second},
			Input:  in,
			Pos:    i,
			Tokens: entry.Tokens,
			Cached: true,
		}, nil
	}

	h, err := histogram.Read(bytes.NewReader(data))
	if err != nil {
		return Result{}, &FileError{Index: i, Path: in.Path, Err: err}
	}
	res := score(i, in, h, opts)
	putErr := opts.Cache.Put(ctx, key, cache.Entry{
		Index:  res.Index,
		Label:  res.Label,
		Best:   res.Best,
		Second: res.Second,
		Tokens: res.Tokens,
	})
	if putErr != nil {
		trace.Point(trace.FromContext(ctx), trace.ScopeFile, "cache-put", putErr.Error(), 0)
	}
	return res, nil
}

func score(i int, in resolve.Input, h *histogram.Histogram, opts Options) Result {
	var cr classify.Result
	if opts.Explain {
		cr = opts.Engine.Explain(h, in.Ext)
	} else {
		cr = opts.Engine.Classify(h, in.Ext)
	}
	return Result{Result: cr, Input: in, Pos: i, Tokens: h.Total()}
}

// unwrapPath drops the "read <path>:" prefix so FileError does not repeat the path.
func unwrapPath(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return fmt.Errorf("%s: %w", pe.Op, pe.Err)
	}
	return err
}
