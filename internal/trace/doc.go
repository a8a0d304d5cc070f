// Package trace records what a pangloss run spends its time on.
//
// A run opens one driver span ("run"), pass spans for input resolution and
// model loading, and one file span per classified input. File spans carry the
// chosen label, the confidence and the token count as extras.
//
// Events never go to stdout, which carries classification results:
//
//	pangloss --trace=- --trace-level=detail a.py b.rb
//	pangloss --trace=run.ndjson --trace-mode=both --batch=list.txt
//
// Tracers travel through the pipeline on the context:
//
//	ctx = trace.WithTracer(ctx, tr)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "load-models", 0)
//	defer span.End("")
package trace
