// Package classify scores token histograms against a model.Table and picks
// the most likely language.
//
// Scoring, per language i in table order:
//
//	score_i = 1 + Σ ln(count(t) * p_i(t))   over distinct tokens t
//	score_i /= prior                        if the extension hint is registered for i
//
// p_i(t) falls back to the table default when t is not in language i's
// vocabulary. The count multiplies the probability inside the logarithm; this
// is not the textbook per-occurrence product and must stay that way for the
// shipped tables to keep their calibration.
//
// Selection keeps the first language whose score is strictly greater than the
// running maximum; the displaced maximum becomes the runner-up. A later
// language that beats the runner-up but not the maximum does not replace it.
package classify

import (
	"math"

	"pangloss/internal/model"
)

// Document is the view of a histogram the engine needs.
type Document interface {
	// Each visits every distinct token with its occurrence count.
	Each(fn func(tok string, count int))
}

// Result is the outcome of classifying one document.
type Result struct {
	Index  int     // winning language index in table order
	Label  string  // winning language label
	Best   float64 // winning score
	Second float64 // score displaced by the last new maximum; -Inf if none
	// Scores holds every language's score in table order when requested.
	Scores []float64
}

// Confidence returns 1 - Best/Second. When Second is -Inf this evaluates to 1.
func (r Result) Confidence() float64 {
	return 1 - (r.Best / r.Second)
}

// HasRunnerUp reports whether some language was displaced as the maximum.
func (r Result) HasRunnerUp() bool {
	return !math.IsInf(r.Second, -1)
}

// Engine classifies documents against a fixed table. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	table *model.Table
}

// New returns an Engine bound to table.
func New(table *model.Table) *Engine {
	return &Engine{table: table}
}

// Table returns the engine's model table.
func (e *Engine) Table() *model.Table { return e.table }

// Score returns the score of the language at index i for doc and extension hint ext.
func (e *Engine) Score(i int, doc Document, ext string) float64 {
	lang := e.table.At(i)
	def := e.table.Default()
	score := 1.0
	doc.Each(func(tok string, count int) {
		p := lang.LookupOr(tok, def)
		score += math.Log(float64(count) * p)
	})
	if lang.HasExtension(ext) {
		score /= e.table.Prior()
	}
	return score
}

// Classify scores doc against every language and selects the winner.
// An empty document scores 1 everywhere, so the first language wins and
// Second stays -Inf.
func (e *Engine) Classify(doc Document, ext string) Result {
	return e.classify(doc, ext, false)
}

// Explain is Classify with every language's score recorded in Result.Scores.
func (e *Engine) Explain(doc Document, ext string) Result {
	return e.classify(doc, ext, true)
}

func (e *Engine) classify(doc Document, ext string, keepScores bool) Result {
	res := Result{
		Index:  -1,
		Best:   math.Inf(-1),
		Second: math.Inf(-1),
	}
	if keepScores {
		res.Scores = make([]float64, e.table.Len())
	}
	for i := 0; i < e.table.Len(); i++ {
		score := e.Score(i, doc, ext)
		if keepScores {
			res.Scores[i] = score
		}
		if score > res.Best {
			res.Second = res.Best
			res.Best = score
			res.Index = i
		}
	}
	if res.Index < 0 {
		// every score was NaN or -Inf; the first language stands by default
		res.Index = 0
	}
	res.Label = e.table.At(res.Index).Label
	return res
}
