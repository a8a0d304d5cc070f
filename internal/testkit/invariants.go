// Package testkit holds checks shared by tests of several packages.
package testkit

import (
	"fmt"
	"math"

	"pangloss/internal/classify"
	"pangloss/internal/model"
)

// CheckResultInvariants verifies an explained result (one with Scores) against
// the selection rules of the classifier:
// 1) there is one finite score per language and Best is the score at Index
// 2) Index is the first position holding the maximum score
// 3) Second is the maximum of the scores before Index, or -Inf when Index is 0
func CheckResultInvariants(res classify.Result, table *model.Table) error {
	if table == nil {
		return fmt.Errorf("nil table")
	}
	n := table.Len()
	if len(res.Scores) != n {
		return fmt.Errorf("got %d scores for %d languages", len(res.Scores), n)
	}
	if res.Index < 0 || res.Index >= n {
		return fmt.Errorf("winner index %d out of range [0,%d)", res.Index, n)
	}
	if want := table.At(res.Index).Label; res.Label != want {
		return fmt.Errorf("label %q does not match language %d (%q)", res.Label, res.Index, want)
	}

	// 1) finite scores; Best matches
	for i, s := range res.Scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("score %d is not finite: %v", i, s)
		}
	}
	if res.Best != res.Scores[res.Index] {
		return fmt.Errorf("best %v differs from score at index %d (%v)", res.Best, res.Index, res.Scores[res.Index])
	}

	// 2) first maximum wins ties
	for i, s := range res.Scores {
		if s > res.Best {
			return fmt.Errorf("score %d (%v) beats the winner (%v)", i, s, res.Best)
		}
		if i < res.Index && s == res.Best {
			return fmt.Errorf("score %d ties the winner at %v but comes first", i, s)
		}
	}

	// 3) runner-up is the running maximum the winner displaced
	second := math.Inf(-1)
	for _, s := range res.Scores[:res.Index] {
		second = math.Max(second, s)
	}
	if res.Second != second {
		return fmt.Errorf("second %v, want %v", res.Second, second)
	}
	return nil
}
