package classify

import (
	"math"
	"strings"
	"testing"

	"pangloss/internal/histogram"
	"pangloss/internal/model"
)

const tolerance = 1e-12

func fixture(t *testing.T, specs ...model.Spec) *Engine {
	t.Helper()
	table, err := model.NewTable(specs)
	if err != nil {
		t.Fatalf("NewTable returned error: %v", err)
	}
	return New(table)
}

func doc(t *testing.T, text string) *histogram.Histogram {
	t.Helper()
	h, err := histogram.Read(strings.NewReader(text))
	if err != nil {
		t.Fatalf("histogram.Read returned error: %v", err)
	}
	return h
}

var (
	specA = model.Spec{Label: "A", Extensions: []string{".a"}, Probabilities: map[string]float64{"def": 0.5, "end": 0.1}}
	specB = model.Spec{Label: "B", Extensions: []string{".b"}, Probabilities: map[string]float64{"end": 0.5, "def": 0.1}}
)

func TestTwoLanguageScenario(t *testing.T) {
	e := fixture(t, specA, specB)
	d := doc(t, "def def")

	scoreA := e.Score(0, d, ".b")
	if scoreA != 1.0 {
		t.Fatalf("expected scoreA = 1 + ln(1) = 1, got %v", scoreA)
	}
	wantB := (1 + math.Log(0.2)) / 1.1
	if got := e.Score(1, d, ".b"); math.Abs(got-wantB) > tolerance {
		t.Fatalf("expected scoreB = %v, got %v", wantB, got)
	}

	res := e.Classify(d, ".b")
	if res.Index != 0 || res.Label != "A" {
		t.Fatalf("expected A to win, got %d/%s", res.Index, res.Label)
	}
	// A set the maximum first and B never beat it, so nothing was displaced.
	if res.HasRunnerUp() {
		t.Fatalf("expected no runner-up, got %v", res.Second)
	}
	if got := res.FormatConfidence(PolicyLiteral); got != "1.0" {
		t.Fatalf("expected literal confidence 1.0, got %s", got)
	}
	if got := res.FormatConfidence(PolicyGuarded); got != Undefined {
		t.Fatalf("expected guarded confidence %s, got %s", Undefined, got)
	}
}

func TestRunnerUpIsDisplacedMaximum(t *testing.T) {
	e := fixture(t, specB, specA)
	res := e.Classify(doc(t, "def def"), ".b")
	if res.Label != "A" {
		t.Fatalf("expected A to win, got %s", res.Label)
	}
	wantSecond := (1 + math.Log(0.2)) / 1.1
	if math.Abs(res.Second-wantSecond) > tolerance {
		t.Fatalf("expected runner-up %v, got %v", wantSecond, res.Second)
	}
	want := 1 - 1/wantSecond
	if got := res.Confidence(); math.Abs(got-want) > tolerance {
		t.Fatalf("expected confidence %v, got %v", want, got)
	}
	if got := res.FormatConfidence(PolicyLiteral); got != "2.80494186127" {
		t.Fatalf("expected 2.80494186127, got %s", got)
	}
}

func TestLaterLanguageBetweenMaxAndRunnerUpIsIgnored(t *testing.T) {
	// scores for "x": C < A, and B between them after A was seen
	e := fixture(t,
		model.Spec{Label: "low", Probabilities: map[string]float64{"x": 0.01}},
		model.Spec{Label: "high", Probabilities: map[string]float64{"x": 0.9}},
		model.Spec{Label: "mid", Probabilities: map[string]float64{"x": 0.5}},
	)
	res := e.Explain(doc(t, "x"), "")
	if res.Label != "high" {
		t.Fatalf("expected high to win, got %s", res.Label)
	}
	if res.Second != res.Scores[0] {
		t.Fatalf("expected runner-up to stay the displaced score %v, got %v", res.Scores[0], res.Second)
	}
	if !(res.Scores[2] > res.Second) {
		t.Fatalf("fixture broken: mid should outscore the runner-up")
	}
}

func TestEmptyDocumentPicksFirstLanguage(t *testing.T) {
	table, err := model.Builtin()
	if err != nil {
		t.Fatalf("Builtin returned error: %v", err)
	}
	e := New(table)
	for _, ext := range []string{"", ".py", ".c", ".m", ".unknown"} {
		res := e.Explain(doc(t, ""), ext)
		if res.Index != 0 || res.Label != "C++" {
			t.Fatalf("ext %q: expected index 0 (C++), got %d (%s)", ext, res.Index, res.Label)
		}
		if res.HasRunnerUp() {
			t.Fatalf("ext %q: expected no runner-up", ext)
		}
		if got := res.FormatConfidence(PolicyLiteral); got != "1.0" {
			t.Fatalf("ext %q: expected confidence 1.0, got %s", ext, got)
		}
	}
}

// An empty document scores 1 everywhere, and the prior divides that positive
// score, so a hint naming the first language demotes it below the second.
func TestEmptyDocumentHintForFirstLanguage(t *testing.T) {
	table, err := model.Builtin()
	if err != nil {
		t.Fatalf("Builtin returned error: %v", err)
	}
	e := New(table)
	for _, ext := range []string{".C", ".cpp"} {
		res := e.Explain(doc(t, ""), ext)
		if res.Index != 1 || res.Label != "JavaScript" {
			t.Fatalf("ext %q: expected index 1 (JavaScript), got %d (%s)", ext, res.Index, res.Label)
		}
		if res.Best != 1.0 {
			t.Fatalf("ext %q: expected best 1.0, got %v", ext, res.Best)
		}
		if want := 1 / 1.1; math.Abs(res.Second-want) > tolerance {
			t.Fatalf("ext %q: expected runner-up %v, got %v", ext, want, res.Second)
		}
		if got := res.FormatConfidence(PolicyLiteral); !strings.HasPrefix(got, "-0.1") {
			t.Fatalf("ext %q: expected confidence -0.1, got %s", ext, got)
		}
	}
}

func TestTiesKeepEarliestLanguage(t *testing.T) {
	same := map[string]float64{"x": 0.5}
	e := fixture(t,
		model.Spec{Label: "first", Probabilities: same},
		model.Spec{Label: "second", Probabilities: same},
	)
	res := e.Explain(doc(t, "x y"), "")
	if res.Scores[0] != res.Scores[1] {
		t.Fatalf("fixture broken: scores differ")
	}
	if res.Label != "first" {
		t.Fatalf("expected first to win a tie, got %s", res.Label)
	}
}

func TestDefaultProbabilityMonotonicity(t *testing.T) {
	table, err := model.Builtin()
	if err != nil {
		t.Fatalf("Builtin returned error: %v", err)
	}
	e := New(table)
	// "[self" only appears in the Objective-C table.
	d := doc(t, "[self")
	res := e.Explain(d, "")
	objc, _ := table.Lookup("Objective-C")
	for i, s := range res.Scores {
		if i == objc.ID {
			continue
		}
		if !(res.Scores[objc.ID] > s) {
			t.Fatalf("expected Objective-C score %v to exceed %s score %v", res.Scores[objc.ID], table.At(i).Label, s)
		}
	}
	if res.Label != "Objective-C" {
		t.Fatalf("expected Objective-C, got %s", res.Label)
	}
}

func TestExtensionPriorSign(t *testing.T) {
	same := map[string]float64{"x": 0.5}
	e := fixture(t,
		model.Spec{Label: "A", Extensions: []string{".a"}, Probabilities: same},
		model.Spec{Label: "B", Extensions: []string{".b"}, Probabilities: same},
	)

	// 1 + ln(0.5) > 0: dividing by the prior lowers B, so A keeps winning.
	pos := e.Explain(doc(t, "x"), ".b")
	if !(pos.Scores[0] > 0) {
		t.Fatalf("fixture broken: expected positive score, got %v", pos.Scores[0])
	}
	if pos.Label != "A" || !(pos.Scores[1] < pos.Scores[0]) {
		t.Fatalf("positive score: expected prior to hurt B, got %s %v", pos.Label, pos.Scores)
	}

	// an unknown token drives the score negative: the prior now lifts B above A.
	neg := e.Explain(doc(t, "x y"), ".b")
	if !(neg.Scores[0] < 0) {
		t.Fatalf("fixture broken: expected negative score, got %v", neg.Scores[0])
	}
	if neg.Label != "B" {
		t.Fatalf("negative score: expected prior to favour B, got %s %v", neg.Label, neg.Scores)
	}
	want := (1 + math.Log(0.5) + math.Log(0.0001)) / 1.1
	if math.Abs(neg.Scores[1]-want) > tolerance {
		t.Fatalf("expected B score %v, got %v", want, neg.Scores[1])
	}
}

func TestCountMultipliesInsideLogarithm(t *testing.T) {
	e := fixture(t, model.Spec{Label: "A", Probabilities: map[string]float64{"x": 0.25}})
	got := e.Score(0, doc(t, "x x x"), "")
	want := 1 + math.Log(3*0.25)
	if math.Abs(got-want) > tolerance {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPriorAppliedOnce(t *testing.T) {
	e := fixture(t, model.Spec{Label: "A", Extensions: []string{".a", ".a"}, Probabilities: map[string]float64{"x": 0.25}})
	got := e.Score(0, doc(t, "x"), ".a")
	want := (1 + math.Log(0.25)) / 1.1
	if math.Abs(got-want) > tolerance {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	table, err := model.Builtin()
	if err != nil {
		t.Fatalf("Builtin returned error: %v", err)
	}
	e := New(table)
	src := "import os\n\ndef main():\n    print('hi')\n\nif __name__ == '__main__':\n    main()\n"
	first := e.Classify(doc(t, src), ".py")
	for i := 0; i < 5; i++ {
		again := e.Classify(doc(t, src), ".py")
		if again.Label != first.Label || again.FormatConfidence(PolicyLiteral) != first.FormatConfidence(PolicyLiteral) {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
	if first.Label != "Python" {
		t.Fatalf("expected Python, got %s", first.Label)
	}
}
