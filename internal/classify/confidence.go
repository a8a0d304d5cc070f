package classify

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Policy decides how a missing runner-up is reported.
type Policy uint8

const (
	// PolicyLiteral reports 1 - Best/Second as is, giving 1 when Second is -Inf.
	PolicyLiteral Policy = iota
	// PolicyGuarded reports the confidence as undefined when there is no runner-up.
	PolicyGuarded
)

// Undefined is the rendering of a guarded confidence without a runner-up.
const Undefined = "undefined"

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyLiteral:
		return "literal"
	case PolicyGuarded:
		return "guarded"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "literal":
		return PolicyLiteral, nil
	case "guarded":
		return PolicyGuarded, nil
	default:
		return PolicyLiteral, fmt.Errorf("invalid confidence policy %q (expected literal|guarded)", s)
	}
}

// ConfidenceValue returns the confidence under policy p and whether it is defined.
func (r Result) ConfidenceValue(p Policy) (float64, bool) {
	if p == PolicyGuarded && !r.HasRunnerUp() {
		return math.NaN(), false
	}
	return r.Confidence(), true
}

// FormatConfidence renders the confidence under policy p.
func (r Result) FormatConfidence(p Policy) string {
	v, ok := r.ConfidenceValue(p)
	if !ok {
		return Undefined
	}
	return FormatFloat(v)
}

// FormatFloat renders f with 12 significant digits, keeping a ".0" suffix on
// integral values and spelling infinities and NaN as inf, -inf and nan. This is
// the rendering downstream consumers of the CSV output already parse.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', 12, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
