package classify

import (
	"math"
	"testing"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{0, "0.0"},
		{-2, "-2.0"},
		{0.5, "0.5"},
		{2.804941861274417, "2.80494186127"},
		{-1.8169, "-1.8169"},
		{1e16, "1e+16"},
		{1e-5, "1e-05"},
		{0.0001, "0.0001"},
		{123456789012345, "1.23456789012e+14"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Fatalf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyLiteral, "literal": PolicyLiteral, "Guarded": PolicyGuarded} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePolicy("clamped"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestConfidenceValue(t *testing.T) {
	r := Result{Best: 2, Second: -4}
	if v, ok := r.ConfidenceValue(PolicyGuarded); !ok || v != 1.5 {
		t.Fatalf("expected 1.5, got %v (%v)", v, ok)
	}
	r.Second = math.Inf(-1)
	if v, ok := r.ConfidenceValue(PolicyLiteral); !ok || v != 1 {
		t.Fatalf("expected literal 1, got %v (%v)", v, ok)
	}
	if _, ok := r.ConfidenceValue(PolicyGuarded); ok {
		t.Fatalf("expected guarded confidence to be undefined")
	}
}
