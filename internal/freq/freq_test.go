package freq

import (
	"bytes"
	"strings"
	"testing"

	"pangloss/internal/histogram"
	"pangloss/internal/model"
)

func mustHistogram(t *testing.T, text string) *histogram.Histogram {
	t.Helper()
	h, err := histogram.Read(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	return h
}

func TestTopOrdersByCountThenFirstSeen(t *testing.T) {
	h := mustHistogram(t, "b a c a b d a\nc e")
	got := Top(h, Options{})
	want := []Entry{{"a", 3}, {"b", 2}, {"c", 2}, {"d", 1}, {"e", 1}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestTopLimitAndIgnore(t *testing.T) {
	h := mustHistogram(t, "the x the y the x z")
	got := Top(h, Options{Limit: 3, Ignore: []string{"the"}})
	// "the" uses rank 1, so only x and y survive.
	if len(got) != 2 || got[0].Token != "x" || got[1].Token != "y" {
		t.Fatalf("unexpected ranking: %v", got)
	}

	var many strings.Builder
	for i := range 150 {
		many.WriteString(strings.Repeat("t", i+1))
		many.WriteString(" ")
	}
	if n := len(Top(mustHistogram(t, many.String()), Options{})); n != DefaultLimit {
		t.Fatalf("expected %d entries, got %d", DefaultLimit, n)
	}
}

func TestWriteLiteral(t *testing.T) {
	tests := []struct {
		entries []Entry
		want    string
	}{
		{nil, "{ }\n"},
		{[]Entry{{"=", 5}}, "{ '=' : 5 }\n"},
		{[]Entry{{"def", 3}, {"end", 1}}, "{ 'def' : 3 ,  'end' : 1 }\n"},
		{[]Entry{{"'0',", 2}}, `{ "'0'," : 2 }` + "\n"},
		{[]Entry{{`'"`, 1}}, `{ '\'"' : 1 }` + "\n"},
		{[]Entry{{`\`, 1}}, `{ '\\' : 1 }` + "\n"},
		{[]Entry{{"é", 1}}, `{ '\xc3\xa9' : 1 }` + "\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := WriteLiteral(&buf, tt.entries); err != nil {
			t.Fatalf("WriteLiteral returned error: %v", err)
		}
		if buf.String() != tt.want {
			t.Fatalf("expected %q, got %q", tt.want, buf.String())
		}
	}
}

func TestWriteTOMLLoadsAsModel(t *testing.T) {
	h := mustHistogram(t, `def end def "quoted" def`)
	var buf bytes.Buffer
	if err := WriteTOML(&buf, "Toy", []string{".toy"}, Top(h, Options{})); err != nil {
		t.Fatalf("WriteTOML returned error: %v", err)
	}
	table, err := model.Parse("toy.toml", &buf)
	if err != nil {
		t.Fatalf("generated TOML does not load: %v\n%s", err, buf.String())
	}
	toy, ok := table.Lookup("Toy")
	if !ok || !toy.HasExtension(".toy") {
		t.Fatalf("expected Toy with .toy extension")
	}
	if p, _ := toy.Probability("def"); p != 0.6 {
		t.Fatalf("expected p(def)=0.6, got %v", p)
	}
	if p, _ := toy.Probability(`"quoted"`); p != 0.2 {
		t.Fatalf("expected p(\"quoted\")=0.2, got %v", p)
	}
}
