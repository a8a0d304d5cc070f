// Package freq builds the token frequency tables that seed a language model.
//
// Tokens are ranked by descending count; equal counts keep the order in which
// the tokens were first seen. Only the top Limit ranks are kept, and ignored
// tokens still consume a rank.
package freq

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"pangloss/internal/histogram"
)

// DefaultLimit is the number of ranks kept when Options.Limit is zero.
const DefaultLimit = 100

// Entry is one ranked token.
type Entry struct {
	Token string
	Count int
}

// Options tunes Top.
type Options struct {
	Limit  int // <= 0 means DefaultLimit
	Ignore []string
}

// Top ranks the tokens of h.
func Top(h *histogram.Histogram, opts Options) []Entry {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	ranked := make([]Entry, 0, h.Len())
	h.Each(func(tok string, n int) {
		ranked = append(ranked, Entry{Token: tok, Count: n})
	})
	slices.SortStableFunc(ranked, func(a, b Entry) int { return b.Count - a.Count })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(opts.Ignore) == 0 {
		return ranked
	}
	return slices.DeleteFunc(ranked, func(e Entry) bool {
		return slices.Contains(opts.Ignore, e.Token)
	})
}

// WriteLiteral prints entries as a single dictionary literal line:
//
//	{ 'def' : 3 ,  'end' : 1 }
func WriteLiteral(w io.Writer, entries []Entry) error {
	var sb strings.Builder
	sb.WriteString("{")
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(" , ")
		}
		sb.WriteString(" ")
		sb.WriteString(quote(e.Token))
		sb.WriteString(" : ")
		sb.WriteString(strconv.Itoa(e.Count))
	}
	sb.WriteString(" }\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// quote renders s as a single-quoted literal, switching to double quotes when
// s contains a single quote but no double quote. Bytes outside printable
// ASCII are hex escaped.
func quote(s string) string {
	q := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		q = '"'
	}
	var sb strings.Builder
	sb.WriteByte(q)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == q || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\t':
			sb.WriteString(`\t`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

type tomlDoc struct {
	Language []tomlLanguage `toml:"language"`
}

type tomlLanguage struct {
	Label      string            `toml:"label"`
	Extensions []string          `toml:"extensions"`
	Counts     map[string]uint64 `toml:"counts"`
}

// WriteTOML prints entries as a [[language]] table ready to append to a
// model file.
func WriteTOML(w io.Writer, label string, extensions []string, entries []Entry) error {
	counts := make(map[string]uint64, len(entries))
	for _, e := range entries {
		n, err := safecast.Conv[uint64](e.Count)
		if err != nil {
			return fmt.Errorf("count for %q: %w", e.Token, err)
		}
		counts[e.Token] = n
	}
	if extensions == nil {
		extensions = []string{}
	}
	doc := tomlDoc{Language: []tomlLanguage{{Label: label, Extensions: extensions, Counts: counts}}}
	return toml.NewEncoder(w).Encode(doc)
}
