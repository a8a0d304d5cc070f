// Package histogram counts token occurrences in a single document.
package histogram

import (
	"fmt"
	"io"
	"os"

	"pangloss/internal/token"
)

// Histogram maps each distinct token of one document to its occurrence count.
// Tokens are kept in first-seen order so that scoring sums are evaluated in a
// stable order and repeated runs produce bit-identical results.
type Histogram struct {
	counts map[string]int
	order  []string
	total  int
}

// New returns an empty histogram.
func New() *Histogram {
	return &Histogram{counts: make(map[string]int)}
}

// Add records one occurrence of tok.
func (h *Histogram) Add(tok string) {
	if _, ok := h.counts[tok]; !ok {
		h.order = append(h.order, tok)
	}
	h.counts[tok]++
	h.total++
}

// Count returns the number of occurrences of tok.
func (h *Histogram) Count(tok string) int { return h.counts[tok] }

// Len returns the number of distinct tokens.
func (h *Histogram) Len() int { return len(h.order) }

// Total returns the number of tokens seen, duplicates included.
func (h *Histogram) Total() int { return h.total }

// Each calls fn for every distinct token in first-seen order.
func (h *Histogram) Each(fn func(tok string, count int)) {
	for _, tok := range h.order {
		fn(tok, h.counts[tok])
	}
}

// Tokens returns the distinct tokens in first-seen order.
func (h *Histogram) Tokens() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Read drains r through a token.Scanner.
func Read(r io.Reader) (*Histogram, error) {
	h := New()
	sc := token.NewScanner(r)
	for tok := range sc.All() {
		h.Add(tok)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

// ReadFile opens path, builds its histogram and closes the file on every path.
func ReadFile(path string) (h *Histogram, err error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	h, err = Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return h, nil
}
