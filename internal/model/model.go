// Package model holds the static per-language token frequency tables the
// classifier scores documents against.
//
// A Table is immutable once built and safe for concurrent use. Table order is
// significant: the classifier breaks score ties in favour of the earlier
// language.
package model

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

const (
	// DefaultProbability is assigned to tokens absent from a language's vocabulary.
	DefaultProbability = 0.0001
	// DefaultPrior divides the score of languages whose extensions match the hint.
	DefaultPrior = 1.1
)

// ErrNoLanguages is returned when a table would contain no languages.
var ErrNoLanguages = errors.New("model table has no languages")

// Digest identifies the contents of a Table.
type Digest [32]byte

// Language is one language's token distribution plus its extension hints.
type Language struct {
	ID         int
	Label      string
	Extensions []string

	probs map[string]float64
	total uint64
}

// LookupOr returns the stored probability of tok, or def if tok is not in the vocabulary.
func (l *Language) LookupOr(tok string, def float64) float64 {
	if p, ok := l.probs[tok]; ok {
		return p
	}
	return def
}

// Probability reports the stored probability of tok and whether it is known.
func (l *Language) Probability(tok string) (float64, bool) {
	p, ok := l.probs[tok]
	return p, ok
}

// HasExtension reports whether ext is one of the language's registered extensions.
// The comparison is exact: ".C" and ".c" are different hints.
func (l *Language) HasExtension(ext string) bool {
	return slices.Contains(l.Extensions, ext)
}

// VocabularySize returns the number of tokens with a stored probability.
func (l *Language) VocabularySize() int { return len(l.probs) }

// Total returns the raw count the probabilities were normalized by (0 for
// languages built from probabilities directly).
func (l *Language) Total() uint64 { return l.total }

// Spec describes a language before it is placed in a Table. Exactly one of
// Counts or Probabilities must be set.
type Spec struct {
	Label         string
	Extensions    []string
	Counts        map[string]uint64
	Probabilities map[string]float64
}

func (s Spec) build(id int) (*Language, error) {
	if s.Label == "" {
		return nil, fmt.Errorf("language #%d: empty label", id)
	}
	if (s.Counts == nil) == (s.Probabilities == nil) {
		return nil, fmt.Errorf("language %q: exactly one of counts or probabilities must be given", s.Label)
	}
	lang := &Language{
		ID:         id,
		Label:      s.Label,
		Extensions: slices.Clone(s.Extensions),
	}
	if s.Counts != nil {
		var total uint64
		for tok, n := range s.Counts {
			if n == 0 {
				return nil, fmt.Errorf("language %q: token %q has zero count", s.Label, tok)
			}
			total += n
		}
		if total == 0 {
			return nil, fmt.Errorf("language %q: no token counts", s.Label)
		}
		lang.total = total
		lang.probs = make(map[string]float64, len(s.Counts))
		for tok, n := range s.Counts {
			lang.probs[tok] = float64(n) / float64(total)
		}
		return lang, nil
	}
	lang.probs = make(map[string]float64, len(s.Probabilities))
	for tok, p := range s.Probabilities {
		if !(p > 0 && p <= 1) {
			return nil, fmt.Errorf("language %q: probability of %q out of range (0,1]: %v", s.Label, tok, p)
		}
		lang.probs[tok] = p
	}
	return lang, nil
}

// Table is an ordered, read-only collection of languages.
type Table struct {
	langs  []*Language
	def    float64
	prior  float64
	digest Digest
}

// Option customizes a Table.
type Option func(*Table)

// WithDefault overrides the probability used for unknown tokens.
func WithDefault(p float64) Option { return func(t *Table) { t.def = p } }

// WithPrior overrides the extension prior divisor.
func WithPrior(prior float64) Option { return func(t *Table) { t.prior = prior } }

// NewTable builds a Table from specs, preserving their order.
func NewTable(specs []Spec, opts ...Option) (*Table, error) {
	if len(specs) == 0 {
		return nil, ErrNoLanguages
	}
	t := &Table{def: DefaultProbability, prior: DefaultPrior}
	for _, opt := range opts {
		opt(t)
	}
	if !(t.def > 0 && t.def <= 1) {
		return nil, fmt.Errorf("default probability out of range (0,1]: %v", t.def)
	}
	if !(t.prior > 0) || math.IsInf(t.prior, 0) {
		return nil, fmt.Errorf("extension prior must be positive and finite: %v", t.prior)
	}
	seen := make(map[string]bool, len(specs))
	t.langs = make([]*Language, 0, len(specs))
	for i, s := range specs {
		if seen[s.Label] {
			return nil, fmt.Errorf("duplicate language label %q", s.Label)
		}
		seen[s.Label] = true
		lang, err := s.build(i)
		if err != nil {
			return nil, err
		}
		t.langs = append(t.langs, lang)
	}
	t.digest = t.computeDigest()
	return t, nil
}

// Len returns the number of languages.
func (t *Table) Len() int { return len(t.langs) }

// At returns the language at index i.
func (t *Table) At(i int) *Language { return t.langs[i] }

// Languages returns the languages in table order. The slice must not be modified.
func (t *Table) Languages() []*Language { return t.langs }

// Default returns the probability used for unknown tokens.
func (t *Table) Default() float64 { return t.def }

// Prior returns the extension prior divisor.
func (t *Table) Prior() float64 { return t.prior }

// Digest returns a content hash of the table, stable across processes.
func (t *Table) Digest() Digest { return t.digest }

// Lookup finds a language by label.
func (t *Table) Lookup(label string) (*Language, bool) {
	for _, l := range t.langs {
		if l.Label == label {
			return l, true
		}
	}
	return nil, false
}

func (t *Table) computeDigest() Digest {
	h := sha256.New()
	var buf [8]byte
	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = h.Write(buf[:])
	}
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write([]byte(s))
	}
	writeFloat(t.def)
	writeFloat(t.prior)
	for _, l := range t.langs {
		writeString(l.Label)
		for _, ext := range l.Extensions {
			writeString(ext)
		}
		writeString("")
		toks := make([]string, 0, len(l.probs))
		for tok := range l.probs {
			toks = append(toks, tok)
		}
		slices.Sort(toks)
		for _, tok := range toks {
			writeString(tok)
			writeFloat(l.probs[tok])
		}
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
