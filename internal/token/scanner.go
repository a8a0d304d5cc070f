package token

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"strings"
)

// Scanner yields the tokens of a line-oriented text source.
// Lines of any length are accepted; the reader is consumed sequentially.
type Scanner struct {
	r      *bufio.Reader
	fields []string
	cur    string
	line   int
	err    error
	done   bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// Scan advances to the next token. It returns false at end of input or on
// the first read error; Err reports which.
func (s *Scanner) Scan() bool {
	for len(s.fields) == 0 {
		if s.done {
			s.cur = ""
			return false
		}
		if !s.readLine() {
			continue
		}
	}
	s.cur = s.fields[0]
	s.fields = s.fields[1:]
	return true
}

// readLine loads the fields of the next line. It reports whether a line was read.
func (s *Scanner) readLine() bool {
	line, err := s.r.ReadString('\n')
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = err
			return false
		}
		if line == "" {
			return false
		}
	}
	s.line++
	s.fields = strings.FieldsFunc(line, IsSpace)
	return true
}

// Text returns the token produced by the last successful Scan.
func (s *Scanner) Text() string { return s.cur }

// Line returns the 1-based line number of the current token.
func (s *Scanner) Line() int { return s.line }

// Err returns the first non-EOF read error.
func (s *Scanner) Err() error { return s.err }

// All returns the remaining tokens as a sequence. The sequence can be ranged
// over once; check Err afterwards.
func (s *Scanner) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for s.Scan() {
			if !yield(s.Text()) {
				return
			}
		}
	}
}

// Split returns the tokens of a single string.
func Split(text string) []string {
	return strings.FieldsFunc(text, IsSpace)
}

// IsSpace reports whether r separates tokens. Only the ASCII whitespace
// bytes count; NBSP, U+0085, U+3000 and the \x1c-\x1f separators stay
// inside tokens.
func IsSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
