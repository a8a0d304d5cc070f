// Package crosscheck asks go-enry (a port of GitHub Linguist) for a second
// opinion on a file's language.
package crosscheck

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Strategy names what decided a Guess.
type Strategy string

const (
	StrategyContent   Strategy = "content"
	StrategyExtension Strategy = "extension"
	StrategyFilename  Strategy = "filename"
	StrategyBinary    Strategy = "binary"
	StrategyNone      Strategy = "none"
)

// Guess is go-enry's verdict for one file.
type Guess struct {
	Language string
	Strategy Strategy
	Vendored bool
}

// Known reports whether go-enry produced a language.
func (g Guess) Known() bool { return g.Language != "" }

// Detect classifies content. ext, when it differs from the path's own
// extension, replaces it so --ext overrides reach go-enry too.
func Detect(path string, content []byte, ext string) Guess {
	name := hintedName(path, ext)
	g := Guess{Vendored: enry.IsVendor(path)}

	if enry.IsBinary(content) {
		g.Strategy = StrategyBinary
		return g
	}
	if lang := enry.GetLanguage(name, content); lang != "" && lang != "Text" {
		g.Language, g.Strategy = lang, StrategyContent
		return g
	}
	if lang, _ := enry.GetLanguageByExtension(name); lang != "" && lang != "Text" {
		g.Language, g.Strategy = lang, StrategyExtension
		return g
	}
	if lang, _ := enry.GetLanguageByFilename(name); lang != "" && lang != "Text" {
		g.Language, g.Strategy = lang, StrategyFilename
		return g
	}
	g.Strategy = StrategyNone
	return g
}

func hintedName(path, ext string) string {
	base := filepath.Base(path)
	own := filepath.Ext(base)
	if ext == "" || ext == own {
		return base
	}
	return strings.TrimSuffix(base, own) + ext
}

// Agrees reports whether a pangloss label and a go-enry language name the
// same language. Linguist spells every supported label identically except
// for case, and files Hack under PHP.
func Agrees(label, lang string) bool {
	if strings.EqualFold(label, lang) {
		return true
	}
	return strings.EqualFold(label, "PHP") && strings.EqualFold(lang, "Hack")
}

// Summary tallies a compare run.
type Summary struct {
	Total    int
	Agree    int
	Disagree int
	Unknown  int
}

// Add records one comparison.
func (s *Summary) Add(label string, g Guess) {
	s.Total++
	switch {
	case !g.Known():
		s.Unknown++
	case Agrees(label, g.Language):
		s.Agree++
	default:
		s.Disagree++
	}
}

// Rate is the share of known guesses that agree, or 0 when none were known.
func (s Summary) Rate() float64 {
	known := s.Agree + s.Disagree
	if known == 0 {
		return 0
	}
	return float64(s.Agree) / float64(known)
}
