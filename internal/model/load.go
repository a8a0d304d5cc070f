package model

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
)

//go:embed languages.toml
var builtinTOML []byte

type tableFile struct {
	Default  float64        `toml:"default"`
	Prior    float64        `toml:"prior"`
	Language []languageFile `toml:"language"`
}

type languageFile struct {
	Label         string             `toml:"label"`
	Extensions    []string           `toml:"extensions"`
	Counts        map[string]int64   `toml:"counts,omitempty"`
	Probabilities map[string]float64 `toml:"probabilities,omitempty"`
}

var builtin = sync.OnceValues(func() (*Table, error) {
	return Parse("languages.toml", bytes.NewReader(builtinTOML))
})

// Builtin returns the embedded table of 11 languages (C++, JavaScript, Java,
// C, Ruby, Perl, TypeScript, Python, Scala, PHP, Objective-C, in that order).
// The table is parsed once per process.
func Builtin() (*Table, error) {
	return builtin()
}

// BuiltinSource returns the embedded TOML source.
func BuiltinSource() []byte {
	return bytes.Clone(builtinTOML)
}

// LoadFile parses a model table from a TOML file.
func LoadFile(path string) (*Table, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model table: %w", err)
	}
	defer f.Close()
	return Parse(path, f)
}

// Parse decodes a model table. name is used in error messages only.
//
// Layout:
//
//	default = 0.0001   # optional
//	prior = 1.1        # optional
//
//	[[language]]
//	label = "Python"
//	extensions = [".py"]
//	[language.counts]
//	"def" = 39952
func Parse(name string, r io.Reader) (*Table, error) {
	var file tableFile
	meta, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", name, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("language") || len(file.Language) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoLanguages)
	}

	var opts []Option
	if meta.IsDefined("default") {
		opts = append(opts, WithDefault(file.Default))
	}
	if meta.IsDefined("prior") {
		opts = append(opts, WithPrior(file.Prior))
	}

	specs := make([]Spec, 0, len(file.Language))
	for i, lf := range file.Language {
		label := strings.TrimSpace(lf.Label)
		if label == "" {
			return nil, fmt.Errorf("%s: [[language]] #%d: missing label", name, i+1)
		}
		spec := Spec{Label: label, Extensions: lf.Extensions}
		switch {
		case lf.Counts != nil && lf.Probabilities != nil:
			return nil, fmt.Errorf("%s: language %q: counts and probabilities are mutually exclusive", name, label)
		case lf.Counts != nil:
			spec.Counts = make(map[string]uint64, len(lf.Counts))
			for tok, n := range lf.Counts {
				c, err := safecast.Conv[uint64](n)
				if err != nil {
					return nil, fmt.Errorf("%s: language %q: count of %q: %w", name, label, tok, err)
				}
				spec.Counts[tok] = c
			}
		case lf.Probabilities != nil:
			spec.Probabilities = lf.Probabilities
		default:
			return nil, fmt.Errorf("%s: language %q: missing [language.counts]", name, label)
		}
		specs = append(specs, spec)
	}

	table, err := NewTable(specs, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return table, nil
}

// Encode writes t back out as TOML with probabilities, in table order.
func Encode(w io.Writer, t *Table) error {
	file := tableFile{Default: t.def, Prior: t.prior}
	for _, l := range t.langs {
		probs := make(map[string]float64, len(l.probs))
		for tok, p := range l.probs {
			probs[tok] = p
		}
		file.Language = append(file.Language, languageFile{
			Label:         l.Label,
			Extensions:    l.Extensions,
			Probabilities: probs,
		})
	}
	return toml.NewEncoder(w).Encode(file)
}
