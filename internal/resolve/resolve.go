// Package resolve turns command-line arguments or a batch listing into the
// ordered list of (filename, extension hint) pairs to classify.
package resolve

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Input is one file to classify together with its extension hint.
type Input struct {
	Path string
	Ext  string
}

// UsageError reports an invalid invocation. Callers print usage and exit non-zero.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// IsUsage reports whether err is a UsageError.
func IsUsage(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

func usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// Ext derives the extension hint from a path: the suffix of the base name
// starting at its last dot. Leading dots do not start an extension, so
// ".bashrc" has none and "archive.tar.gz" has ".gz".
func Ext(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || strings.Trim(base[:i], ".") == "" {
		return ""
	}
	return base[i:]
}

// Overrides maps a positional filename index to the --ext value that followed it.
type Overrides map[int]string

// Bind records ext for the filename at index. index is the position of the
// most recent filename, so -1 means --ext came before any filename.
func (o Overrides) Bind(index int, ext string) error {
	if index < 0 {
		return usagef("--ext=%s must follow a filename", ext)
	}
	if prev, ok := o[index]; ok {
		return usagef("duplicate --ext for the same file (%q and %q)", prev, ext)
	}
	o[index] = ext
	return nil
}

// Options selects the input style. Files and Batch are mutually exclusive.
type Options struct {
	Files     []string
	Overrides Overrides
	Batch     string
}

// Resolve expands opts into an ordered input list.
func Resolve(opts Options) ([]Input, error) {
	switch {
	case opts.Batch != "" && (len(opts.Files) > 0 || len(opts.Overrides) > 0):
		return nil, usagef("--batch cannot be combined with filenames or --ext")
	case opts.Batch != "":
		return BatchFile(opts.Batch)
	case len(opts.Files) == 0:
		return nil, usagef("no input files")
	default:
		return Explicit(opts.Files, opts.Overrides)
	}
}

// Explicit pairs each filename with its override or its derived extension.
func Explicit(files []string, overrides Overrides) ([]Input, error) {
	if len(files) == 0 {
		return nil, usagef("no input files")
	}
	for idx := range overrides {
		if idx < 0 || idx >= len(files) {
			return nil, usagef("--ext bound to missing filename #%d", idx+1)
		}
	}
	out := make([]Input, len(files))
	for i, f := range files {
		ext, ok := overrides[i]
		if !ok {
			ext = Ext(f)
		}
		out[i] = Input{Path: f, Ext: ext}
	}
	return out, nil
}

// Batch reads "filename" or "filename,extension" lines. Line endings are
// stripped, blank lines are skipped, fields past the second are ignored and a
// line without a comma gets the extension derived from its filename.
func Batch(r io.Reader) ([]Input, error) {
	var out []Input
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("batch line %d: %w", lineNo+1, err)
		}
		if line != "" {
			lineNo++
			if in, ok := parseBatchLine(line); ok {
				out = append(out, in)
			}
		}
		if err != nil {
			return out, nil
		}
	}
}

func parseBatchLine(line string) (Input, bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Input{}, false
	}
	fields := strings.Split(line, ",")
	if len(fields) == 1 {
		return Input{Path: fields[0], Ext: Ext(fields[0])}, true
	}
	return Input{Path: fields[0], Ext: strings.TrimSpace(fields[1])}, true
}

// BatchFile reads a batch listing from path.
func BatchFile(path string) ([]Input, error) {
	// #nosec G304 -- path is provided by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()
	inputs, err := Batch(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inputs, nil
}
