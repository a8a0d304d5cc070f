package main

import (
	"github.com/spf13/pflag"

	"pangloss/internal/resolve"
)

// extFlag implements --ext. pflag calls Set while it walks the argument
// list, so the positional arguments collected so far end with the filename
// this --ext belongs to.
type extFlag struct {
	fs        *pflag.FlagSet
	overrides resolve.Overrides
	last      string
}

func newExtFlag(fs *pflag.FlagSet) *extFlag {
	return &extFlag{fs: fs, overrides: resolve.Overrides{}}
}

func (f *extFlag) String() string { return f.last }

func (f *extFlag) Type() string { return "ext" }

func (f *extFlag) Set(value string) error {
	if err := f.overrides.Bind(f.fs.NArg()-1, value); err != nil {
		return err
	}
	f.last = value
	return nil
}
