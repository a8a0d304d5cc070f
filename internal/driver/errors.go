package driver

import "fmt"

// FileError reports an input that could not be read. It aborts the run.
type FileError struct {
	Index int
	Path  string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
