package errors

import (
	"fmt"
)

// ErrFileChanged is returned when a source file changes while it's being
// copied into the replica.
var ErrFileChanged = New("file contents changed during sync")

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// SetupError is a failure that happens before the first pass, such as
// failing to create the source or replica root. It's fatal to the run.
type SetupError struct {
	Err error
}

func (err SetupError) Error() string {
	return err.Err.Error()
}

func (err SetupError) Unwrap() error {
	return err.Err
}

// IOError is a filesystem failure during a single pass. The pass is
// abandoned, and the next scheduled pass starts from scratch.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (err IOError) Error() string {
	return fmt.Sprintf("%s %q: %s", err.Op, err.Path, err.Err)
}

func (err IOError) Unwrap() error {
	return err.Err
}

// NewIOError wraps `err` as an IOError. A nil error stays nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return IOError{Op: op, Path: path, Err: err}
}
