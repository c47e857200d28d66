package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error with the given message. The message is formatted
// with fmt.Sprintf if arguments are provided.
func New(format string, args ...interface{}) error {
	if len(args) == 0 {
		return goerrors.New(format)
	}
	return fmt.Errorf(format, args...)
}

// WithContext annotates `err` with `context`. The returned error prints as
// "context: err". A nil error stays nil so that callers can wrap
// unconditionally.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return withContext{context: context, err: err}
}

type withContext struct {
	context string
	err     error
}

func (err withContext) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err withContext) Unwrap() error {
	return err.err
}

// RootCause strips all context added by WithContext, and any other wrapping
// that implements Unwrap, and returns the innermost error.
func RootCause(err error) error {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// FriendlyError is an error whose message is meant to be shown to the user
// as-is, without the context chain.
type FriendlyError interface {
	error
	FriendlyMessage() string
}

// NewFriendlyError creates an error whose message is shown to the user
// verbatim.
func NewFriendlyError(template string, args ...interface{}) error {
	return friendlyError{msg: fmt.Sprintf(template, args...)}
}

type friendlyError struct {
	msg string
}

func (err friendlyError) Error() string {
	return err.msg
}

func (err friendlyError) FriendlyMessage() string {
	return err.msg
}
