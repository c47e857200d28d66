package errors

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	assert.NoError(t, WithContext(nil, "ignored"))

	err := WithContext(WithContext(assert.AnError, "inner"), "outer")
	assert.EqualError(t, err, "outer: inner: "+assert.AnError.Error())
	assert.Equal(t, assert.AnError, RootCause(err))
	assert.True(t, Is(err, assert.AnError))
}

func TestIOError(t *testing.T) {
	assert.NoError(t, NewIOError("copy", "/src/a", nil))

	err := WithContext(NewIOError("copy", "/src/a", os.ErrPermission), "reconcile")
	assert.EqualError(t, err, `reconcile: copy "/src/a": permission denied`)

	var ioErr IOError
	assert.True(t, As(err, &ioErr))
	assert.Equal(t, "/src/a", ioErr.Path)
	assert.True(t, Is(err, os.ErrPermission))

	var setupErr SetupError
	assert.False(t, As(err, &setupErr))
}

func TestSetupError(t *testing.T) {
	err := WithContext(SetupError{Err: FileNotFound{Path: "/replica"}}, "create replica")

	var setupErr SetupError
	assert.True(t, As(err, &setupErr))
	assert.Equal(t, FileNotFound{Path: "/replica"}, RootCause(err))
}

func TestFriendlyError(t *testing.T) {
	err := NewFriendlyError("bad %s", "config")
	friendly, ok := err.(FriendlyError)
	assert.True(t, ok)
	assert.Equal(t, "bad config", friendly.FriendlyMessage())
}
