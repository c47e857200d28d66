package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/foldersync/pkg/errors"
)

const (
	// ExitFailure is the exit code for setup and usage errors.
	ExitFailure = 1
)

// Mocked for unit testing.
var (
	Exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// HandleFatalError prints `err` and exits. Friendly errors are printed
// as-is, without their context, since they're written for the user.
func HandleFatalError(err error) {
	var friendly errors.FriendlyError
	if errors.As(err, &friendly) {
		fmt.Fprintln(stderr, friendly.FriendlyMessage())
	} else {
		fmt.Fprintf(stderr, "An error occurred: %s\n", err)
	}
	Exit(ExitFailure)
}

// HandlePanic logs the panic and its stack trace before exiting. It must be
// deferred.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Panic: %v", r)
		Exit(ExitFailure)
	}
}
