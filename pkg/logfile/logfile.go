// Package logfile writes sync events to an append-only, human readable log
// file, one line per event:
//
//	2024-01-02 15:04:05.000000: Copied: /source/a to /replica/a
package logfile

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// TimestampFormat is the layout of the local timestamp that starts every
// line.
const TimestampFormat = "2006-01-02 15:04:05.000000"

// Formatter formats an entry as "<timestamp>: <message>\n". Fields are
// dropped.
type Formatter struct{}

// Format implements logrus.Formatter.
func (Formatter) Format(entry *log.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("%s: %s\n",
		entry.Time.Local().Format(TimestampFormat), entry.Message)), nil
}

// ConsoleOnlyField marks an entry that the Hook doesn't write, such as a
// summary meant for the terminal.
const ConsoleOnlyField = "consoleOnly"

// Hook appends entries to the file at Path. The file is opened and closed
// for every entry, so no handle is held between events and each line is
// written out on its own.
//
// Warning and debug entries, and entries with ConsoleOnlyField set, only go
// to the console.
type Hook struct {
	Fs        afero.Fs
	Path      string
	Formatter log.Formatter
}

// NewHook returns a Hook that appends to `path`.
func NewHook(fs afero.Fs, path string) *Hook {
	return &Hook{Fs: fs, Path: path, Formatter: Formatter{}}
}

// Levels implements logrus.Hook.
func (h *Hook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel, log.InfoLevel}
}

// Fire implements logrus.Hook.
func (h *Hook) Fire(entry *log.Entry) error {
	if consoleOnly, _ := entry.Data[ConsoleOnlyField].(bool); consoleOnly {
		return nil
	}

	line, err := h.Formatter.Format(entry)
	if err != nil {
		return errors.WithContext(err, "format")
	}
	return Append(h.Fs, h.Path, line)
}

// Append opens `path` for appending, creating it if needed, writes `line`
// and closes the file.
func Append(fs afero.Fs, path string, line []byte) error {
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithContext(err, "open log file")
	}

	if _, err := f.Write(line); err != nil {
		f.Close()
		return errors.WithContext(err, "write log file")
	}

	if err := f.Close(); err != nil {
		return errors.WithContext(err, "close log file")
	}
	return nil
}
