package mirror

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/fswatch"
	"github.com/sidkik/foldersync/pkg/logfile"
	"github.com/sidkik/foldersync/pkg/sync"
)

// Mocked for unit testing.
var (
	fs      = afero.NewOsFs()
	clock   = clockwork.NewRealClock()
	watch   = watchImpl
	lockLog = lockLogImpl
)

type passFunc func(context.Context, log.FieldLogger) (sync.Result, error)

type syncer struct {
	interval time.Duration
	pass     passFunc

	// updates is nil when file watching is disabled, so that it never
	// fires.
	updates <-chan struct{}
	closers []func() error

	clock clockwork.Clock
	log   log.FieldLogger
}

// newLogger returns a logger that writes to the console like the standard
// logger, and appends Info and Error entries to the log file.
func newLogger(logFile string) *log.Logger {
	std := log.StandardLogger()
	logger := log.New()
	logger.SetOutput(std.Out)
	logger.SetFormatter(std.Formatter)
	logger.SetLevel(std.GetLevel())
	logger.AddHook(logfile.NewHook(fs, logFile))
	return logger
}

func newSyncer(logger log.FieldLogger, cfg config.Mirror) (*syncer, error) {
	// The log file's directory is created first so that failures to create
	// the roots can be logged.
	if err := fs.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		return nil, errors.WithContext(err, "create log directory")
	}

	for _, root := range []string{cfg.Source, cfg.Replica} {
		if err := fs.MkdirAll(root, 0755); err != nil {
			return nil, errors.WithContext(err, "create root directory")
		}
	}

	unlock, err := lockLog(cfg.LogFile)
	if err != nil {
		return nil, errors.WithContext(err, "lock")
	}

	s := &syncer{
		interval: cfg.EffectiveInterval(),
		closers:  []func() error{unlock},
		clock:    clock,
		log:      logger,
	}

	digest, err := sync.NewDigest(cfg.DigestName())
	if err != nil {
		s.Close()
		return nil, errors.WithContext(err, "digest")
	}

	mirror := sync.New(fs, cfg.Source, cfg.Replica, digest, logger)
	s.pass = func(ctx context.Context, passLog log.FieldLogger) (sync.Result, error) {
		return mirror.WithLogger(passLog).Pass(ctx)
	}

	if cfg.Watch {
		updates, closeWatcher, err := watch(cfg.Source)
		if err != nil {
			if strings.Contains(errors.RootCause(err).Error(), "too many open files") {
				logger.Warnf("Too many files to watch for changes. "+
					"Changes will be picked up every %s instead.", s.interval)
			} else {
				logger.WithError(err).Warn("Failed to watch for changes. " +
					"Changes will be picked up on the regular interval instead.")
			}
		} else {
			s.updates = updates
			s.closers = append(s.closers, closeWatcher)
		}
	}
	return s, nil
}

func watchImpl(root string) (<-chan struct{}, func() error, error) {
	watcher, err := fswatch.Watch(root)
	if err != nil {
		return nil, nil, err
	}
	return watcher.Updates, watcher.Close, nil
}

// lockLogImpl takes an exclusive lock next to the log file, so that two
// processes never append to the same log or mirror into the same replica
// with it.
func lockLogImpl(logFile string) (func() error, error) {
	lock := flock.New(logFile + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.WithContext(err, "lock log file")
	}
	if !locked {
		return nil, errors.NewFriendlyError(
			"Another foldersync process is already using the log file %q.", logFile)
	}
	return lock.Unlock, nil
}

// Run runs passes until `ctx` is cancelled. A failed pass is logged, and
// the next pass runs on schedule.
func (s *syncer) Run(ctx context.Context) {
	for {
		s.syncOnce(ctx)
		if !s.wait(ctx) {
			return
		}
	}
}

// wait blocks until the next pass should start. It returns false if `ctx`
// was cancelled.
func (s *syncer) wait(ctx context.Context) bool {
	if s.interval == 0 {
		return ctx.Err() == nil
	}

	timer := s.clock.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
	case <-s.updates:
		s.log.Debug("Change detected. Starting pass early.")
	}
	return true
}

func (s *syncer) syncOnce(ctx context.Context) {
	passLog := s.log.WithField("pass", uuid.New().String())
	start := s.clock.Now()

	result, err := s.pass(ctx, passLog)
	if err != nil {
		var ioErr errors.IOError
		switch {
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			passLog.Debug("Pass interrupted")
		case errors.As(err, &ioErr):
			// The next pass re-derives everything from the filesystem, so
			// I/O failures recover on their own.
			passLog.WithField("path", ioErr.Path).Errorf(
				"An error occurred during synchronization: %s", err)
		default:
			passLog.WithField("unexpected", true).Errorf(
				"An error occurred during synchronization: unexpected error: %s", err)
		}
		return
	}

	if !result.Changed() {
		return
	}

	passLog.WithFields(log.Fields{
		"duration":               s.clock.Since(start),
		"skipped":                result.Skipped,
		logfile.ConsoleOnlyField: true,
	}).Infof("Copied %d files, updated %d, removed %d files and %d directories. "+
		"Transferred %s.", result.Copied, result.Updated, result.Removed,
		result.RemovedDirs, humanize.Bytes(uint64(result.BytesCopied)))
}

// Close releases the lock and stops watching for changes.
func (s *syncer) Close() {
	for _, closer := range s.closers {
		if err := closer(); err != nil {
			s.log.WithError(err).Warn("Failed to clean up")
		}
	}
}
