package sync

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Mirror keeps the Replica tree identical to the Source tree.
type Mirror struct {
	Fs      afero.Fs
	Source  string
	Replica string
	Digest  Digest
	Log     log.FieldLogger
}

// New returns a Mirror that syncs `source` into `replica` on `fs`.
func New(fs afero.Fs, source, replica string, digest Digest, logger log.FieldLogger) *Mirror {
	return &Mirror{
		Fs:      fs,
		Source:  filepath.Clean(source),
		Replica: filepath.Clean(replica),
		Digest:  digest,
		Log:     logger,
	}
}

// WithLogger returns a copy of the mirror that logs to `logger`.
func (m Mirror) WithLogger(logger log.FieldLogger) *Mirror {
	m.Log = logger
	return &m
}

// Result counts the actions taken during a pass.
type Result struct {
	Copied      int
	Updated     int
	Unchanged   int
	Removed     int
	RemovedDirs int

	// Skipped counts files that changed while they were being copied. They
	// get picked up again on the next pass.
	Skipped int

	BytesCopied int64
}

// Changed returns whether the pass modified the replica.
func (r Result) Changed() bool {
	return r.Copied+r.Updated+r.Removed+r.RemovedDirs > 0
}

func (r *Result) add(other Result) {
	r.Copied += other.Copied
	r.Updated += other.Updated
	r.Unchanged += other.Unchanged
	r.Removed += other.Removed
	r.RemovedDirs += other.RemovedDirs
	r.Skipped += other.Skipped
	r.BytesCopied += other.BytesCopied
}

// Pass reconciles the replica with the source, and then prunes entries that
// no longer exist in the source. If reconciling fails, nothing is pruned.
func (m *Mirror) Pass(ctx context.Context) (Result, error) {
	result, err := m.Reconcile(ctx)
	if err != nil {
		return result, errors.WithContext(err, "reconcile")
	}

	pruned, err := m.Prune(ctx)
	result.add(pruned)
	if err != nil {
		return result, errors.WithContext(err, "prune")
	}
	return result, nil
}

// pair returns the source and replica paths for a path relative to both
// roots.
func (m *Mirror) pair(relativePath string) (source, replica string) {
	return filepath.Join(m.Source, relativePath), filepath.Join(m.Replica, relativePath)
}

// stat returns the info for `path`, or nil if it doesn't exist.
func (m *Mirror) stat(path string) (os.FileInfo, error) {
	fi, err := m.Fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewIOError("stat", path, err)
	}
	return fi, nil
}

// lstat is like stat, but doesn't follow a final symlink if the filesystem
// supports it.
func (m *Mirror) lstat(path string) (os.FileInfo, error) {
	lstater, ok := m.Fs.(afero.Lstater)
	if !ok {
		return m.stat(path)
	}

	fi, _, err := lstater.LstatIfPossible(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewIOError("stat", path, err)
	}
	return fi, nil
}

func (m *Mirror) removeFile(path string) error {
	if err := m.Fs.Remove(path); err != nil {
		return errors.NewIOError("remove", path, err)
	}
	m.Log.WithField("path", path).Infof("Removed: %s", path)
	return nil
}

func (m *Mirror) removeDir(path string) error {
	if err := m.Fs.RemoveAll(path); err != nil {
		return errors.NewIOError("remove directory", path, err)
	}
	m.Log.WithField("path", path).Infof("Removed directory: %s", path)
	return nil
}
