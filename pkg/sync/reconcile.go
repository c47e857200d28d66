package sync

import (
	"context"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Reconcile copies every source file that's missing or different in the
// replica, creating replica directories as needed. It doesn't remove
// anything except replica entries that are in the way of a source entry of
// a different type.
func (m *Mirror) Reconcile(ctx context.Context) (Result, error) {
	var result Result

	srcInfo, err := m.Fs.Stat(m.Source)
	if err != nil {
		return result, errors.NewIOError("stat", m.Source, err)
	}
	if !srcInfo.IsDir() {
		return result, errors.NewIOError("walk", m.Source, errors.New("not a directory"))
	}

	if err := m.ensureDir(m.Replica, &result); err != nil {
		return result, err
	}

	// Directories are pushed only after their replica counterpart exists, so
	// by the time a directory's files are copied, the destination directory
	// is in place.
	stack := []string{"."}
	for len(stack) > 0 {
		relDir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		srcDir, _ := m.pair(relDir)
		entries, err := afero.ReadDir(m.Fs, srcDir)
		if err != nil {
			return result, errors.NewIOError("list", srcDir, err)
		}

		var subdirs []string
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			relPath := filepath.Join(relDir, entry.Name())
			src, dst := m.pair(relPath)

			fi, ok, err := m.resolve(src, entry)
			if err != nil {
				return result, err
			} else if !ok {
				continue
			}

			if fi.IsDir() {
				if err := m.ensureDir(dst, &result); err != nil {
					return result, err
				}
				subdirs = append(subdirs, relPath)
				continue
			}

			if err := m.reconcileFile(src, dst, &result); err != nil {
				return result, err
			}
		}

		// Push in reverse so that siblings are visited in lexical order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return result, nil
}

// resolve decides how a source entry is treated. Symlinks to files are
// followed and copied by contents. Symlinks to directories, and anything
// that isn't a regular file or directory, are skipped.
func (m *Mirror) resolve(src string, entry os.FileInfo) (os.FileInfo, bool, error) {
	if entry.Mode()&os.ModeSymlink == 0 {
		if !entry.IsDir() && !entry.Mode().IsRegular() {
			m.Log.WithField("path", src).Debug("Skipping irregular file")
			return nil, false, nil
		}
		return entry, true, nil
	}

	target, err := m.Fs.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			m.Log.WithField("path", src).Warn("Skipping dangling symlink")
			return nil, false, nil
		}
		return nil, false, errors.NewIOError("stat", src, err)
	}

	if !target.Mode().IsRegular() {
		m.Log.WithField("path", src).Debug("Not following symlink")
		return nil, false, nil
	}
	return target, true, nil
}

// ensureDir makes sure `dst` is a directory. A file in its place is
// removed.
func (m *Mirror) ensureDir(dst string, result *Result) error {
	fi, err := m.stat(dst)
	if err != nil {
		return err
	}

	if fi != nil && fi.IsDir() {
		return nil
	}

	if fi != nil {
		if err := m.removeFile(dst); err != nil {
			return err
		}
		result.Removed++
	}

	if err := m.Fs.MkdirAll(dst, 0755); err != nil {
		return errors.NewIOError("create directory", dst, err)
	}
	return nil
}

func (m *Mirror) reconcileFile(src, dst string, result *Result) error {
	dstInfo, err := m.stat(dst)
	if err != nil {
		return err
	}

	existed := dstInfo != nil
	if existed && dstInfo.IsDir() {
		if err := m.removeDir(dst); err != nil {
			return err
		}
		result.RemovedDirs++
		existed = false
	}

	if existed {
		same, err := SameContents(m.Fs, m.Digest, src, dst)
		if err != nil {
			return err
		}

		if same {
			result.Unchanged++
			return nil
		}
	}

	n, err := copyFile(m.Fs, src, dst)
	if errors.Is(err, errors.ErrFileChanged) {
		m.Log.WithField("path", src).Warn(
			"Source file changed while it was being copied. " +
				"It will be synced on the next pass.")
		result.Skipped++
		return nil
	} else if err != nil {
		return err
	}
	result.BytesCopied += n

	fields := log.Fields{"src": src, "dst": dst}
	if existed {
		m.Log.WithFields(fields).Infof("Updated: %s in %s", src, dst)
		result.Updated++
	} else {
		m.Log.WithFields(fields).Infof("Copied: %s to %s", src, dst)
		result.Copied++
	}
	return nil
}
