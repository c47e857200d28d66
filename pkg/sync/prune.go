package sync

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Prune removes every replica file without a source file at the same
// relative path, and every replica directory without a source directory.
// Source entries that Reconcile skips, such as pipes, sockets and symlinks to
// directories, count as missing. Removed directories are not descended into.
func (m *Mirror) Prune(ctx context.Context) (Result, error) {
	var result Result

	stack := []string{"."}
	for len(stack) > 0 {
		relDir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		_, dstDir := m.pair(relDir)
		entries, err := afero.ReadDir(m.Fs, dstDir)
		if err != nil {
			return result, errors.NewIOError("list", dstDir, err)
		}

		var subdirs []string
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			relPath := filepath.Join(relDir, entry.Name())
			src, dst := m.pair(relPath)

			kind, err := m.mirroredKind(src)
			if err != nil {
				return result, err
			}

			if entry.IsDir() {
				if kind == mirroredDir {
					subdirs = append(subdirs, relPath)
					continue
				}

				if err := m.removeDir(dst); err != nil {
					return result, err
				}
				result.RemovedDirs++
				continue
			}

			if kind == mirroredFile {
				continue
			}

			if err := m.removeFile(dst); err != nil {
				return result, err
			}
			result.Removed++
		}

		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return result, nil
}

type mirrorKind int

const (
	notMirrored mirrorKind = iota
	mirroredFile
	mirroredDir
)

// mirroredKind returns what Reconcile makes of the source entry at `src`.
// It mirrors the rules in resolve.
func (m *Mirror) mirroredKind(src string) (mirrorKind, error) {
	fi, err := m.lstat(src)
	if err != nil || fi == nil {
		return notMirrored, err
	}

	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := m.stat(src)
		if err != nil || target == nil || !target.Mode().IsRegular() {
			return notMirrored, err
		}
		return mirroredFile, nil
	case fi.IsDir():
		return mirroredDir, nil
	case fi.Mode().IsRegular():
		return mirroredFile, nil
	default:
		return notMirrored, nil
	}
}
