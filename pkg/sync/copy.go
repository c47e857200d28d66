package sync

import (
	"io"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// copyFile copies the contents, permission bits and modification time of
// `src` to `dst`. The parent of `dst` must already exist. It returns the
// number of bytes copied.
func copyFile(fs afero.Fs, src, dst string) (int64, error) {
	srcFile, err := fs.Open(src)
	if err != nil {
		return 0, errors.NewIOError("open source", src, err)
	}
	defer srcFile.Close()

	fileInfo, err := srcFile.Stat()
	if err != nil {
		return 0, errors.NewIOError("stat", src, err)
	}

	// An existing replica file may be read-only if its source was. Make it
	// writable so that it can be truncated. The source mode is restored
	// below.
	if err := fs.Chmod(dst, 0600); err != nil && !os.IsNotExist(err) {
		return 0, errors.NewIOError("set file mode", dst, err)
	}

	dstFile, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return 0, errors.NewIOError("open destination", dst, err)
	}

	n, err := io.Copy(dstFile, srcFile)
	if err != nil {
		dstFile.Close()
		return n, errors.NewIOError("copy", src, err)
	}

	if err := dstFile.Close(); err != nil {
		return n, errors.NewIOError("close", dst, err)
	}

	if err := fs.Chmod(dst, fileInfo.Mode().Perm()); err != nil {
		return n, errors.NewIOError("set file mode", dst, err)
	}

	if n != fileInfo.Size() {
		return n, errors.ErrFileChanged
	}

	// Change the modification time as the last step so that it doesn't get
	// reset by other file operations.
	if err := fs.Chtimes(dst, time.Now(), fileInfo.ModTime()); err != nil {
		return n, errors.NewIOError("set file modtime", dst, err)
	}
	return n, nil
}
