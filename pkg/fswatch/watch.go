package fswatch

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

var fs = afero.NewOsFs()

// Watcher reports changes within a directory tree.
type Watcher struct {
	watcher *fsnotify.Watcher

	// Updates receives a value whenever something in the tree changes.
	// Bursts of changes are combined, so a single receive may stand for
	// many changes.
	Updates <-chan struct{}
}

// Watch starts watching every directory under `root`, including `root`
// itself. Directories created later are added as they appear.
func Watch(root string) (*Watcher, error) {
	dirs, err := getDirsToWatch(root)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", dir))
		}
	}

	go func() {
		for err := range watcher.Errors {
			log.WithError(err).Debug("File watcher error")
		}
	}()

	addNewDirs := func(event fsnotify.Event) {
		if event.Op&fsnotify.Create == 0 {
			return
		}

		fi, err := fs.Stat(event.Name)
		if err != nil || !fi.IsDir() {
			return
		}

		newDirs, err := getDirsToWatch(event.Name)
		if err != nil {
			log.WithError(err).WithField("path", event.Name).Debug("Failed to list new directory")
			return
		}

		for _, dir := range newDirs {
			if err := watcher.Add(dir); err != nil {
				log.WithError(err).WithField("path", dir).Warn(
					"Failed to watch new directory. Changes in it will be " +
						"picked up by the next scheduled pass.")
			}
		}
	}

	return &Watcher{
		watcher: watcher,
		Updates: combineUpdates(watcher.Events, addNewDirs),
	}, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func combineUpdates(updates <-chan fsnotify.Event, onEvent func(fsnotify.Event)) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for event := range updates {
			onEvent(event)
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

// getDirsToWatch returns `root` and all directories under it. fsnotify
// doesn't watch directories recursively, so each one has to be added.
func getDirsToWatch(root string) (dirs []string, err error) {
	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if fi.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}
