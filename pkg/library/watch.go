package library

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// reloadOps are the event kinds that trigger a reload. Events are
// coalesced at the kind level only; there is no debouncing.
const reloadOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

func (l *Library) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	l.watcher = watcher

	if err := l.addWatchesRecursive(); err != nil {
		watcher.Close()
		l.watcher = nil
		return err
	}

	go l.watchLoop()
	return nil
}

// addWatchesRecursive registers the whole tree. fsnotify watches single
// directories, so every subdirectory needs its own registration.
func (l *Library) addWatchesRecursive() error {
	return filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return l.watcher.Add(path)
		}
		return nil
	})
}

// watchLoop delivers events on the notifier's goroutine. It never holds
// the library's locks itself; Refresh acquires them internally. Watcher
// errors are logged and watching continues.
func (l *Library) watchLoop() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&reloadOps == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := l.watcher.Add(event.Name); err != nil {
						l.logger.Error("failed to watch new directory", "path", event.Name, "err", err)
					}
				}
			}
			if err := l.Refresh(); err != nil {
				l.logger.Error("failed to reload examples", "err", err)
			} else {
				l.logger.Debug("example directory change detected", "path", event.Name, "op", event.Op.String())
			}

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error("file watcher error", "err", err)

		case <-l.done:
			return
		}
	}
}
