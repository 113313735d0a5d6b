package watcher

import (
	"io/fs"
	"path/filepath"
)

// addTree watches dir and every non-ignored directory below it for entry.
func (watcher *Watcher) addTree(entry *rootEntry, dir string) error {
	dirs, err := watcher.collectDirs(entry.root, dir)
	if err != nil {
		return err
	}
	for _, path := range dirs {
		if err := watcher.addDir(entry, path); err != nil {
			return err
		}
	}
	return nil
}

func (watcher *Watcher) collectDirs(root, start string) ([]string, error) {
	dirs := []string{}
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == start {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if watcher.ignored(root, path, true) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

func (watcher *Watcher) addDir(entry *rootEntry, path string) error {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return ErrClosed
	}
	if entry.dirs[path] {
		watcher.mutex.Unlock()
		return nil
	}
	count := watcher.dirs[path]
	if count == 0 && len(watcher.dirs) >= watcher.maxWatches {
		watcher.mutex.Unlock()
		return ErrMaxWatchesExceeded
	}
	watcher.dirs[path] = count + 1
	entry.dirs[path] = true
	watcher.mutex.Unlock()

	if count > 0 {
		return nil
	}
	if err := watcher.watcher.Add(path); err != nil {
		watcher.mutex.Lock()
		delete(entry.dirs, path)
		watcher.releaseDirLocked(path)
		watcher.mutex.Unlock()
		watcher.logger.Warn("watch add failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// unregister drops a root and any directories no other root still uses.
func (watcher *Watcher) unregister(id uint64) {
	watcher.mutex.Lock()
	entry, ok := watcher.roots[id]
	if !ok {
		watcher.mutex.Unlock()
		return
	}
	delete(watcher.roots, id)
	watcher.debouncer.cancel(debounceKey(id))
	var released []string
	for path := range entry.dirs {
		if watcher.releaseDirLocked(path) {
			released = append(released, path)
		}
	}
	closed := watcher.closed
	watcher.mutex.Unlock()

	if closed {
		return
	}
	for _, path := range released {
		if err := watcher.watcher.Remove(path); err != nil {
			// Deleted directories lose their watch on their own.
			watcher.logger.Debug("watch remove failed", map[string]string{
				"path":  path,
				"error": err.Error(),
			})
		}
	}
}

func (watcher *Watcher) releaseDirLocked(path string) bool {
	count := watcher.dirs[path]
	if count <= 1 {
		delete(watcher.dirs, path)
		return count == 1
	}
	watcher.dirs[path] = count - 1
	return false
}
