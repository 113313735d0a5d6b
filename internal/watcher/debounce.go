package watcher

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

type debounceEntry struct {
	timer *time.Timer
	event Event
}

type debouncer struct {
	duration time.Duration
	entries  map[string]debounceEntry
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		duration: duration,
		entries:  make(map[string]debounceEntry),
	}
}

func (debouncer *debouncer) schedule(key string, event Event, flush func(string)) bool {
	if debouncer == nil || debouncer.entries == nil {
		return false
	}
	entry := debouncer.entries[key]
	dropped := entry.timer != nil
	entry.event = event
	if entry.timer == nil {
		entry.timer = time.AfterFunc(debouncer.duration, func() {
			flush(key)
		})
	} else {
		entry.timer.Reset(debouncer.duration)
	}
	debouncer.entries[key] = entry
	return dropped
}

func (debouncer *debouncer) pop(key string) (Event, bool) {
	if debouncer == nil {
		return Event{}, false
	}
	entry, ok := debouncer.entries[key]
	if !ok {
		return Event{}, false
	}
	delete(debouncer.entries, key)
	return entry.event, true
}

func (debouncer *debouncer) cancel(key string) {
	if debouncer == nil {
		return
	}
	if entry, ok := debouncer.entries[key]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(debouncer.entries, key)
	}
}

func (debouncer *debouncer) stop() {
	if debouncer == nil {
		return
	}
	for _, entry := range debouncer.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	debouncer.entries = nil
}

func debounceKey(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func (watcher *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	var createdDir bool
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			createdDir = true
		}
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	var newDirRoots []*rootEntry
	for _, entry := range watcher.roots {
		if !isWithin(entry.root, event.Name) || watcher.ignored(entry.root, event.Name, createdDir) {
			continue
		}
		if createdDir {
			newDirRoots = append(newDirRoots, entry)
		}
		dropped := watcher.debouncer.schedule(debounceKey(entry.id), Event{
			Root:      entry.root,
			Path:      event.Name,
			Op:        event.Op,
			Timestamp: time.Now().UTC(),
		}, watcher.flush)
		if dropped {
			atomic.AddUint64(&watcher.eventsDropped, 1)
		}
	}
	watcher.mutex.Unlock()

	for _, entry := range newDirRoots {
		if err := watcher.addTree(entry, event.Name); err != nil {
			watcher.logger.Warn("watch new directory failed", map[string]string{
				"path":  event.Name,
				"error": err.Error(),
			})
		}
	}
}

func (watcher *Watcher) flush(key string) {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	event, ok := watcher.debouncer.pop(key)
	if !ok {
		watcher.mutex.Unlock()
		return
	}
	id, err := strconv.ParseUint(key, 10, 64)
	var callback func(Event)
	if err == nil {
		if entry, exists := watcher.roots[id]; exists {
			callback = entry.callback
		}
	}
	watcher.mutex.Unlock()

	if callback == nil {
		return
	}
	callback(event)
	atomic.AddUint64(&watcher.eventsDelivered, 1)
}

func isWithin(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
