package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"bundlekit/internal/logging"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
)

const (
	defaultDebounce   = 100 * time.Millisecond
	defaultMaxWatches = 4096
)

var (
	ErrMaxWatchesExceeded = errors.New("max watches exceeded")
	ErrClosed             = errors.New("watcher is closed")
)

// New creates a Watcher. Zero option values fall back to defaults.
func New(options Options) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	debounce := options.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	maxWatches := options.MaxWatches
	if maxWatches <= 0 {
		maxWatches = defaultMaxWatches
	}

	var matcher *ignore.GitIgnore
	if patterns := trimPatterns(options.Ignore); len(patterns) > 0 {
		matcher = ignore.CompileIgnoreLines(patterns...)
	}

	instance := &Watcher{
		watcher:    watcher,
		roots:      make(map[uint64]*rootEntry),
		dirs:       make(map[string]int),
		debouncer:  newDebouncer(debounce),
		events:     make(chan fsnotify.Event, 64),
		errors:     make(chan error, 4),
		done:       make(chan struct{}),
		logger:     logger.Named("watcher"),
		ignore:     matcher,
		maxWatches: maxWatches,
	}

	instance.startForwarder(watcher)
	go instance.run()
	return instance, nil
}

// Watch registers callback for changes anywhere under root.
func (watcher *Watcher) Watch(root string, callback func(Event)) (Handle, error) {
	if watcher == nil {
		return nil, errors.New("watcher is nil")
	}
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root is required")
	}
	if callback == nil {
		return nil, errors.New("callback is required")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("root must be a directory: " + root)
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil, ErrClosed
	}
	watcher.nextID++
	entry := &rootEntry{
		id:       watcher.nextID,
		root:     absRoot,
		callback: callback,
		dirs:     make(map[string]bool),
	}
	watcher.roots[entry.id] = entry
	watcher.mutex.Unlock()

	if err := watcher.addTree(entry, absRoot); err != nil {
		watcher.unregister(entry.id)
		return nil, err
	}
	watcher.logger.Debug("watching", map[string]string{
		"root": absRoot,
		"dirs": strconv.Itoa(len(entry.dirs)),
	})
	return &watchHandle{watcher: watcher, id: entry.id}, nil
}

type watchHandle struct {
	watcher *Watcher
	id      uint64
	once    sync.Once
}

func (handle *watchHandle) Close() error {
	if handle == nil || handle.watcher == nil {
		return nil
	}
	handle.once.Do(func() {
		handle.watcher.unregister(handle.id)
	})
	return nil
}

// Close shuts down the watcher and stops event processing.
func (watcher *Watcher) Close() error {
	if watcher == nil {
		return nil
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.closed = true
	watcher.debouncer.stop()
	watcher.mutex.Unlock()

	close(watcher.done)
	return watcher.watcher.Close()
}

func (watcher *Watcher) run() {
	for {
		select {
		case event := <-watcher.events:
			watcher.handleEvent(event)
		case err := <-watcher.errors:
			watcher.handleError(err)
		case <-watcher.done:
			return
		}
	}
}

func (watcher *Watcher) startForwarder(source *fsnotify.Watcher) {
	go func() {
		for {
			select {
			case event, ok := <-source.Events:
				if !ok {
					return
				}
				select {
				case watcher.events <- event:
				case <-watcher.done:
					return
				}
			case err, ok := <-source.Errors:
				if !ok {
					return
				}
				select {
				case watcher.errors <- err:
				case <-watcher.done:
					return
				}
			case <-watcher.done:
				return
			}
		}
	}()
}

func (watcher *Watcher) handleError(err error) {
	if err == nil {
		return
	}
	atomic.AddUint64(&watcher.errorCount, 1)
	watcher.logger.Warn("watch error", map[string]string{
		"error": err.Error(),
	})
}

// Metrics reports current watcher stats.
func (watcher *Watcher) Metrics() Metrics {
	if watcher == nil {
		return Metrics{}
	}
	watcher.mutex.Lock()
	active := len(watcher.dirs)
	watcher.mutex.Unlock()
	return Metrics{
		ActiveWatches:   active,
		EventsDelivered: atomic.LoadUint64(&watcher.eventsDelivered),
		EventsDropped:   atomic.LoadUint64(&watcher.eventsDropped),
		Errors:          atomic.LoadUint64(&watcher.errorCount),
	}
}

// ignored reports whether path, relative to root, matches an ignore pattern.
func (watcher *Watcher) ignored(root, path string, isDir bool) bool {
	if watcher.ignore == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		rel += "/"
	}
	return watcher.ignore.MatchesPath(rel)
}

func trimPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
