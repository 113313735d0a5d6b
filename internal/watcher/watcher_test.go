package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
	signal chan struct{}
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{signal: make(chan struct{}, 16)}
}

func (recorder *eventRecorder) record(event Event) {
	recorder.mu.Lock()
	recorder.events = append(recorder.events, event)
	recorder.mu.Unlock()
	select {
	case recorder.signal <- struct{}{}:
	default:
	}
}

func (recorder *eventRecorder) snapshot() []Event {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return append([]Event(nil), recorder.events...)
}

func (recorder *eventRecorder) wait(t *testing.T, timeout time.Duration) Event {
	t.Helper()
	select {
	case <-recorder.signal:
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
	}
	events := recorder.snapshot()
	return events[len(events)-1]
}

func newTestWatcher(t *testing.T, options Options) *Watcher {
	t.Helper()
	if options.Debounce == 0 {
		options.Debounce = 20 * time.Millisecond
	}
	watcher, err := New(options)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() {
		_ = watcher.Close()
	})
	return watcher
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestWatchReportsFileChanges(t *testing.T) {
	root := t.TempDir()
	watcher := newTestWatcher(t, Options{})
	recorder := newEventRecorder()

	if _, err := watcher.Watch(root, recorder.record); err != nil {
		t.Fatalf("watch: %v", err)
	}

	path := filepath.Join(root, "index.js")
	writeFile(t, path, "console.log(1)")

	event := recorder.wait(t, 2*time.Second)
	if event.Root != root {
		t.Fatalf("expected root %q, got %q", root, event.Root)
	}
	if event.Path != path {
		t.Fatalf("expected path %q, got %q", path, event.Path)
	}
	if event.Timestamp.IsZero() {
		t.Fatalf("expected timestamp")
	}
}

func TestWatchAddsNewDirectories(t *testing.T) {
	root := t.TempDir()
	watcher := newTestWatcher(t, Options{})
	recorder := newEventRecorder()

	if _, err := watcher.Watch(root, recorder.record); err != nil {
		t.Fatalf("watch: %v", err)
	}
	before := watcher.Metrics().ActiveWatches

	nested := filepath.Join(root, "components")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return watcher.Metrics().ActiveWatches == before+1
	})
	recorder.wait(t, 2*time.Second)

	path := filepath.Join(nested, "button.js")
	writeFile(t, path, "export default 1")
	waitFor(t, 2*time.Second, func() bool {
		for _, event := range recorder.snapshot() {
			if event.Path == path {
				return true
			}
		}
		return false
	})
}

func TestWatchSkipsIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	modules := filepath.Join(root, "node_modules", "pkg")
	if err := os.MkdirAll(modules, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	watcher := newTestWatcher(t, Options{Ignore: []string{"node_modules/", "*.tmp"}})
	recorder := newEventRecorder()

	if _, err := watcher.Watch(root, recorder.record); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if got := watcher.Metrics().ActiveWatches; got != 1 {
		t.Fatalf("expected only root to be watched, got %d", got)
	}

	writeFile(t, filepath.Join(modules, "index.js"), "x")
	writeFile(t, filepath.Join(root, "scratch.tmp"), "x")
	time.Sleep(150 * time.Millisecond)
	if events := recorder.snapshot(); len(events) != 0 {
		t.Fatalf("expected no events, got %v", events)
	}

	path := filepath.Join(root, "app.js")
	writeFile(t, path, "x")
	event := recorder.wait(t, 2*time.Second)
	if event.Path != path {
		t.Fatalf("expected %q, got %q", path, event.Path)
	}
}

func TestWatchDebouncesBursts(t *testing.T) {
	root := t.TempDir()
	watcher := newTestWatcher(t, Options{Debounce: 200 * time.Millisecond})
	recorder := newEventRecorder()

	if _, err := watcher.Watch(root, recorder.record); err != nil {
		t.Fatalf("watch: %v", err)
	}

	path := filepath.Join(root, "main.js")
	for i := 0; i < 5; i++ {
		writeFile(t, path, string(rune('a'+i)))
	}
	recorder.wait(t, 2*time.Second)
	time.Sleep(300 * time.Millisecond)

	if got := len(recorder.snapshot()); got != 1 {
		t.Fatalf("expected 1 callback, got %d", got)
	}
	metrics := watcher.Metrics()
	if metrics.EventsDelivered != 1 {
		t.Fatalf("expected 1 delivered event, got %d", metrics.EventsDelivered)
	}
	if metrics.EventsDropped == 0 {
		t.Fatalf("expected coalesced events to be counted")
	}
}

func TestHandleCloseStopsDelivery(t *testing.T) {
	root := t.TempDir()
	watcher := newTestWatcher(t, Options{})
	recorder := newEventRecorder()

	handle, err := watcher.Watch(root, recorder.record)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("close handle: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if got := watcher.Metrics().ActiveWatches; got != 0 {
		t.Fatalf("expected no active watches, got %d", got)
	}

	writeFile(t, filepath.Join(root, "main.js"), "x")
	time.Sleep(100 * time.Millisecond)
	if events := recorder.snapshot(); len(events) != 0 {
		t.Fatalf("expected no events after close, got %v", events)
	}
}

func TestSharedDirectoriesAreReferenceCounted(t *testing.T) {
	root := t.TempDir()
	watcher := newTestWatcher(t, Options{})
	first := newEventRecorder()
	second := newEventRecorder()

	handle, err := watcher.Watch(root, first.record)
	if err != nil {
		t.Fatalf("watch first: %v", err)
	}
	if _, err := watcher.Watch(root, second.record); err != nil {
		t.Fatalf("watch second: %v", err)
	}
	if got := watcher.Metrics().ActiveWatches; got != 1 {
		t.Fatalf("expected shared watch, got %d", got)
	}
	_ = handle.Close()
	if got := watcher.Metrics().ActiveWatches; got != 1 {
		t.Fatalf("expected watch to remain for second root, got %d", got)
	}

	writeFile(t, filepath.Join(root, "main.js"), "x")
	second.wait(t, 2*time.Second)
	if events := first.snapshot(); len(events) != 0 {
		t.Fatalf("expected closed handle to stay quiet, got %v", events)
	}
}

func TestWatchValidation(t *testing.T) {
	watcher := newTestWatcher(t, Options{})
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	writeFile(t, file, "x")

	if _, err := watcher.Watch("", func(Event) {}); err == nil {
		t.Fatalf("expected error for empty root")
	}
	if _, err := watcher.Watch(root, nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
	if _, err := watcher.Watch(file, func(Event) {}); err == nil {
		t.Fatalf("expected error for file root")
	}
	if _, err := watcher.Watch(filepath.Join(root, "missing"), func(Event) {}); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestMaxWatches(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	watcher := newTestWatcher(t, Options{MaxWatches: 2})

	_, err := watcher.Watch(root, func(Event) {})
	if !errors.Is(err, ErrMaxWatchesExceeded) {
		t.Fatalf("expected ErrMaxWatchesExceeded, got %v", err)
	}
	if got := watcher.Metrics().ActiveWatches; got != 0 {
		t.Fatalf("expected failed watch to release dirs, got %d", got)
	}
}

func TestWatchAfterClose(t *testing.T) {
	watcher, err := New(Options{})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := watcher.Watch(t.TempDir(), func(Event) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
