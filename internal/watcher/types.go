package watcher

import (
	"sync"
	"time"

	"bundlekit/internal/logging"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
)

// Event is the last filesystem change seen under Root before the debounce
// window closed.
type Event struct {
	Root      string
	Path      string
	Op        fsnotify.Op
	Timestamp time.Time
}

// Handle releases watcher resources for a registration.
type Handle interface {
	Close() error
}

// Options controls watcher behavior.
type Options struct {
	Logger   *logging.Logger
	Debounce time.Duration
	// Ignore holds gitignore-style patterns matched against paths relative
	// to each watched root.
	Ignore     []string
	MaxWatches int
}

// Metrics reports watcher counters.
type Metrics struct {
	ActiveWatches   int
	EventsDelivered uint64
	EventsDropped   uint64
	Errors          uint64
}

// Watcher is the concrete fsnotify-backed implementation.
type Watcher struct {
	watcher    *fsnotify.Watcher
	mutex      sync.Mutex
	roots      map[uint64]*rootEntry
	dirs       map[string]int
	debouncer  *debouncer
	events     chan fsnotify.Event
	errors     chan error
	done       chan struct{}
	closed     bool
	logger     *logging.Logger
	ignore     *ignore.GitIgnore
	maxWatches int
	nextID     uint64

	eventsDelivered uint64
	eventsDropped   uint64
	errorCount      uint64
}

type rootEntry struct {
	id       uint64
	root     string
	callback func(Event)
	dirs     map[string]bool
}
