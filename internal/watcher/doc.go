// Package watcher watches source directories recursively and reports
// debounced changes, one callback per burst per watched root.
//
// The Watcher API is safe for concurrent use and delivers best-effort events:
// callers should treat a callback as "something under this root changed"
// rather than rely on seeing every individual file event.
package watcher
