// Package buffer provides a fixed-size ring that keeps the newest entries.
package buffer

import "sync"

// Ring is safe for concurrent use. Once full, each Add overwrites the
// oldest entry.
type Ring[T any] struct {
	mu      sync.Mutex
	entries []T
	start   int
	count   int
}

func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 1
	}
	return &Ring[T]{
		entries: make([]T, size),
	}
}

func (r *Ring[T]) Add(entry T) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < len(r.entries) {
		r.entries[(r.start+r.count)%len(r.entries)] = entry
		r.count++
		return
	}
	r.entries[r.start] = entry
	r.start = (r.start + 1) % len(r.entries)
}

func (r *Ring[T]) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Ring[T]) Cap() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// List returns entries oldest first.
func (r *Ring[T]) List() []T {
	return r.Tail(0)
}

// Tail returns at most n of the newest entries, oldest first. n <= 0
// returns everything.
func (r *Ring[T]) Tail(n int) []T {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}
	skip := 0
	if n > 0 && n < r.count {
		skip = r.count - n
	}
	out := make([]T, r.count-skip)
	for i := range out {
		out[i] = r.entries[(r.start+skip+i)%len(r.entries)]
	}
	return out
}
