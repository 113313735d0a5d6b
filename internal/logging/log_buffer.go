package logging

import "bundlekit/internal/buffer"

// LogBuffer keeps the most recent entries so the dev server can report them.
type LogBuffer struct {
	ring *buffer.Ring[LogEntry]
}

func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{ring: buffer.NewRing[LogEntry](size)}
}

func (b *LogBuffer) Add(entry LogEntry) {
	if b == nil {
		return
	}
	b.ring.Add(entry)
}

// List returns entries oldest first.
func (b *LogBuffer) List() []LogEntry {
	if b == nil {
		return nil
	}
	return b.ring.List()
}

// Tail returns at most n of the newest entries, oldest first.
func (b *LogBuffer) Tail(n int) []LogEntry {
	if b == nil {
		return nil
	}
	return b.ring.Tail(n)
}
