package devserver

import (
	"sync"
	"time"

	"bundlekit/internal/bundler"
	"bundlekit/internal/version"
)

// Status tracks build progress for the status endpoint.
type Status struct {
	mu       sync.Mutex
	started  time.Time
	building bool
	builds   int
	failures int
	last     *bundler.Result
}

type StatusSnapshot struct {
	Building   bool                `json:"building"`
	Builds     int                 `json:"builds"`
	Failures   int                 `json:"failures"`
	LastBuild  *BuildSummary       `json:"last_build,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	ServerTime time.Time           `json:"server_time"`
	Version    version.VersionInfo `json:"version"`
}

type BuildSummary struct {
	ID         string    `json:"id"`
	Started    time.Time `json:"started"`
	DurationMS int64     `json:"duration_ms"`
	OK         bool      `json:"ok"`
	Outputs    []string  `json:"outputs"`
	Errors     []string  `json:"errors,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
}

func NewStatus() *Status {
	return &Status{started: time.Now().UTC()}
}

func (s *Status) BeginBuild() {
	s.mu.Lock()
	s.building = true
	s.mu.Unlock()
}

// Record stores a finished build. Cancelled builds should not be recorded.
func (s *Status) Record(result bundler.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.building = false
	s.builds++
	if !result.OK() {
		s.failures++
	}
	stored := result
	s.last = &stored
}

// Abort clears the building flag without recording a result.
func (s *Status) Abort() {
	s.mu.Lock()
	s.building = false
	s.mu.Unlock()
}

func (s *Status) Last() (bundler.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return bundler.Result{}, false
	}
	return *s.last, true
}

func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := StatusSnapshot{
		Building:   s.building,
		Builds:     s.builds,
		Failures:   s.failures,
		StartedAt:  s.started,
		ServerTime: time.Now().UTC(),
		Version:    version.GetVersionInfo(),
	}
	if s.last != nil {
		outputs := s.last.Outputs
		if outputs == nil {
			outputs = []string{}
		}
		snapshot.LastBuild = &BuildSummary{
			ID:         s.last.ID,
			Started:    s.last.Started,
			DurationMS: s.last.Duration.Milliseconds(),
			OK:         s.last.OK(),
			Outputs:    outputs,
			Errors:     s.last.Errors,
			Warnings:   s.last.Warnings,
		}
	}
	return snapshot
}
