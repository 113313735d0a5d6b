// Package metrics keeps dev server counters and renders them in the
// Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Build outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Registry is safe for concurrent use. A nil Registry ignores updates.
type Registry struct {
	buildsStarted      atomic.Int64
	buildDurationNanos atomic.Int64
	buildsFinished     atomic.Int64
	changes            atomic.Int64
	reloads            atomic.Int64
	outcomes           sync.Map
	responses          sync.Map
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) RecordBuildStart() {
	if r == nil {
		return
	}
	r.buildsStarted.Add(1)
}

// RecordBuild counts a finished build. Cancelled builds count toward the
// outcome but not the duration summary.
func (r *Registry) RecordBuild(duration time.Duration, outcome string) {
	if r == nil {
		return
	}
	if strings.TrimSpace(outcome) == "" {
		outcome = "unknown"
	}
	r.counter(&r.outcomes, outcome).Add(1)
	if outcome == OutcomeCancelled {
		return
	}
	r.buildsFinished.Add(1)
	r.buildDurationNanos.Add(duration.Nanoseconds())
}

func (r *Registry) RecordChange() {
	if r == nil {
		return
	}
	r.changes.Add(1)
}

func (r *Registry) RecordReload() {
	if r == nil {
		return
	}
	r.reloads.Add(1)
}

// RecordResponse counts an HTTP response by status class, e.g. "2xx".
func (r *Registry) RecordResponse(status int) {
	if r == nil {
		return
	}
	if status <= 0 {
		status = http.StatusOK
	}
	r.counter(&r.responses, strconv.Itoa(status/100)+"xx").Add(1)
}

// BuildCount returns finished builds for an outcome.
func (r *Registry) BuildCount(outcome string) int64 {
	if r == nil {
		return 0
	}
	value, ok := r.outcomes.Load(outcome)
	if !ok {
		return 0
	}
	return value.(*atomic.Int64).Load()
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "bundlekit_builds_started_total", "Total builds started", r.buildsStarted.Load())
	writeLabeled(writer, "bundlekit_builds_total", "Finished builds by outcome", "outcome", &r.outcomes)

	writeHelp(writer, "bundlekit_build_duration_seconds", "Build duration in seconds")
	fmt.Fprintln(writer, "# TYPE bundlekit_build_duration_seconds summary")
	durationSeconds := float64(r.buildDurationNanos.Load()) / float64(time.Second)
	fmt.Fprintf(writer, "bundlekit_build_duration_seconds_sum %.6f\n", durationSeconds)
	fmt.Fprintf(writer, "bundlekit_build_duration_seconds_count %d\n", r.buildsFinished.Load())

	writeCounter(writer, "bundlekit_source_changes_total", "Debounced source changes seen by the watcher", r.changes.Load())
	writeCounter(writer, "bundlekit_reloads_total", "Reload messages sent to browsers", r.reloads.Load())
	writeLabeled(writer, "bundlekit_http_responses_total", "HTTP responses by status class", "code", &r.responses)
	return nil
}

// Handler serves the registry in text exposition format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_ = r.WritePrometheus(w)
	})
}

func (r *Registry) counter(values *sync.Map, key string) *atomic.Int64 {
	value, _ := values.LoadOrStore(key, &atomic.Int64{})
	return value.(*atomic.Int64)
}

func sortedKeys(values *sync.Map) []string {
	var keys []string
	values.Range(func(key, value any) bool {
		if name, ok := key.(string); ok {
			keys = append(keys, name)
		}
		return true
	})
	sort.Strings(keys)
	return keys
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func writeLabeled(writer io.Writer, metric, help, label string, values *sync.Map) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	for _, key := range sortedKeys(values) {
		value, _ := values.Load(key)
		fmt.Fprintf(writer, "%s{%s=%s} %d\n", metric, label, formatLabel(key), value.(*atomic.Int64).Load())
	}
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
