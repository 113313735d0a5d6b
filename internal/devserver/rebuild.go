package devserver

import (
	"context"
	"errors"
	"math"

	"bundlekit/internal/bundler"
	"bundlekit/internal/livereload"
	"bundlekit/internal/logging"
	"bundlekit/internal/metrics"
	"bundlekit/internal/watcher"

	"golang.org/x/time/rate"
)

// Builder runs one build. *bundler.Bundler satisfies it.
type Builder interface {
	Build(ctx context.Context) (bundler.Result, error)
}

type RebuilderOptions struct {
	Builder Builder
	Hub     *livereload.Hub
	Status  *Status
	Logger  *logging.Logger
	Metrics *metrics.Registry
	// RebuildsPerSecond caps the rebuild rate. Zero disables the limit.
	RebuildsPerSecond float64
}

// Rebuilder turns change notifications into rate-limited rebuilds. Changes
// that arrive while a build is running or waiting collapse into one
// follow-up build.
type Rebuilder struct {
	builder Builder
	hub     *livereload.Hub
	status  *Status
	logger  *logging.Logger
	metrics *metrics.Registry
	limiter *rate.Limiter
	pending chan struct{}
}

func NewRebuilder(options RebuilderOptions) *Rebuilder {
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	status := options.Status
	if status == nil {
		status = NewStatus()
	}
	limit := rate.Inf
	if options.RebuildsPerSecond > 0 && !math.IsInf(options.RebuildsPerSecond, 1) {
		limit = rate.Limit(options.RebuildsPerSecond)
	}
	return &Rebuilder{
		builder: options.Builder,
		hub:     options.Hub,
		status:  status,
		logger:  logger.Named("rebuild"),
		metrics: options.Metrics,
		limiter: rate.NewLimiter(limit, 1),
		pending: make(chan struct{}, 1),
	}
}

// Trigger requests a rebuild without blocking.
func (r *Rebuilder) Trigger() {
	select {
	case r.pending <- struct{}{}:
	default:
	}
}

// OnChange is a watcher callback.
func (r *Rebuilder) OnChange(event watcher.Event) {
	r.logger.Debug("change detected", map[string]string{
		"path": event.Path,
		"op":   event.Op.String(),
	})
	r.metrics.RecordChange()
	r.Trigger()
}

// Run performs triggered rebuilds until ctx is done.
func (r *Rebuilder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.pending:
		}
		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		_, _ = r.Rebuild(ctx)
	}
}

// Rebuild runs one build, records it and notifies live reload clients.
func (r *Rebuilder) Rebuild(ctx context.Context) (bundler.Result, error) {
	if r.builder == nil {
		return bundler.Result{}, errors.New("builder is required")
	}
	r.status.BeginBuild()
	r.metrics.RecordBuildStart()
	r.hub.Broadcast(livereload.Building())

	result, err := r.builder.Build(ctx)
	if err != nil && ctx.Err() != nil {
		r.status.Abort()
		r.metrics.RecordBuild(result.Duration, metrics.OutcomeCancelled)
		return result, err
	}
	r.status.Record(result)

	var buildErr *bundler.BuildError
	switch {
	case err == nil:
		r.metrics.RecordBuild(result.Duration, metrics.OutcomeOK)
		r.metrics.RecordReload()
		r.hub.Broadcast(livereload.Reload(result.ID))
	case errors.As(err, &buildErr):
		r.metrics.RecordBuild(result.Duration, metrics.OutcomeFailed)
		r.hub.Broadcast(livereload.Failed(result.ID, buildErr.Messages))
	default:
		r.metrics.RecordBuild(result.Duration, metrics.OutcomeFailed)
		r.logger.Error("rebuild failed", map[string]string{
			"error": err.Error(),
		})
		r.hub.Broadcast(livereload.Failed(result.ID, []string{err.Error()}))
	}
	return result, err
}
