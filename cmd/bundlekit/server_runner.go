package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bundlekit/internal/logging"
)

const httpServerShutdownTimeout = 5 * time.Second

// ManagedServer is a blocking Serve paired with its graceful Shutdown.
type ManagedServer struct {
	Name     string
	Serve    func() error
	Shutdown func(context.Context) error
}

type ServerRunner struct {
	Logger          *logging.Logger
	ShutdownTimeout time.Duration
}

// Run serves until stop is done or a server fails, then shuts every server
// down. It returns the first unexpected serve error.
func (runner *ServerRunner) Run(stop context.Context, servers ...ManagedServer) error {
	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(servers))
	started := 0
	for _, server := range servers {
		if server.Serve == nil {
			continue
		}
		started++
		go func(server ManagedServer) {
			results <- result{name: server.Name, err: server.Serve()}
		}(server)
	}
	if started == 0 {
		return nil
	}

	var failure error
	pending := started
	select {
	case res := <-results:
		pending--
		failure = runner.serveError(res.name, res.err)
	case <-stop.Done():
	}

	timeout := runner.ShutdownTimeout
	if timeout <= 0 {
		timeout = httpServerShutdownTimeout
	}
	shutdownContext, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, server := range servers {
		if server.Shutdown == nil {
			continue
		}
		if err := server.Shutdown(shutdownContext); err != nil && runner.Logger != nil {
			runner.Logger.Warn("server shutdown failed", map[string]string{
				"server": server.Name,
				"error":  err.Error(),
			})
		}
	}

	for ; pending > 0; pending-- {
		select {
		case res := <-results:
			if err := runner.serveError(res.name, res.err); err != nil && failure == nil {
				failure = err
			}
		case <-shutdownContext.Done():
			return failure
		}
	}
	return failure
}

func (runner *ServerRunner) serveError(name string, err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	if runner.Logger != nil {
		runner.Logger.Error("http server stopped", map[string]string{
			"server": name,
			"error":  err.Error(),
		})
	}
	return fmt.Errorf("%s server: %w", name, err)
}
