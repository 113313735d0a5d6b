package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"bundlekit/internal/bundler"
	"bundlekit/internal/config"
	"bundlekit/internal/devserver"
	"bundlekit/internal/livereload"
	"bundlekit/internal/logging"
	"bundlekit/internal/metrics"
	"bundlekit/internal/version"
	"bundlekit/internal/watcher"

	"golang.org/x/sync/errgroup"
)

func runServe(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions("serve", args, groupServer, stdout)
	if code, ok := handleParseError(err, opts, stdout, stderr); !ok {
		return code
	}
	if len(opts.Args) > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", opts.Args)
		return exitUsage
	}
	cfg, err := loadConfig(opts, nil)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	logger := newLogger(cfg, stderr)
	logConfigSources(logger, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	stopWatching := watchShutdownSignals(logger, cancel, signals)
	defer stopWatching()

	if err := serve(ctx, cfg, opts, logger, nil); err != nil {
		return exitFailure
	}
	return exitOK
}

// serve runs the dev server until ctx is done. ready, when set, receives
// the bound listener address.
func serve(ctx context.Context, cfg config.Config, opts options, logger *logging.Logger, ready func(addr string)) error {
	info := version.GetVersionInfo()
	logger.Info("bundlekit starting", map[string]string{
		"version": info.Version,
		"root":    cfg.Root,
	})

	b, err := newBundler(cfg, logger)
	if err != nil {
		logger.Error("bundler setup failed", map[string]string{"error": err.Error()})
		return err
	}
	defer b.Close()

	hub := livereload.NewHub()
	defer hub.Close()
	status := devserver.NewStatus()
	registry := metrics.NewRegistry()
	rebuilder := devserver.NewRebuilder(devserver.RebuilderOptions{
		Builder:           b,
		Hub:               hub,
		Status:            status,
		Logger:            logger,
		Metrics:           registry,
		RebuildsPerSecond: cfg.DevServer.RebuildsPerSecond,
	})

	if !opts.NoBuild {
		if _, err := rebuilder.Rebuild(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var buildErr *bundler.BuildError
			if !errors.As(err, &buildErr) {
				return err
			}
			logger.Warn("initial build failed; serving anyway", map[string]string{
				"errors": strconv.Itoa(len(buildErr.Messages)),
			})
		}
	}

	fsWatcher, err := watcher.New(watcher.Options{
		Logger:   logger,
		Debounce: cfg.DevServer.Debounce.Std(),
		Ignore:   cfg.DevServer.Ignore,
	})
	if err != nil {
		logger.Error("watcher setup failed", map[string]string{"error": err.Error()})
		return err
	}
	defer fsWatcher.Close()
	for _, dir := range cfg.WatchDirs() {
		if _, err := fsWatcher.Watch(dir, rebuilder.OnChange); err != nil {
			logger.Warn("watch failed", map[string]string{
				"dir":   dir,
				"error": err.Error(),
			})
		}
	}

	server := devserver.New(devserver.Options{
		Config:  cfg,
		Hub:     hub,
		Logger:  logger,
		Status:  status,
		Metrics: registry,
	})
	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		logger.Error("listen failed", map[string]string{
			"addr":  cfg.Addr(),
			"error": err.Error(),
		})
		return err
	}
	httpServer := server.HTTPServer(cfg.Addr())
	addr := listener.Addr().String()
	logger.Info("dev server listening", map[string]string{
		"addr":        addr,
		"url":         "http://" + addr + "/",
		"content":     cfg.ContentBaseDir(),
		"live_reload": strconv.FormatBool(cfg.DevServer.LiveReload),
	})
	if ready != nil {
		ready(addr)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return rebuilder.Run(groupCtx)
	})
	group.Go(func() error {
		runner := &ServerRunner{Logger: logger, ShutdownTimeout: httpServerShutdownTimeout}
		return runner.Run(groupCtx, ManagedServer{
			Name: "dev",
			Serve: func() error {
				return httpServer.Serve(listener)
			},
			Shutdown: func(shutdownCtx context.Context) error {
				hub.Close()
				return httpServer.Shutdown(shutdownCtx)
			},
		})
	})
	err = group.Wait()
	logger.Info("bundlekit stopped", nil)
	return err
}
