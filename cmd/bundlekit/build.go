package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"bundlekit/internal/bundler"
	"bundlekit/internal/config"
	"bundlekit/internal/logging"
)

func runBuild(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions("build", args, groupBuild, stdout)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return buildOnce(ctx, cfg, logger, stdout)
}

func buildOnce(ctx context.Context, cfg config.Config, logger *logging.Logger, stdout io.Writer) int {
	b, err := newBundler(cfg, logger)
	if err != nil {
		logger.Error("bundler setup failed", map[string]string{"error": err.Error()})
		return exitFailure
	}
	defer b.Close()

	result, err := b.Build(ctx)
	if err != nil {
		var buildErr *bundler.BuildError
		if errors.As(err, &buildErr) {
			for _, message := range buildErr.Messages {
				fmt.Fprintln(stdout, message)
			}
		}
		return exitFailure
	}
	for _, output := range result.Outputs {
		fmt.Fprintln(stdout, output)
	}
	return exitOK
}

func newBundler(cfg config.Config, logger *logging.Logger) (*bundler.Bundler, error) {
	table, err := cfg.LoaderTable()
	if err != nil {
		return nil, err
	}
	return bundler.New(bundler.Options{
		Config: cfg,
		Table:  table,
		Logger: logger,
	})
}
