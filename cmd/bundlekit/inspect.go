package main

import (
	"fmt"
	"io"
	"path/filepath"

	"bundlekit/internal/devserver"
	"bundlekit/internal/loader"
)

// runRoute prints what the dev server would serve for each request path.
func runRoute(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions("route", args, 0, stdout)
	if code, ok := handleParseError(err, opts, stdout, stderr); !ok {
		return code
	}
	if len(opts.Args) == 0 {
		fmt.Fprintln(stderr, "route requires at least one request path")
		return exitUsage
	}
	cfg, err := loadConfig(opts, nil)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	router := devserver.RouterFor(cfg)
	for _, requestPath := range opts.Args {
		kind := "allow"
		if router.IsFallback(requestPath) {
			kind = "fallback"
		}
		fmt.Fprintf(stdout, "%s -> %s (%s)\n", requestPath, filepath.ToSlash(router.Resolve(requestPath)), kind)
	}
	return exitOK
}

// runLoaders prints the tool chain the first matching rule applies to each
// file, or "none" when esbuild's defaults apply.
func runLoaders(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions("loaders", args, 0, stdout)
	if code, ok := handleParseError(err, opts, stdout, stderr); !ok {
		return code
	}
	if len(opts.Args) == 0 {
		fmt.Fprintln(stderr, "loaders requires at least one file")
		return exitUsage
	}
	cfg, err := loadConfig(opts, nil)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	table, err := cfg.LoaderTable()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	for _, file := range opts.Args {
		rule, ok := table.Match(loader.NormalizePath(file))
		if !ok {
			fmt.Fprintf(stdout, "%s: none\n", file)
			continue
		}
		fmt.Fprintf(stdout, "%s: %s (rule %d)\n", file, rule.Chain(), rule.Index)
	}
	return exitOK
}
