package main

import (
	"fmt"
	"io"

	"bundlekit/internal/config"
)

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions("config validate", args, 0, stdout)
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

	fmt.Fprintf(stdout, "config ok: %d entries, %d rules\n", len(cfg.Entries), len(cfg.Rules))
	if opts.Verbosity.Verbose {
		for _, key := range config.TrackedKeys() {
			source := cfg.Sources[key]
			if source == "" {
				source = config.SourceDefault
			}
			fmt.Fprintf(stdout, "  %-24s %s\n", key, source)
		}
	}
	return exitOK
}

func runConfigSchema(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions("config schema", args, 0, stdout)
	if code, ok := handleParseError(err, opts, stdout, stderr); !ok {
		return code
	}
	schema, err := config.Schema()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	fmt.Fprintln(stdout, string(schema))
	return exitOK
}
