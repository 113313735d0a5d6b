package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"bundlekit"
	"bundlekit/internal/config"
)

func runInit(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions("init", args, groupInit, stdout)
	if code, ok := handleParseError(err, opts, stdout, stderr); !ok {
		return code
	}
	if len(opts.Args) > 1 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", opts.Args[1:])
		return exitUsage
	}

	path := config.DefaultFileName
	if opts.ConfigPath != "" {
		path = opts.ConfigPath
	}
	if len(opts.Args) == 1 {
		path = filepath.Join(opts.Args[0], config.DefaultFileName)
	}
	if err := writeDefaultConfig(path, opts.Force); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return exitOK
}

func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, bundlekit.DefaultConfig, 0o644)
}
