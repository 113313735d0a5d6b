package config

import (
	"errors"
	"fmt"
	"strings"

	"bundlekit/internal/loader"
	"bundlekit/internal/logging"
)

var (
	ErrNoEntries       = errors.New("at least one entry is required")
	ErrInvalidFilename = errors.New("invalid output filename")
	ErrInvalidPort     = errors.New("invalid dev-server port")
	ErrInvalidAllow    = errors.New("invalid allow-list entry")
)

// Validate reports every problem in cfg at once.
func Validate(cfg Config) error {
	var errs []error

	if len(cfg.Entries) == 0 {
		errs = append(errs, ErrNoEntries)
	}
	for _, name := range cfg.EntryNames() {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("entry name cannot be empty"))
			continue
		}
		if strings.TrimSpace(cfg.Entries[name]) == "" {
			errs = append(errs, fmt.Errorf("entry %q: source path is required", name))
		}
	}

	errs = append(errs, validateOutput(cfg)...)

	if _, err := loader.Compile(cfg.Rules); err != nil {
		errs = append(errs, fmt.Errorf("rules: %w", err))
	}

	server := cfg.DevServer
	if server.Port < 0 || server.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidPort, server.Port))
	}
	if strings.TrimSpace(server.Fallback) == "" {
		errs = append(errs, errors.New("dev-server fallback is required"))
	} else if err := validateFileName(server.Fallback); err != nil {
		errs = append(errs, fmt.Errorf("dev-server fallback: %w", err))
	}
	for _, name := range server.AllowList {
		if err := validateFileName(name); err != nil {
			errs = append(errs, fmt.Errorf("%w %q: %v", ErrInvalidAllow, name, err))
		}
	}
	if server.PublicPath != "" && !strings.HasPrefix(server.PublicPath, "/") {
		errs = append(errs, fmt.Errorf("dev-server public-path %q must start with /", server.PublicPath))
	}
	if server.Debounce < 0 {
		errs = append(errs, errors.New("dev-server debounce cannot be negative"))
	}
	if server.RebuildsPerSecond < 0 {
		errs = append(errs, errors.New("dev-server rebuilds-per-second cannot be negative"))
	}

	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			errs = append(errs, fmt.Errorf("invalid log-level %q", cfg.LogLevel))
		}
	}

	return errors.Join(errs...)
}

func validateOutput(cfg Config) []error {
	var errs []error
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		errs = append(errs, errors.New("output dir is required"))
	}
	filename := cfg.Output.Filename
	switch {
	case strings.TrimSpace(filename) == "":
		errs = append(errs, fmt.Errorf("%w: filename is required", ErrInvalidFilename))
	case !strings.HasSuffix(filename, ".js"):
		errs = append(errs, fmt.Errorf("%w: %q must end in .js", ErrInvalidFilename, filename))
	case len(cfg.Entries) > 1 && !strings.Contains(filename, nameToken):
		errs = append(errs, fmt.Errorf("%w: %q must contain %s with more than one entry", ErrInvalidFilename, filename, nameToken))
	}
	return errs
}

// Allow-listed names are compared against the request path minus its
// leading slash, so they are plain file names.
func validateFileName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.New("name is empty")
	case strings.ContainsAny(name, `/\`):
		return errors.New("name must not contain a path separator")
	case name == "." || name == "..":
		return errors.New("name must not be a relative directory")
	}
	return nil
}
