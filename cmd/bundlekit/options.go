package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"bundlekit/internal/cli"
	"bundlekit/internal/config"
	"bundlekit/internal/logging"
	"bundlekit/internal/version"
)

type flagGroup int

const (
	groupServer flagGroup = 1 << iota
	groupBuild
	groupInit
)

type options struct {
	Command      string
	ConfigPath   string
	Port         int
	Host         string
	OutDir       string
	NoLiveReload bool
	NoBuild      bool
	Minify       bool
	Sourcemap    bool
	Force        bool
	Verbosity    *cli.VerbosityFlags
	Help         bool
	Version      bool
	Set          map[string]bool
	Args         []string
}

type helpOption struct {
	Name string
	Desc string
}

// usageError marks command line mistakes, which exit with status 2.
type usageError struct {
	err error
}

func (e usageError) Error() string {
	return e.err.Error()
}

func (e usageError) Unwrap() error {
	return e.err
}

func parseOptions(name string, args []string, groups flagGroup, stdout io.Writer) (options, error) {
	if args == nil {
		args = []string{}
	}
	opts := options{Command: name}
	fs := flag.NewFlagSet("bundlekit "+name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.ConfigPath, "config", "", "Config file path")
	if groups&groupServer != 0 {
		fs.IntVar(&opts.Port, "port", 0, "Dev server port")
		fs.StringVar(&opts.Host, "host", "", "Dev server host")
		fs.BoolVar(&opts.NoLiveReload, "no-live-reload", false, "Disable live reload")
		fs.BoolVar(&opts.NoBuild, "no-build", false, "Skip the initial build")
	}
	if groups&(groupServer|groupBuild) != 0 {
		fs.StringVar(&opts.OutDir, "out-dir", "", "Output directory")
		fs.BoolVar(&opts.Minify, "minify", false, "Minify bundles")
		fs.BoolVar(&opts.Sourcemap, "sourcemap", false, "Write linked source maps")
	}
	if groups&groupInit != 0 {
		fs.BoolVar(&opts.Force, "force", false, "Overwrite an existing config file")
	}
	opts.Verbosity = cli.AddVerbosityFlags(fs)
	helpVersion := cli.AddHelpVersionFlags(fs, "", "")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printHelp(stdout, name, groups)
			return opts, flag.ErrHelp
		}
		return opts, usageError{err: err}
	}

	opts.Set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		opts.Set[f.Name] = true
	})
	opts.Help = helpVersion.Help
	opts.Version = helpVersion.Version
	opts.Args = fs.Args()

	if opts.Help {
		printHelp(stdout, name, groups)
		return opts, flag.ErrHelp
	}
	if err := opts.Verbosity.Validate(); err != nil {
		return opts, usageError{err: err}
	}
	if opts.Set["port"] && (opts.Port < 0 || opts.Port > 65535) {
		return opts, usageError{err: fmt.Errorf("invalid --port: must be between 0 and 65535")}
	}
	if opts.Set["host"] && strings.TrimSpace(opts.Host) == "" {
		return opts, usageError{err: fmt.Errorf("invalid --host: value cannot be empty")}
	}
	if opts.Set["out-dir"] && strings.TrimSpace(opts.OutDir) == "" {
		return opts, usageError{err: fmt.Errorf("invalid --out-dir: value cannot be empty")}
	}
	return opts, nil
}

// handleParseError reports parse failures. ok is false when the caller
// should return code immediately.
func handleParseError(err error, opts options, stdout, stderr io.Writer) (code int, ok bool) {
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		fmt.Fprintln(stderr, err)
		return exitUsage, false
	}
	if opts.Version {
		fmt.Fprintln(stdout, version.GetVersionInfo().String())
		return exitOK, false
	}
	return exitOK, true
}

// loadConfig resolves configuration with precedence default < file < env < flag.
func loadConfig(opts options, lookup func(string) (string, bool)) (config.Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		if raw, ok := lookup(config.EnvConfig); ok {
			path = strings.TrimSpace(raw)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cfg = config.ApplyEnv(cfg, lookup)
	applyFlags(&cfg, opts)
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.Set["port"] {
		cfg.DevServer.Port = opts.Port
		cfg.SetSource(config.KeyPort, config.SourceFlag)
	}
	if opts.Set["host"] {
		cfg.DevServer.Host = strings.TrimSpace(opts.Host)
		cfg.SetSource(config.KeyHost, config.SourceFlag)
	}
	if opts.Set["out-dir"] {
		cfg.Output.Dir = strings.TrimSpace(opts.OutDir)
		cfg.SetSource(config.KeyOutputDir, config.SourceFlag)
	}
	if opts.Set["no-live-reload"] {
		cfg.DevServer.LiveReload = !opts.NoLiveReload
		cfg.SetSource(config.KeyLiveReload, config.SourceFlag)
	}
	if opts.Set["minify"] {
		cfg.Build.Minify = opts.Minify
		cfg.SetSource(config.KeyMinify, config.SourceFlag)
	}
	if opts.Set["sourcemap"] {
		cfg.Build.Sourcemap = opts.Sourcemap
		cfg.SetSource(config.KeySourcemap, config.SourceFlag)
	}
	if opts.Verbosity.Set() {
		cfg.LogLevel = string(opts.Verbosity.Level(logging.LevelInfo))
		cfg.SetSource(config.KeyLogLevel, config.SourceFlag)
	}
}

func newLogger(cfg config.Config, output io.Writer) *logging.Logger {
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logging.LevelInfo
	}
	return logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), level, output)
}

func logConfigSources(logger *logging.Logger, cfg config.Config) {
	if logger == nil || !logger.Enabled(logging.LevelDebug) {
		return
	}
	fields := map[string]string{}
	for _, key := range config.TrackedKeys() {
		source := cfg.Sources[key]
		if source == "" {
			source = config.SourceDefault
		}
		fields[key] = string(source)
	}
	logger.Debug("config sources", fields)
}

func printHelp(out io.Writer, name string, groups flagGroup) {
	if out == nil {
		return
	}
	switch name {
	case "serve":
		fmt.Fprintln(out, "Usage: bundlekit [serve] [options]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Build the entries, watch sources and serve the output with live reload.")
	case "build":
		fmt.Fprintln(out, "Usage: bundlekit build [options]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Build every entry once.")
	case "init":
		fmt.Fprintln(out, "Usage: bundlekit init [--force]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Write the default "+config.DefaultFileName+" to the working directory.")
	case "route":
		fmt.Fprintln(out, "Usage: bundlekit route [options] PATH...")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Print the file the dev server serves for each request path.")
	case "loaders":
		fmt.Fprintln(out, "Usage: bundlekit loaders [options] FILE...")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Print the loader chain applied to each file.")
	case "config validate":
		fmt.Fprintln(out, "Usage: bundlekit config validate [options]")
	case "config schema":
		fmt.Fprintln(out, "Usage: bundlekit config schema")
	default:
		fmt.Fprintf(out, "Usage: bundlekit %s [options]\n", name)
	}
	if name == "serve" {
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Commands:")
		for _, option := range []helpOption{
			{Name: "serve", Desc: "Run the dev server (default)"},
			{Name: "build", Desc: "Build once"},
			{Name: "config validate", Desc: "Check the config file"},
			{Name: "config schema", Desc: "Print the config JSON schema"},
			{Name: "init", Desc: "Write a default config file"},
			{Name: "route PATH...", Desc: "Show fallback routing for request paths"},
			{Name: "loaders FILE...", Desc: "Show the loader chain for files"},
		} {
			fmt.Fprintf(out, "  %-24s %s\n", option.Name, option.Desc)
		}
	}

	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	writeOptionGroup(out, "Config", []helpOption{
		{Name: "--config PATH", Desc: fmt.Sprintf("Config file (env: %s, default: %s)", config.EnvConfig, config.DefaultFileName)},
	})
	if groups&groupServer != 0 {
		writeOptionGroup(out, "Server", []helpOption{
			{Name: "--host HOST", Desc: fmt.Sprintf("Listen host (env: %s)", config.EnvHost)},
			{Name: "--port PORT", Desc: fmt.Sprintf("Listen port (env: %s)", config.EnvPort)},
			{Name: "--no-live-reload", Desc: fmt.Sprintf("Disable live reload (env: %s=false)", config.EnvLiveReload)},
			{Name: "--no-build", Desc: "Serve existing output without an initial build"},
		})
	}
	if groups&(groupServer|groupBuild) != 0 {
		writeOptionGroup(out, "Build", []helpOption{
			{Name: "--out-dir DIR", Desc: fmt.Sprintf("Output directory (env: %s)", config.EnvOutDir)},
			{Name: "--minify", Desc: "Minify bundles"},
			{Name: "--sourcemap", Desc: "Write linked source maps"},
		})
	}
	if groups&groupInit != 0 {
		writeOptionGroup(out, "Init", []helpOption{
			{Name: "--force", Desc: "Overwrite an existing config file"},
		})
	}
	writeOptionGroup(out, "General", []helpOption{
		{Name: "--verbose", Desc: fmt.Sprintf("Debug logging (env: %s)", config.EnvLogLevel)},
		{Name: "--quiet", Desc: "Warnings and errors only"},
		{Name: "-h, --help", Desc: "Show help"},
		{Name: "-v, --version", Desc: "Print version and exit"},
	})
}

func writeOptionGroup(out io.Writer, title string, options []helpOption) {
	if len(options) == 0 {
		return
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, title+":")
	for _, option := range options {
		fmt.Fprintf(out, "  %-24s %s\n", option.Name, option.Desc)
	}
}
