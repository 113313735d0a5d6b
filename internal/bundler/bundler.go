// Package bundler compiles the configured entry points with esbuild, routing
// every loaded file through the loader dispatch table.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"bundlekit/internal/config"
	"bundlekit/internal/loader"
	"bundlekit/internal/logging"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/uuid"
)

var errClosed = errors.New("bundler is closed")

type Options struct {
	Config config.Config
	// Table overrides the rules compiled from Config.
	Table  *loader.Table
	Logger *logging.Logger
}

// Result describes one build.
type Result struct {
	ID       string        `json:"id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Outputs  []string      `json:"outputs"`
	Errors   []string      `json:"errors,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// BuildError carries the formatted esbuild error messages.
type BuildError struct {
	Messages []string
}

func (e *BuildError) Error() string {
	switch len(e.Messages) {
	case 0:
		return "build failed"
	case 1:
		return "build failed: " + e.Messages[0]
	default:
		return fmt.Sprintf("build failed: %s (and %d more)", e.Messages[0], len(e.Messages)-1)
	}
}

// Bundler keeps an esbuild context between builds so rebuilds are
// incremental. Builds are serialized.
type Bundler struct {
	cfg     config.Config
	root    string
	outDir  string
	table   *loader.Table
	logger  *logging.Logger
	options api.BuildOptions

	mutex  sync.Mutex
	ctx    api.BuildContext
	closed bool
}

func New(options Options) (*Bundler, error) {
	cfg := options.Config
	if len(cfg.Entries) == 0 {
		return nil, config.ErrNoEntries
	}
	table := options.Table
	if table == nil {
		compiled, err := cfg.LoaderTable()
		if err != nil {
			return nil, fmt.Errorf("compile loader rules: %w", err)
		}
		table = compiled
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	root, err := filepath.Abs(cfg.Path("."))
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	outDir, err := filepath.Abs(cfg.OutputDir())
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	target, err := parseTarget(cfg.Build.Target)
	if err != nil {
		return nil, err
	}

	bundler := &Bundler{
		cfg:    cfg,
		root:   root,
		outDir: outDir,
		table:  table,
		logger: logger.Named("bundler"),
	}
	bundler.options = bundler.buildOptions(target)
	return bundler, nil
}

func (b *Bundler) buildOptions(target api.Target) api.BuildOptions {
	entries := make([]api.EntryPoint, 0, len(b.cfg.Entries))
	for _, name := range b.cfg.EntryNames() {
		entries = append(entries, api.EntryPoint{
			InputPath:  filepath.Join(b.root, filepath.FromSlash(b.cfg.Entries[name])),
			OutputPath: strings.TrimSuffix(b.cfg.OutputName(name), ".js"),
		})
	}

	options := api.BuildOptions{
		AbsWorkingDir:       b.root,
		EntryPointsAdvanced: entries,
		Outdir:              b.outDir,
		Bundle:              true,
		Write:               true,
		Target:              target,
		LogLevel:            api.LogLevelSilent,
		Plugins:             []api.Plugin{newLoaderPlugin(b.root, b.table, b.cfg.Build.ComponentRuntime)},
	}
	if b.cfg.Output.PublicPath != "" {
		options.PublicPath = b.cfg.Output.PublicPath
	}
	if b.cfg.Build.Minify {
		options.MinifyWhitespace = true
		options.MinifyIdentifiers = true
		options.MinifySyntax = true
	}
	if b.cfg.Build.Sourcemap {
		options.Sourcemap = api.SourceMapLinked
	}
	return options
}

// Build compiles every entry point. The returned Result is populated even
// when err is a *BuildError.
func (b *Bundler) Build(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return Result{}, errClosed
	}

	result := Result{
		ID:      uuid.NewString(),
		Started: time.Now().UTC(),
	}

	if b.ctx == nil {
		buildContext, ctxErr := api.Context(b.options)
		if ctxErr != nil {
			result.Errors = formatMessages(ctxErr.Errors)
			result.Duration = time.Since(result.Started)
			return result, &BuildError{Messages: result.Errors}
		}
		b.ctx = buildContext
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.ctx.Cancel()
		case <-done:
		}
	}()
	built := b.ctx.Rebuild()
	close(done)

	result.Duration = time.Since(result.Started)
	result.Errors = formatMessages(built.Errors)
	result.Warnings = formatMessages(built.Warnings)
	result.Outputs = b.relativeOutputs(built.OutputFiles)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	for _, warning := range result.Warnings {
		b.logger.Warn("build warning", map[string]string{"message": warning})
	}
	if !result.OK() {
		b.logger.Error("build failed", map[string]string{
			"build_id": result.ID,
			"errors":   strconv.Itoa(len(result.Errors)),
		})
		return result, &BuildError{Messages: result.Errors}
	}
	b.logger.Info("build finished", map[string]string{
		"build_id": result.ID,
		"duration": result.Duration.Round(time.Millisecond).String(),
		"outputs":  strings.Join(result.Outputs, ","),
	})
	return result, nil
}

// Close releases the esbuild context.
func (b *Bundler) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.ctx != nil {
		b.ctx.Dispose()
		b.ctx = nil
	}
}

func (b *Bundler) OutputDir() string {
	return b.outDir
}

func (b *Bundler) relativeOutputs(files []api.OutputFile) []string {
	outputs := make([]string, 0, len(files))
	for _, file := range files {
		rel, err := filepath.Rel(b.outDir, file.Path)
		if err != nil {
			rel = file.Path
		}
		outputs = append(outputs, filepath.ToSlash(rel))
	}
	if len(outputs) == 0 {
		for _, name := range b.cfg.EntryNames() {
			output := b.cfg.OutputName(name)
			if _, err := os.Stat(filepath.Join(b.outDir, output)); err == nil {
				outputs = append(outputs, output)
			}
		}
	}
	sort.Strings(outputs)
	return outputs
}

func formatMessages(messages []api.Message) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	for _, message := range messages {
		out = append(out, formatMessage(message))
	}
	return out
}

func formatMessage(message api.Message) string {
	text := message.Text
	if message.PluginName != "" {
		text = "[" + message.PluginName + "] " + text
	}
	if message.Location == nil {
		return text
	}
	return fmt.Sprintf("%s:%d:%d: %s", message.Location.File, message.Location.Line, message.Location.Column, text)
}

var targets = map[string]api.Target{
	"":       api.ES2017,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"esnext": api.ESNext,
}

func parseTarget(raw string) (api.Target, error) {
	target, ok := targets[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return 0, fmt.Errorf("unsupported build target %q", raw)
	}
	return target, nil
}
