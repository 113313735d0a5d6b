// Package config loads bundlekit.toml (or .yaml) on top of the embedded
// defaults and applies environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"bundlekit/internal/loader"
)

const (
	DefaultFileName = "bundlekit.toml"
	nameToken       = "[name]"
)

type Config struct {
	Root      string            `toml:"root" yaml:"root" json:"root,omitempty" jsonschema:"description=Directory relative paths resolve against; defaults to the config file directory"`
	LogLevel  string            `toml:"log-level" yaml:"log-level" json:"log-level,omitempty" jsonschema:"enum=debug,enum=info,enum=warning,enum=error"`
	Entries   map[string]string `toml:"entries" yaml:"entries" json:"entries" jsonschema:"description=Entry name to source file"`
	Output    Output            `toml:"output" yaml:"output" json:"output"`
	Rules     []loader.RuleSpec `toml:"rules" yaml:"rules" json:"rules"`
	Build     Build             `toml:"build" yaml:"build" json:"build"`
	DevServer DevServer         `toml:"dev-server" yaml:"dev-server" json:"dev-server"`

	// Sources records where tracked keys got their value.
	Sources map[string]Source `toml:"-" yaml:"-" json:"-"`
}

type Output struct {
	Dir        string `toml:"dir" yaml:"dir" json:"dir"`
	Filename   string `toml:"filename" yaml:"filename" json:"filename" jsonschema:"description=Bundle file name; [name] is replaced by the entry name"`
	PublicPath string `toml:"public-path" yaml:"public-path" json:"public-path,omitempty"`
}

type Build struct {
	Minify           bool   `toml:"minify" yaml:"minify" json:"minify,omitempty"`
	Sourcemap        bool   `toml:"sourcemap" yaml:"sourcemap" json:"sourcemap,omitempty"`
	Target           string `toml:"target" yaml:"target" json:"target,omitempty" jsonschema:"example=es2017"`
	ComponentRuntime string `toml:"component-runtime" yaml:"component-runtime" json:"component-runtime,omitempty" jsonschema:"description=Module that provides createElement for SVG components"`
}

type DevServer struct {
	Host              string   `toml:"host" yaml:"host" json:"host,omitempty"`
	Port              int      `toml:"port" yaml:"port" json:"port" jsonschema:"minimum=0,maximum=65535"`
	ContentBase       string   `toml:"content-base" yaml:"content-base" json:"content-base,omitempty" jsonschema:"description=Directory served by the dev server; defaults to output.dir"`
	PublicPath        string   `toml:"public-path" yaml:"public-path" json:"public-path,omitempty"`
	AllowList         []string `toml:"allow-list" yaml:"allow-list" json:"allow-list" jsonschema:"description=File names served verbatim; everything else gets the fallback"`
	Fallback          string   `toml:"fallback" yaml:"fallback" json:"fallback"`
	LiveReload        bool     `toml:"live-reload" yaml:"live-reload" json:"live-reload"`
	Compress          bool     `toml:"compress" yaml:"compress" json:"compress"`
	Watch             []string `toml:"watch" yaml:"watch" json:"watch,omitempty"`
	Ignore            []string `toml:"ignore" yaml:"ignore" json:"ignore,omitempty"`
	Debounce          Duration `toml:"debounce" yaml:"debounce" json:"debounce,omitempty"`
	RebuildsPerSecond float64  `toml:"rebuilds-per-second" yaml:"rebuilds-per-second" json:"rebuilds-per-second,omitempty"`
}

// Path resolves p against Root.
func (c Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	root := c.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

func (c Config) OutputDir() string {
	return c.Path(c.Output.Dir)
}

func (c Config) ContentBaseDir() string {
	if strings.TrimSpace(c.DevServer.ContentBase) != "" {
		return c.Path(c.DevServer.ContentBase)
	}
	return c.OutputDir()
}

// OutputName returns the bundle file name for an entry.
func (c Config) OutputName(entry string) string {
	return strings.ReplaceAll(c.Output.Filename, nameToken, entry)
}

// EntryNames returns entry names in sorted order.
func (c Config) EntryNames() []string {
	names := make([]string, 0, len(c.Entries))
	for name := range c.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WatchDirs returns the watched directories resolved against Root. With no
// explicit watch list the directories holding the entry files are used.
func (c Config) WatchDirs() []string {
	seen := map[string]bool{}
	dirs := []string{}
	add := func(dir string) {
		if dir == "" || seen[dir] {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	if len(c.DevServer.Watch) > 0 {
		for _, dir := range c.DevServer.Watch {
			add(c.Path(dir))
		}
		return dirs
	}
	for _, name := range c.EntryNames() {
		add(filepath.Dir(c.Path(c.Entries[name])))
	}
	return dirs
}

// Addr returns the host:port the dev server listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.DevServer.Host, c.DevServer.Port)
}

// LoaderTable compiles the configured rules.
func (c Config) LoaderTable() (*loader.Table, error) {
	return loader.Compile(c.Rules)
}
