package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bundlekit"
	"bundlekit/internal/loader"
	"bundlekit/internal/logging"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfig     = "BUNDLEKIT_CONFIG"
	EnvPort       = "BUNDLEKIT_PORT"
	EnvHost       = "BUNDLEKIT_HOST"
	EnvOutDir     = "BUNDLEKIT_OUT_DIR"
	EnvLiveReload = "BUNDLEKIT_LIVE_RELOAD"
	EnvLogLevel   = "BUNDLEKIT_LOG_LEVEL"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

// Defaults decodes the embedded default configuration.
func Defaults() (Config, error) {
	cfg := Config{}
	if _, err := toml.Decode(string(bundlekit.DefaultConfig), &cfg); err != nil {
		return Config{}, fmt.Errorf("decode default config: %w", err)
	}
	cfg.Sources = defaultSources()
	return cfg, nil
}

// Load reads path on top of the defaults. An empty path looks for
// bundlekit.toml in the working directory and falls back to the defaults
// when it is missing; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultFileName
	}

	cfg, err := Defaults()
	if err != nil {
		return Config{}, err
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			cfg.Root = "."
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = overlayTOML(&cfg, payload)
	case ".yaml", ".yml":
		err = overlayYAML(&cfg, payload)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	switch {
	case cfg.Root == "":
		cfg.Root = dir
	case !filepath.IsAbs(cfg.Root):
		cfg.Root = filepath.Join(dir, filepath.FromSlash(cfg.Root))
	}
	return cfg, nil
}

// Collections in a file replace the defaults instead of merging with them,
// so they are cleared before decoding and restored when the file omits them.
func overlayTOML(cfg *Config, payload []byte) error {
	entries, rules := cfg.Entries, cfg.Rules
	cfg.Entries, cfg.Rules = nil, nil

	meta, err := toml.Decode(string(payload), cfg)
	if err != nil {
		return err
	}
	restoreCollections(cfg, entries, rules)

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	for _, key := range trackedKeys {
		if meta.IsDefined(strings.Split(key, ".")...) {
			cfg.SetSource(key, SourceFile)
		}
	}
	return nil
}

func overlayYAML(cfg *Config, payload []byte) error {
	entries, rules := cfg.Entries, cfg.Rules
	cfg.Entries, cfg.Rules = nil, nil

	decoder := yaml.NewDecoder(bytes.NewReader(payload))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	restoreCollections(cfg, entries, rules)

	present := map[string]any{}
	if err := yaml.Unmarshal(payload, &present); err != nil {
		return err
	}
	for _, key := range trackedKeys {
		if hasNestedKey(present, strings.Split(key, ".")) {
			cfg.SetSource(key, SourceFile)
		}
	}
	return nil
}

func restoreCollections(cfg *Config, entries map[string]string, rules []loader.RuleSpec) {
	if cfg.Entries == nil {
		cfg.Entries = entries
	}
	if cfg.Rules == nil {
		cfg.Rules = rules
	}
}

func hasNestedKey(values map[string]any, path []string) bool {
	if len(path) == 0 {
		return false
	}
	value, ok := values[path[0]]
	if !ok {
		return false
	}
	if len(path) == 1 {
		return true
	}
	nested, ok := value.(map[string]any)
	if !ok {
		return false
	}
	return hasNestedKey(nested, path[1:])
}

// ApplyEnv overlays BUNDLEKIT_* variables. Unparseable values are ignored.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	sources := make(map[string]Source, len(cfg.Sources))
	for key, source := range cfg.Sources {
		sources[key] = source
	}
	cfg.Sources = sources

	if raw, ok := lookupTrimmed(lookup, EnvPort); ok {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 && parsed <= 65535 {
			cfg.DevServer.Port = parsed
			cfg.SetSource(KeyPort, SourceEnv)
		}
	}
	if raw, ok := lookupTrimmed(lookup, EnvHost); ok {
		cfg.DevServer.Host = raw
		cfg.SetSource(KeyHost, SourceEnv)
	}
	if raw, ok := lookupTrimmed(lookup, EnvOutDir); ok {
		cfg.Output.Dir = raw
		cfg.SetSource(KeyOutputDir, SourceEnv)
	}
	if raw, ok := lookupTrimmed(lookup, EnvLiveReload); ok {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			cfg.DevServer.LiveReload = parsed
			cfg.SetSource(KeyLiveReload, SourceEnv)
		}
	}
	if raw, ok := lookupTrimmed(lookup, EnvLogLevel); ok {
		if level, valid := logging.ParseLevel(raw); valid {
			cfg.LogLevel = string(level)
			cfg.SetSource(KeyLogLevel, SourceEnv)
		}
	}
	return cfg
}

func lookupTrimmed(lookup func(string) (string, bool), key string) (string, bool) {
	raw, ok := lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
