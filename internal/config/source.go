package config

type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// Keys whose origin is tracked for `bundlekit config validate --verbose`
// and overridable from the environment or command line.
const (
	KeyLogLevel   = "log-level"
	KeyOutputDir  = "output.dir"
	KeyHost       = "dev-server.host"
	KeyPort       = "dev-server.port"
	KeyLiveReload = "dev-server.live-reload"
	KeyMinify     = "build.minify"
	KeySourcemap  = "build.sourcemap"
)

var trackedKeys = []string{KeyLogLevel, KeyOutputDir, KeyHost, KeyPort, KeyLiveReload, KeyMinify, KeySourcemap}

// TrackedKeys returns the keys whose source is recorded, in display order.
func TrackedKeys() []string {
	return append([]string(nil), trackedKeys...)
}

func defaultSources() map[string]Source {
	sources := make(map[string]Source, len(trackedKeys))
	for _, key := range trackedKeys {
		sources[key] = SourceDefault
	}
	return sources
}

// SetSource records the origin of key.
func (c *Config) SetSource(key string, source Source) {
	if c.Sources == nil {
		c.Sources = defaultSources()
	}
	c.Sources[key] = source
}
