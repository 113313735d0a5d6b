package bundlekit

import "embed"

// DefaultConfig is the bundlekit.toml written by `bundlekit init` and used
// as the base layer for every loaded configuration.
//
//go:embed config/bundlekit.toml
var DefaultConfig []byte

// ClientFS provides the browser-side live reload client.
//
//go:embed client
var ClientFS embed.FS
