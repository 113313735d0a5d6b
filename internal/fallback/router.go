// Package fallback maps dev server request paths to files in the content base.
//
// A request whose path, minus its leading slash, names an allow-listed file
// is served that file. Every other request gets the fallback document, which
// lets a single-page application own its client-side routes.
package fallback

import (
	"path/filepath"
	"sort"
	"strings"
)

const DefaultFallback = "index.html"

type Options struct {
	ContentBase string
	AllowList   []string
	Fallback    string
}

// Router is immutable after New and safe for concurrent use.
type Router struct {
	base     string
	allowed  map[string]struct{}
	fallback string
}

func New(options Options) *Router {
	fallback := strings.TrimSpace(options.Fallback)
	if fallback == "" {
		fallback = DefaultFallback
	}
	allowed := make(map[string]struct{}, len(options.AllowList))
	for _, name := range options.AllowList {
		if name == "" {
			continue
		}
		allowed[name] = struct{}{}
	}
	return &Router{
		base:     options.ContentBase,
		allowed:  allowed,
		fallback: fallback,
	}
}

// Name returns the file name chosen for requestPath.
func (r *Router) Name(requestPath string) string {
	candidate := strings.TrimPrefix(requestPath, "/")
	if r.Allowed(candidate) {
		return candidate
	}
	return r.fallback
}

// Resolve returns the on-disk path served for requestPath.
func (r *Router) Resolve(requestPath string) string {
	return filepath.Join(r.base, filepath.FromSlash(r.Name(requestPath)))
}

// IsFallback reports whether requestPath resolves to the fallback document.
func (r *Router) IsFallback(requestPath string) bool {
	return !r.Allowed(strings.TrimPrefix(requestPath, "/"))
}

func (r *Router) Allowed(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.allowed[name]
	return ok
}

func (r *Router) Fallback() string {
	return r.fallback
}

func (r *Router) ContentBase() string {
	return r.base
}

// AllowList returns the allow-listed names in sorted order.
func (r *Router) AllowList() []string {
	names := make([]string, 0, len(r.allowed))
	for name := range r.allowed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
