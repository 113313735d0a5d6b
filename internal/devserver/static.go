package devserver

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"bundlekit/internal/fallback"
	"bundlekit/internal/livereload"
	"bundlekit/internal/logging"
)

// staticHandler maps every request through the fallback router: allow-listed
// names are served from the content base and anything else gets the
// fallback document.
type staticHandler struct {
	router     *fallback.Router
	publicPath string
	liveReload bool
	scriptSrc  string
	logger     *logging.Logger
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestPath := trimPublicPath(r.URL.Path, h.publicPath)
	name := h.router.Name(requestPath)
	filePath := h.router.Resolve(requestPath)
	setSecurityHeaders(w, cacheControlNoCache)

	file, err := os.Open(filePath)
	if err != nil {
		h.notFound(w, r, filePath, err)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		h.notFound(w, r, filePath, err)
		return
	}

	if h.liveReload && h.router.IsFallback(requestPath) && isHTML(name) {
		document, err := io.ReadAll(file)
		if err != nil {
			h.logger.Error("read fallback failed", map[string]string{
				"file":  filePath,
				"error": err.Error(),
			})
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		injected := livereload.InjectScript(document, h.scriptSrc)
		http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(injected))
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (h *staticHandler) notFound(w http.ResponseWriter, r *http.Request, filePath string, err error) {
	fields := map[string]string{
		"path": r.URL.Path,
		"file": filePath,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	h.logger.Warn("file not found", fields)
	http.NotFound(w, r)
}

// trimPublicPath strips the public path prefix so the router sees names
// relative to the content base.
func trimPublicPath(requestPath, publicPath string) string {
	publicPath = strings.TrimSuffix(strings.TrimSpace(publicPath), "/")
	if publicPath == "" {
		return requestPath
	}
	if requestPath == publicPath {
		return "/"
	}
	if trimmed, ok := strings.CutPrefix(requestPath, publicPath+"/"); ok {
		return "/" + trimmed
	}
	return requestPath
}

func isHTML(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}
