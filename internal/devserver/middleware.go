package devserver

import (
	"net/http"
	"strconv"
	"time"

	"bundlekit/internal/logging"
	"bundlekit/internal/metrics"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	cacheControlNoStore = "no-store, must-revalidate"
	cacheControlNoCache = "no-cache"
)

func setSecurityHeaders(w http.ResponseWriter, cacheControl string) {
	headers := w.Header()
	headers.Set("X-Content-Type-Options", "nosniff")
	if cacheControl != "" {
		headers.Set("Cache-Control", cacheControl)
	}
}

func securityHeadersHandler(cacheControl string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, cacheControl)
		next(w, r)
	}
}

func securityHeadersMiddleware(cacheControl string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, cacheControl)
		next.ServeHTTP(w, r)
	})
}

// requestObserver counts responses by status class and logs each request
// at debug level once it completes.
func requestObserver(logger *logging.Logger, registry *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			debug := logger != nil && logger.Enabled(logging.LevelDebug)
			if !debug && registry == nil {
				next.ServeHTTP(w, r)
				return
			}
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			registry.RecordResponse(status)
			if !debug {
				return
			}
			logger.Debug("request", map[string]string{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   strconv.Itoa(status),
				"bytes":    strconv.Itoa(ww.BytesWritten()),
				"duration": time.Since(started).Round(time.Microsecond).String(),
			})
		})
	}
}
