// Package devserver serves build output with the fallback router, streams
// live reload events and exposes build status over HTTP.
package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bundlekit/internal/config"
	"bundlekit/internal/fallback"
	"bundlekit/internal/livereload"
	"bundlekit/internal/logging"
	"bundlekit/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
)

// Internal routes live under a prefix no application path is expected to use.
const (
	RoutePrefix      = "/__bundlekit"
	WebSocketPath    = RoutePrefix + "/ws"
	ClientScriptPath = RoutePrefix + "/livereload.js"
	StatusPath       = RoutePrefix + "/status"
	LogsPath         = RoutePrefix + "/logs"
	MetricsPath      = RoutePrefix + "/metrics"
)

const defaultLogLimit = 100

type Options struct {
	Config  config.Config
	Router  *fallback.Router
	Hub     *livereload.Hub
	Logger  *logging.Logger
	Status  *Status
	Metrics *metrics.Registry
}

type Server struct {
	config  config.Config
	router  *fallback.Router
	hub     *livereload.Hub
	logger  *logging.Logger
	status  *Status
	metrics *metrics.Registry
	handler http.Handler
}

// New builds the dev server routes. A nil Router is derived from the
// dev-server section of the config.
func New(options Options) *Server {
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	router := options.Router
	if router == nil {
		router = RouterFor(options.Config)
	}
	status := options.Status
	if status == nil {
		status = NewStatus()
	}
	hub := options.Hub
	if hub == nil {
		hub = livereload.NewHub()
	}
	registry := options.Metrics
	if registry == nil {
		registry = metrics.NewRegistry()
	}

	server := &Server{
		config:  options.Config,
		router:  router,
		hub:     hub,
		logger:  logger.Named("devserver"),
		status:  status,
		metrics: registry,
	}
	server.handler = server.routes()
	return server
}

// RouterFor builds the fallback router described by cfg.
func RouterFor(cfg config.Config) *fallback.Router {
	return fallback.New(fallback.Options{
		ContentBase: cfg.ContentBaseDir(),
		AllowList:   cfg.DevServer.AllowList,
		Fallback:    cfg.DevServer.Fallback,
	})
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Hub() *livereload.Hub {
	return s.hub
}

func (s *Server) Status() *Status {
	return s.status
}

func (s *Server) Metrics() *metrics.Registry {
	return s.metrics
}

// HTTPServer wraps the handler with listener timeouts. Websocket
// connections are long lived, so no write timeout is set.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestObserver(s.logger, s.metrics))

	liveReload := s.config.DevServer.LiveReload
	if liveReload {
		r.Method(http.MethodGet, WebSocketPath, livereload.Handler(s.hub, s.logger))
		r.Method(http.MethodGet, ClientScriptPath, securityHeadersMiddleware(cacheControlNoCache, livereload.ScriptHandler()))
		r.Method(http.MethodHead, ClientScriptPath, securityHeadersMiddleware(cacheControlNoCache, livereload.ScriptHandler()))
	}
	r.Get(StatusPath, securityHeadersHandler(cacheControlNoStore, s.handleStatus))
	r.Get(LogsPath, securityHeadersHandler(cacheControlNoStore, s.handleLogs))
	r.Method(http.MethodGet, MetricsPath, securityHeadersMiddleware(cacheControlNoStore, s.metrics.Handler()))

	var static http.Handler = &staticHandler{
		router:     s.router,
		publicPath: s.config.DevServer.PublicPath,
		liveReload: liveReload,
		scriptSrc:  ClientScriptPath,
		logger:     s.logger,
	}
	if s.config.DevServer.Compress {
		static = gzhttp.GzipHandler(static)
	}
	r.Method(http.MethodGet, "/*", static)
	r.Method(http.MethodHead, "/*", static)
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Snapshot())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	entries := []logging.LogEntry{}
	if buffer := s.logger.Buffer(); buffer != nil {
		entries = append(entries, buffer.Tail(limit)...)
	}
	writeJSON(w, http.StatusOK, entries)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
