package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Config holds router dependencies.
type Config struct {
	Service  QueryService
	Health   HealthChecker
	Info     HealthInfo
	Document string
	// MCP is mounted at /mcp when non-nil.
	MCP    http.Handler
	Logger zerolog.Logger
}

// NewRouter builds the HTTP handler serving every endpoint, wrapped in a
// permissive CORS policy and request logging.
func NewRouter(cfg Config) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/query", NewQueryHandler(cfg.Service, cfg.Logger)).Methods(http.MethodPost)
	r.HandleFunc("/health", NewHealthHandler(cfg.Health, cfg.Info)).Methods(http.MethodGet)
	r.HandleFunc("/", NewLandingHandler(LandingInfo{
		Document:  cfg.Document,
		Chunks:    cfg.Info.Chunks,
		Generator: cfg.Info.Generator,
		MCP:       cfg.MCP != nil,
	})).Methods(http.MethodGet)

	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Use(requestLogger(cfg.Logger))
	return cors.AllowAll().Handler(r)
}

func requestLogger(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("Request")
		})
	}
}

// statusRecorder captures the response status. It forwards Flush and Hijack
// so streaming transports keep working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }
