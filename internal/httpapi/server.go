// Package httpapi serves the browser UI and the JSON endpoints behind it:
// code search, file context and call hierarchy, plus Prometheus metrics and
// the MCP streamable HTTP transport.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dusk-indust/callscope/internal/callgraph"
	"github.com/dusk-indust/callscope/internal/codesearch"
	"github.com/dusk-indust/callscope/internal/webui"
)

// Defaults fills in query parameters the client leaves out.
// Zero fields select the package defaults (callgraph.DefaultMaxDepth,
// codesearch.DefaultLimit, codesearch.DefaultContextLines); config.Validate
// rejects zeros so a config file cannot ask for them and be ignored.
type Defaults struct {
	MaxDepth       int
	SearchLimit    int
	ContextLines   int
	RequestTimeout time.Duration // zero means no deadline
}

// shutdownGrace bounds how long in-flight requests may run after the serve
// context ends.
var shutdownGrace = 5 * time.Second

// Server is the HTTP front end.
type Server struct {
	engine   *callgraph.Engine
	searcher *codesearch.Searcher
	mcp      http.Handler
	defaults Defaults
	logger   *slog.Logger

	http *http.Server
}

// NewServer creates a Server. mcpHandler may be nil, in which case /mcp is
// not routed.
func NewServer(engine *callgraph.Engine, searcher *codesearch.Searcher, mcpHandler http.Handler, defaults Defaults, logger *slog.Logger) *Server {
	if defaults.MaxDepth == 0 {
		defaults.MaxDepth = callgraph.DefaultMaxDepth
	}
	if defaults.SearchLimit == 0 {
		defaults.SearchLimit = codesearch.DefaultLimit
	}
	if defaults.ContextLines == 0 {
		defaults.ContextLines = codesearch.DefaultContextLines
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:   engine,
		searcher: searcher,
		mcp:      mcpHandler,
		defaults: defaults,
		logger:   logger,
	}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /file-content", s.handleFileContent)
	mux.HandleFunc("GET /call-hierarchy", s.handleCallHierarchy)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.mcp != nil {
		mux.Handle("/mcp", s.mcp)
	}

	return s.withRequestID(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener. Request contexts do not
// derive from ctx, so in-flight requests may finish during shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when context is cancelled.
	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		err := s.http.Shutdown(shutdownCtx)
		if err != nil {
			s.logger.Warn("shutdown incomplete", slog.String("error", err.Error()))
		}
		done <- err
	}()

	s.logger.Info("listening", slog.String("addr", ln.Addr().String()))
	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		if err := <-done; err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
	return err
}

// withRequestID tags every request with an X-Request-ID, generating one when
// the client sent none, and logs the request when it completes.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers (MCP) flush through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(webui.Index())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", slog.String("error", err.Error()))
	}
}

func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.defaults.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.defaults.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
