// Package web implements the browser-facing HTTP surface (spec §6): SSE
// segment delivery, Range-requested recording playback, stream lifecycle
// control, and latency diagnostics. Grounded on the teacher's HTTP server
// shape where one exists (graceful ListenAndServe/Shutdown pair) and on
// tvarr's precedent of dropping to a bare chi.Router for endpoints a
// higher-level API framework can't serve cleanly (streaming, Range,
// SSE) — this project has no OpenAPI layer in its dependency stack, so
// every route here is a raw http.HandlerFunc.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chengang12345632/media-test-sub001/internal/latency"
	"github.com/chengang12345632/media-test-sub001/internal/logger"
	"github.com/chengang12345632/media-test-sub001/internal/stream"
	"github.com/chengang12345632/media-test-sub001/internal/transport"
)

// Config holds the HTTP server's tuning knobs and collaborators.
type Config struct {
	ListenAddr      string
	StorageRoot     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.StorageRoot == "" {
		c.StorageRoot = "./test-videos"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		// SSE connections are long-lived; WriteTimeout must not cut them off.
		c.WriteTimeout = 0
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Server is the platform's browser-facing HTTP API (spec §6 route table).
type Server struct {
	cfg Config

	handler  *stream.Handler
	listener *transport.Listener
	stats    *latency.StatisticsManager
	alerts   *latency.AlertBroadcaster
	monitor  *latency.Monitor

	router     *chi.Mux
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer wires a chi router over the stream handler, the QUIC listener's
// device bookkeeping, and the latency diagnostics collaborators.
func NewServer(cfg Config, handler *stream.Handler, listener *transport.Listener, stats *latency.StatisticsManager, alerts *latency.AlertBroadcaster, monitor *latency.Monitor, log *slog.Logger) *Server {
	cfg.applyDefaults()
	if log == nil {
		log = logger.Logger()
	}

	s := &Server{
		cfg:      cfg,
		handler:  handler,
		listener: listener,
		stats:    stats,
		alerts:   alerts,
		monitor:  monitor,
		log:      log.With("component", "web"),
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(corsMiddleware)
	s.router = router
	s.registerRoutes()

	return s
}

// Router exposes the underlying chi router, e.g. for tests.
func (s *Server) Router() *chi.Mux { return s.router }

// Start launches the HTTP server in a background goroutine.
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	go func() {
		s.log.Info("starting http server", "addr", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server exited", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down within cfg.ShutdownTimeout.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware mirrors the teacher's permissive demo CORS posture
// (spec carries no auth model): allow any origin, the methods and
// headers the JSON + SSE endpoints need.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
