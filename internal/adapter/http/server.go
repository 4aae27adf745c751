// Package http serves the optional status endpoint: a read-only view of
// the current migration run plus a WebSocket feed of progress events.
// There is no command surface; runs are driven from the CLI only.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options configures the status server.
type Options struct {
	Addr     string
	Version  string
	Snapshot func() any       // current run state served at /api/v1/run
	WS       http.HandlerFunc // progress socket, mounted at /ws when set
	Logger   *slog.Logger
	Use      []func(http.Handler) http.Handler // extra middleware, e.g. tracing
}

// Server is the status HTTP server.
type Server struct {
	httpSrv  *http.Server
	logger   *slog.Logger
	version  string
	snapshot func() any
}

// NewServer builds the status server with its routes mounted.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		logger:   log,
		version:  opts.Version,
		snapshot: opts.Snapshot,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Logger)
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeaders)
	for _, mw := range opts.Use {
		r.Use(mw)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Get("/health", s.handleHealth)
		r.Get("/api/v1/run", s.handleRun)
	})

	// The socket lives outside the timeout group so long-lived
	// connections are not cut off mid-run.
	if opts.WS != nil {
		r.Get("/ws", opts.WS)
	}

	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Start begins serving in the background and returns immediately.
// Listen failures are logged, not returned; a broken status endpoint
// must never abort a migration run.
func (s *Server) Start() {
	go func() {
		s.logger.Info("status server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, _ *http.Request) {
	if s.snapshot == nil {
		writeJSON(w, http.StatusOK, map[string]string{"state": "idle"})
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot())
}
