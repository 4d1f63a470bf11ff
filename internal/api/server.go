// Package api exposes the evaluation pipeline over HTTP.
//
// The server wraps a pipeline.Runner and a run archive behind a small JSON
// API. It is the serve-mode surface of the stormflow binary; the CLI commands
// talk to the same Runner in-process.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perisponge/stormflow/pkg/pipeline"
	"github.com/perisponge/stormflow/pkg/store"
)

// Server holds the chi router, the evaluation runner, and the run archive.
type Server struct {
	router chi.Router
	runner *pipeline.Runner
	store  store.Store
	logger *log.Logger
}

// NewServer creates a Server with all routes configured.
// The store may be nil, in which case run archival endpoints return 404.
func NewServer(runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner: runner,
		store:  st,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/v1/evaluate", s.handleEvaluate)
	r.Post("/v1/table", s.handleTable)
	r.Get("/v1/runs", s.handleListRuns)
	r.Get("/v1/runs/{id}", s.handleGetRun)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

// ServeHTTP implements http.Handler, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully with a 10 second drain window.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
