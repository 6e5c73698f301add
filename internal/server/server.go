// Package server exposes the query and status HTTP surfaces: the
// execute-mode query endpoint, per-correlation-id intake status, and
// async HR job polling.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"cvintake/internal/config"
	"cvintake/internal/core"
	"cvintake/internal/logger"
	qrouter "cvintake/internal/router"
)

// QueryExecutor is the query-router surface the server fronts.
type QueryExecutor interface {
	Execute(ctx context.Context, req core.QueryRequest) (core.QueryResponse, error)
	PollHRJob(ctx context.Context, jobID string) (*core.HRJob, error)
}

// StatusStore reads intake records for the status endpoint.
type StatusStore interface {
	Get(ctx context.Context, correlationID string) (*core.IntakeRecord, error)
}

// CandidateSource reads candidate detail for completed intakes.
type CandidateSource interface {
	FetchEnriched(ctx context.Context, candidateIDs []string) ([]core.CandidateProfile, error)
	ListUnmatched(ctx context.Context, candidateID string) ([]core.UnmatchedItem, error)
	Close() error
}

// CandidateSourceFactory opens a fresh CandidateSource per request.
type CandidateSourceFactory func() (CandidateSource, error)

// Server is the HTTP front for the query router and the intake status
// store.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	queries    QueryExecutor
	state      StatusStore
	candidates CandidateSourceFactory
	cfg        config.Server
}

// New assembles the server with its middleware and routes.
func New(queries QueryExecutor, state StatusStore, candidates CandidateSourceFactory, cfg config.Server) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		queries:    queries,
		state:      state,
		candidates: candidates,
		cfg:        cfg,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/status/{correlationID}", s.handleStatus)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Get("/hr/jobs/{jobID}", s.handleHRJob)
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	log := logger.Get()
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

var _ QueryExecutor = (*qrouter.Router)(nil)
