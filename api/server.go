// Package api exposes stored simulation runs and the dispatch optimizer over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	corelogger "github.com/kilianp07/microgrid/core/logger"
	"github.com/kilianp07/microgrid/core/model"
	"github.com/kilianp07/microgrid/core/runlog"
)

// Solver computes dispatch decisions.
type Solver interface {
	Solve(p model.DispatchProblem) (model.DispatchSolution, error)
}

// Config holds the HTTP listener settings.
type Config struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
	// Token enables bearer authentication on /api when non-empty.
	Token   string        `json:"token"`
	Timeout time.Duration `json:"timeout"`
}

// SetDefaults fills in the listen address and request timeout.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Server serves the run and dispatch endpoints.
type Server struct {
	cfg    Config
	store  runlog.RunStore
	solver Solver
	log    corelogger.Logger
}

// NewServer builds a Server. A nil logger disables logging.
func NewServer(cfg Config, store runlog.RunStore, solver Solver, log corelogger.Logger) *Server {
	cfg.SetDefaults()
	return &Server{cfg: cfg, store: store, solver: solver, log: corelogger.OrNop(log)}
}

// Handler returns the routed handler wrapped with CORS.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Timeout))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/traces", s.handleAllTraces)
		r.Get("/runs/{id}/traces/{kind}", s.handleTraces)
		r.Get("/runs/{id}/openings", s.handleOpenings)
		r.Post("/dispatch", s.handleDispatch)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(r)
}

// ListenAndServe serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
	}()
	s.log.Infof("serving api on %s", s.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// authenticate requires "Bearer <token>" when a token is configured.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
