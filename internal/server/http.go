// ============================================================================
// schedsim HTTP server
// ============================================================================
//
// Package: internal/server
// File: http.go
// Purpose: REST front-end over the process repository and the simulation
//          service
//
// Routes:
//   GET    /healthz
//   GET    /metrics                      (when a gatherer is configured)
//   GET    /api/v1/processes             list in ready-queue order
//   POST   /api/v1/processes             add one process
//   DELETE /api/v1/processes             clear
//   GET    /api/v1/processes/{id}
//   DELETE /api/v1/processes/{id}
//   POST   /api/v1/simulate              SimulateRequest -> SimulateResponse
//   POST   /api/v1/compare               CompareRequest  -> CompareResponse
//
// Failures are answered with {code, message}; see errors.go for the status
// mapping.
//
// ============================================================================

package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ChuLiYu/schedsim/internal/metrics"
	"github.com/ChuLiYu/schedsim/internal/repository"
	"github.com/ChuLiYu/schedsim/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const maxBodyBytes = 1 << 20

// Server is the schedsim REST API server.
type Server struct {
	router    chi.Router
	api       *API
	logger    *slog.Logger
	store     repository.Store    // optional; persists repository changes
	collector *metrics.Collector  // optional
	gatherer  prometheus.Gatherer // optional; enables /metrics
	startTime time.Time

	writeMu sync.Mutex // serialises mutate
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore saves the repository to st after every change.
func WithStore(st repository.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithMetrics keeps the repository gauge current and serves g on /metrics.
func WithMetrics(c *metrics.Collector, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.collector = c
		s.gatherer = g
	}
}

// New creates a Server with all routes registered.
func New(api *API, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		api:       api,
		logger:    logger.With("component", "http"),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.updateGauge()
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/processes", func(r chi.Router) {
			r.Get("/", s.handleListProcesses)
			r.Post("/", s.handleAddProcess)
			r.Delete("/", s.handleClearProcesses)
			r.Get("/{id}", s.handleGetProcess)
			r.Delete("/{id}", s.handleRemoveProcess)
		})
		r.Post("/simulate", s.handleSimulate)
		r.Post("/compare", s.handleCompare)
	})
}

// --- handlers ---

type healthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Processes int    `json:"processes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Processes: s.api.Repository().Len(),
	})
}

func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.api.Repository().List())
}

func (s *Server) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	p, err := s.api.Repository().Get(types.ProcessID(chi.URLParam(r, "id")))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleAddProcess(w http.ResponseWriter, r *http.Request) {
	var p types.Process
	if err := decodeJSON(r, &p); err != nil {
		s.respondError(w, r, err)
		return
	}
	err := s.mutate(r, func(repo *repository.Repository) error {
		return repo.Add(p)
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleRemoveProcess(w http.ResponseWriter, r *http.Request) {
	id := types.ProcessID(chi.URLParam(r, "id"))
	err := s.mutate(r, func(repo *repository.Repository) error {
		return repo.Remove(id)
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearProcesses(w http.ResponseWriter, r *http.Request) {
	err := s.mutate(r, func(repo *repository.Repository) error {
		repo.Clear()
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.api.Simulate(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.api.Compare(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// --- helpers ---

// mutate applies fn to the repository and persists the result. If the
// store rejects the write, the repository is restored to its prior content.
func (s *Server) mutate(r *http.Request, fn func(*repository.Repository) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	repo := s.api.Repository()
	before := repo.List()
	if err := fn(repo); err != nil {
		return err
	}

	if s.store != nil {
		if err := repository.Save(r.Context(), repo, s.store); err != nil {
			if rbErr := repo.Replace(before); rbErr != nil {
				s.logger.Error("rollback failed", "error", rbErr)
			}
			return fmt.Errorf("persist processes: %w", err)
		}
	}
	s.updateGauge()
	return nil
}

func (s *Server) updateGauge() {
	if s.collector != nil {
		s.collector.SetRepositorySize(s.api.Repository().Len())
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	c := classify(err)
	if c.httpStatus >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", w.Header().Get("X-Request-ID"), "error", err)
	}
	respondJSON(w, c.httpStatus, APIError{Code: c.code, Message: err.Error()})
}

// --- middleware ---

// requestIDMiddleware tags every response with a fresh X-Request-ID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request at DEBUG level.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", w.Header().Get("X-Request-ID"),
			)
		})
	}
}
