// Package server exposes the engine over a small HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/joshharrison/critpath/internal/engine"
	"github.com/joshharrison/critpath/internal/logging"
	"github.com/joshharrison/critpath/internal/metrics"
	"github.com/joshharrison/critpath/internal/task"
)

// Options configures a Server.
type Options struct {
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server serves the scheduling API.
type Server struct {
	engine  *engine.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
	opts    Options
	mux     *http.ServeMux
}

// Request is the body accepted by every POST endpoint.
type Request struct {
	Tasks []task.Task `json:"tasks"`
	// Changed carries the new dates of one task for /v1/propagate.
	Changed *task.Task `json:"changed,omitempty"`
	// Apply re-analyzes the portfolio with the propagated updates applied.
	Apply bool `json:"apply,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a Server around e.
func New(e *engine.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		engine:  e,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		opts:    opts,
		mux:     http.NewServeMux(),
	}

	s.route("/v1/schedule", s.handleSchedule)
	s.route("/v1/conflicts", s.handleConflicts)
	s.route("/v1/propagate", s.handlePropagate)
	s.route("/v1/risks", s.handleRisks)
	s.route("/v1/variance", s.handleVariance)
	s.route("/v1/graph", s.handleGraph)
	s.mux.Handle("/healthz", s.instrument("/healthz", http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("/metrics", s.metrics.Handler())

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// route registers a POST-only JSON endpoint.
func (s *Server) route(path string, h func(w http.ResponseWriter, r *http.Request, req *Request)) {
	s.mux.Handle(path, s.instrument(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		h(w, r, &req)
	})))
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request, req *Request) {
	report, err := s.engine.Analyze(r.Context(), req.Tasks)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleConflicts(w http.ResponseWriter, r *http.Request, req *Request) {
	conflicts := s.engine.Conflicts(req.Tasks)
	if conflicts == nil {
		conflicts = []task.Conflict{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts})
}

func (s *Server) handlePropagate(w http.ResponseWriter, r *http.Request, req *Request) {
	if req.Changed == nil || req.Changed.ID == "" {
		writeError(w, http.StatusBadRequest, `"changed" task with an id is required`)
		return
	}

	if req.Apply {
		out, err := s.engine.WhatIf(r.Context(), *req.Changed, req.Tasks)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	updates := s.engine.Propagate(*req.Changed, req.Tasks)
	if updates == nil {
		updates = []task.Update{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": req.Changed.ID, "updates": updates})
}

func (s *Server) handleRisks(w http.ResponseWriter, r *http.Request, req *Request) {
	report, err := s.engine.Analyze(r.Context(), req.Tasks)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	risks := report.Risks()
	if risks == nil {
		writeJSON(w, http.StatusOK, map[string]any{"risks": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"risks": risks})
}

func (s *Server) handleVariance(w http.ResponseWriter, r *http.Request, req *Request) {
	report, err := s.engine.Analyze(r.Context(), req.Tasks)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	vs := report.Variance()
	if vs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"variance": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"variance": vs})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request, req *Request) {
	report, err := s.engine.Analyze(r.Context(), req.Tasks)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toGraph(report))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs and times each request.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(started)

		s.metrics.ObserveRequest(route, rec.code, elapsed)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.code,
			"elapsed", elapsed,
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: s.opts.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
