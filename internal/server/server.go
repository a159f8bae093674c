// Package server exposes the catalog's HTTP surface. It speaks the api wire
// model only; storage and dialect concerns stay behind the Differ interface.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/refcask/refcask/internal/api"
	"github.com/refcask/refcask/internal/errs"
	"github.com/refcask/refcask/internal/logger"
)

// Differ computes the difference between two references. The production
// implementation walks the catalog store; tests substitute fakes.
type Differ interface {
	Diff(ctx context.Context, from, to api.RefSpec) (*api.DiffResponse, error)
}

// Server routes catalog API requests.
type Server struct {
	differ Differ
	log    *logger.Logger
}

// New builds a Server over the given Differ.
func New(differ Differ, log *logger.Logger) *Server {
	return &Server{differ: differ, log: log}
}

// Router returns the HTTP handler for the full API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/v1/diffs/{spec}", s.handleDiff)

	return r
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	from, to, err := api.ParseDiffSpec(chi.URLParam(r, "spec"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := s.differ.Diff(r.Context(), from, to)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, resp)
	case errs.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, err)
	case errs.IsInvalidInput(err):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.log.ErrorErr("diff failed", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.ErrorErr("encode response", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, api.ErrorResponse{Status: status, Message: err.Error()})
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Event().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
