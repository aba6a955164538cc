// Package server exposes the job controller over HTTP/JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/tanq16/fetchd/internal/jobs"
	"github.com/tanq16/fetchd/internal/parser"
	"github.com/tanq16/fetchd/internal/utils"
)

// Controller is the subset of jobs.Manager the API needs.
type Controller interface {
	AddJob(ctx context.Context, rawURL, subdir string) (string, error)
	PauseJob(id string) bool
	ResumeJob(ctx context.Context, id string) (bool, error)
	RemoveJob(id string) bool
	RemoveDownloadedFile(id string) (bool, error)
	Summaries() ([]jobs.Summary, error)
	Details(id string) (parser.Snapshot, error)
	State(id string) jobs.State
	DiskUsage() (jobs.DiskUsage, error)
}

var _ Controller = (*jobs.Manager)(nil)

type Server struct {
	jobs   Controller
	addr   string
	logger zerolog.Logger
	router http.Handler
}

type addRequest struct {
	URL    string `json:"url"`
	Subdir string `json:"subdir,omitempty"`
}

type jobResponse struct {
	ID       string           `json:"id"`
	State    jobs.State       `json:"state"`
	Snapshot *parser.Snapshot `json:"snapshot,omitempty"`
}

type actionResponse struct {
	ID string `json:"id"`
	OK bool   `json:"ok"`
}

func NewServer(c Controller, addr string) *Server {
	s := &Server{jobs: c, addr: addr, logger: utils.GetLogger("server")}
	s.router = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs", s.handleAddJob)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Post("/jobs/{id}/pause", s.handlePauseJob)
		r.Post("/jobs/{id}/resume", s.handleResumeJob)
		r.Delete("/jobs/{id}", s.handleRemoveJob)
		r.Delete("/jobs/{id}/file", s.handleRemoveFile)
		r.Get("/disk", s.handleDisk)
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("op", "server/listen").Str("addr", s.addr).Msg("API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info().Str("op", "server/shutdown").Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("op", "server/request").
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	sums, err := s.jobs.Summaries()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": sums})
}

func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	id, err := s.jobs.AddJob(r.Context(), req.URL, req.Subdir)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, jobResponse{ID: id, State: s.jobs.State(id)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.jobs.Details(id)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{ID: id, State: s.jobs.State(id), Snapshot: &snap})
}

func (s *Server) handlePauseJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, actionResponse{ID: id, OK: s.jobs.PauseJob(id)})
}

func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := s.jobs.ResumeJob(r.Context(), id)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{ID: id, OK: ok})
}

func (s *Server) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, actionResponse{ID: id, OK: s.jobs.RemoveJob(id)})
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := s.jobs.RemoveDownloadedFile(id)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{ID: id, OK: ok})
}

func (s *Server) handleDisk(w http.ResponseWriter, _ *http.Request) {
	du, err := s.jobs.DiskUsage()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, du)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrOutsideDownloadDir):
		return http.StatusForbidden
	case errors.Is(err, jobs.ErrAlreadyRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
