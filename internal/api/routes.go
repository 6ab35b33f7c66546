package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"sopgen/internal/history"
	"sopgen/internal/pipeline"
	"sopgen/internal/services"
)

const maxBodyBytes = 64 << 10

// NewRouter builds the HTTP routes. /health is always open; everything under
// /v1 requires the configured token.
func NewRouter(s *Server) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(s.token, s.logger))
		r.Post("/runs", s.handleCreateRun)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		if s.hub != nil {
			r.Get("/events", s.hub.ServeHTTP)
		}
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	watchers := 0
	if s.hub != nil {
		watchers = s.hub.Count()
	}
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  s.version,
		UptimeS:  StatusSince(s.startedAt),
		Busy:     s.Busy(),
		Watchers: watchers,
	})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Code: "BAD_REQUEST"})
		return
	}
	if strings.TrimSpace(req.VideoPath) == "" {
		WriteError(w, http.StatusBadRequest, ErrorResponse{Error: "video_path is required", Code: "BAD_REQUEST"})
		return
	}

	result, err := s.run(r.Context(), req.toPipeline())
	if err != nil {
		writeRunError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		WriteJSON(w, http.StatusOK, RunsResponse{Runs: []history.Run{}})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Code: "BAD_REQUEST"})
			return
		}
		limit = n
	}
	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list runs", Code: "INTERNAL_ERROR"})
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	WriteJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		WriteError(w, http.StatusNotFound, ErrorResponse{Error: "run history disabled", Code: "NOT_FOUND"})
		return
	}
	run, err := s.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to load run", Code: "INTERNAL_ERROR"})
		return
	}
	if run == nil {
		WriteError(w, http.StatusNotFound, ErrorResponse{Error: "run not found", Code: "NOT_FOUND"})
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

func writeRunError(w http.ResponseWriter, err error) {
	body := ErrorResponse{
		Error:    err.Error(),
		Code:     strings.ToUpper(services.Kind(err)),
		ExitCode: services.ExitCode(err),
	}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		body.Stage = stageErr.Stage
		body.RunID = stageErr.RunID
	}
	WriteError(w, statusForError(err), body)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrMediaUnreadable), errors.Is(err, services.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrGenerationService), errors.Is(err, services.ErrSchemaInvalid):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
