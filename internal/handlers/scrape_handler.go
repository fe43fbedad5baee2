package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
	"github.com/ternarybob/maplist/internal/services/export"
	"github.com/ternarybob/maplist/internal/services/jobs"
)

// maxRequestBody bounds the submission body
const maxRequestBody = 64 * 1024

// ScrapeHandler serves job submission, status polling, result download and cancellation
type ScrapeHandler struct {
	jobs    JobSubmitter
	tracker interfaces.SessionTracker
	logger  arbor.ILogger
}

func NewScrapeHandler(jobs JobSubmitter, tracker interfaces.SessionTracker, logger arbor.ILogger) *ScrapeHandler {
	return &ScrapeHandler{
		jobs:    jobs,
		tracker: tracker,
		logger:  logger,
	}
}

// SubmitHandler accepts a job: POST /api/scrape {listUrl, maxItems?} -> {sessionId}
func (h *ScrapeHandler) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ScrapeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.jobs.Submit(req)
	if err != nil {
		var reqErr *jobs.RequestError
		if errors.As(err, &reqErr) {
			WriteError(w, http.StatusBadRequest, reqErr.Message)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to submit scrape job")
		WriteError(w, http.StatusServiceUnavailable, "Failed to start scrape")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"sessionId": id})
}

// StatusHandler returns the latest session snapshot: GET /api/status/{id}
func (h *ScrapeHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	session, ok := h.tracker.Get(r.Context(), PathID(r, "/api/status/"))
	if !ok {
		WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	WriteJSON(w, http.StatusOK, session)
}

// DownloadHandler returns the recorded results as an attachment: GET /api/download/{id}
func (h *ScrapeHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := PathID(r, "/api/download/")
	session, ok := h.tracker.Get(r.Context(), id)
	if !ok || !session.HasResults() {
		WriteError(w, http.StatusNotFound, "Results not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="places_%s.json"`, id))
	w.WriteHeader(http.StatusOK)
	if err := export.Encode(w, session.Results); err != nil {
		h.logger.Warn().Err(err).Str("session_id", id).Msg("Failed to write download")
	}
}

// CancelHandler stops a running job: POST /api/cancel/{id}
func (h *ScrapeHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := h.jobs.Cancel(PathID(r, "/api/cancel/")); err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(w, "Cancellation requested")
}
