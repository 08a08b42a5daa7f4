package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/rollcall/internal/jobs"
)

// JobsHandler exposes training job progress.
type JobsHandler struct {
	registry *jobs.Registry
}

func NewJobsHandler(registry *jobs.Registry) *JobsHandler {
	return &JobsHandler{registry: registry}
}

// Status returns the status of a job
func (h *JobsHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.registry.Get(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job.View())
}

// Events streams job events via SSE
func (h *JobsHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r, h.registry)
}
