package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/enrollment"
	"github.com/kozaktomas/rollcall/internal/jobs"
	"go.uber.org/zap"
)

// TrainingHandler handles enrollment captures and training runs.
type TrainingHandler struct {
	trainer     *enrollment.Trainer
	source      *enrollment.DirSource
	registry    *jobs.Registry
	modes       config.ModesConfig
	defaultMode string
	logger      *zap.Logger
}

func NewTrainingHandler(
	trainer *enrollment.Trainer,
	source *enrollment.DirSource,
	registry *jobs.Registry,
	modes config.ModesConfig,
	defaultMode string,
	log *zap.Logger,
) *TrainingHandler {
	return &TrainingHandler{
		trainer:     trainer,
		source:      source,
		registry:    registry,
		modes:       modes,
		defaultMode: defaultMode,
		logger:      log,
	}
}

type trainRequest struct {
	Mode string `json:"mode"`
}

type captureRequest struct {
	Image string `json:"image" validate:"required"`
}

// Start starts a background training job
func (h *TrainingHandler) Start(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subjectId")
	if !ok {
		return
	}
	var req trainRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if req.Mode == "" {
		req.Mode = h.defaultMode
	}

	job, err := h.trainer.Start(subjectID, req.Mode)
	switch {
	case errors.Is(err, config.ErrUnknownMode):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, jobs.ErrJobRunning):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to start training", zap.Int64("subject_id", subjectID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to start training")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     job.ID(),
		"subject_id": subjectID,
		"mode":       req.Mode,
		"status":     string(job.GetStatus()),
	})
}

// Status returns the latest training job of the subject
func (h *TrainingHandler) Status(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subjectId")
	if !ok {
		return
	}
	job := h.registry.LatestForSubject(subjectID)
	if job == nil {
		respondJSON(w, http.StatusOK, map[string]any{"status": "not_started", "progress": 0})
		return
	}
	respondJSON(w, http.StatusOK, job.View())
}

// Report returns how ready the subject's captures are for each mode
func (h *TrainingHandler) Report(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subjectId")
	if !ok {
		return
	}
	report, err := enrollment.ReadinessReport(r.Context(), h.source, h.modes, subjectID)
	if err != nil {
		h.logger.Error("failed to build training report", zap.Int64("subject_id", subjectID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to build training report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Capture stores one enrollment image for a student
func (h *TrainingHandler) Capture(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subjectId")
	if !ok {
		return
	}
	roll := chi.URLParam(r, "roll")
	var req captureRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	image, ok := decodeImage(w, req.Image)
	if !ok {
		return
	}

	path, err := h.source.Save(subjectID, roll, image)
	if errors.Is(err, enrollment.ErrInvalidRoll) {
		respondError(w, http.StatusBadRequest, "invalid roll")
		return
	}
	if err != nil {
		h.logger.Error("failed to save capture", zap.String("roll", sanitizeForLog(roll)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to save capture")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"roll": roll, "path": path})
}
