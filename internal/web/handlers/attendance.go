package handlers

import (
	"errors"
	"net/http"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/liveness"
	"go.uber.org/zap"
)

// AttendanceHandler opens class sessions and marks attendance.
type AttendanceHandler struct {
	policy     *attendance.Policy
	recognizer Recognizer
	attempts   *liveness.Attempts
	logger     *zap.Logger
}

func NewAttendanceHandler(policy *attendance.Policy, recognizer Recognizer, attempts *liveness.Attempts, log *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{policy: policy, recognizer: recognizer, attempts: attempts, logger: log}
}

type markRequest struct {
	Image        string                `json:"image" validate:"required"`
	LivenessData *attendance.Telemetry `json:"liveness_data"`
	AttemptID    string                `json:"attempt_id" validate:"omitempty,uuid"`
}

// StartSession opens a class session dated today
func (h *AttendanceHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subjectId")
	if !ok {
		return
	}
	s, err := h.policy.StartSession(r.Context(), subjectID)
	if err != nil {
		h.logger.Error("failed to start session", zap.Int64("subject_id", subjectID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to start session")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"session_id": s.ID,
		"subject_id": s.SubjectID,
		"date":       s.Date.Format("2006-01-02"),
		"start_time": s.StartTime,
	})
}

// Mark recognizes the captured face and records attendance when every gate passes
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subjectId")
	if !ok {
		return
	}
	sessionID, ok := idParam(w, r, "sessionId")
	if !ok {
		return
	}
	var req markRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	// Spoofing telemetry is checked before paying for recognition.
	if d, passed := h.policy.Screen(req.LivenessData); !passed {
		respondJSON(w, http.StatusOK, d)
		return
	}

	var check *liveness.Check
	if req.AttemptID != "" {
		a := h.attempts.Get(req.AttemptID)
		if a == nil {
			respondError(w, http.StatusNotFound, "liveness attempt not found or expired")
			return
		}
		c := a.Do(func(s *liveness.Session) liveness.Status { return s.Snapshot() }).Check()
		check = &c
	}

	image, ok := decodeImage(w, req.Image)
	if !ok {
		return
	}

	result := h.recognizer.Recognize(r.Context(), subjectID, image)
	d, err := h.policy.Decide(r.Context(), attendance.Request{
		SubjectID: subjectID,
		SessionID: sessionID,
		Result:    result,
		Telemetry: req.LivenessData,
		Liveness:  check,
	})
	if errors.Is(err, attendance.ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, "class session not found")
		return
	}
	if err != nil {
		h.logger.Error("attendance decision failed",
			zap.Int64("subject_id", subjectID),
			zap.Int64("session_id", sessionID),
			zap.String("roll", sanitizeForLog(result.Roll)),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to record attendance")
		return
	}

	// A live attempt vouches for one mark only.
	if d.Outcome.Written() && req.AttemptID != "" {
		h.attempts.Delete(req.AttemptID)
	}
	respondJSON(w, http.StatusOK, d)
}

// List returns the attendance records of a session
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subjectId")
	if !ok {
		return
	}
	sessionID, ok := idParam(w, r, "sessionId")
	if !ok {
		return
	}
	records, err := h.policy.Records(r.Context(), subjectID, sessionID)
	if errors.Is(err, attendance.ErrSessionNotFound) {
		respondError(w, http.StatusNotFound, "class session not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to list attendance", zap.Int64("session_id", sessionID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list attendance")
		return
	}

	type recordView struct {
		ID         int64   `json:"id"`
		StudentID  int64   `json:"student_id"`
		Date       string  `json:"date"`
		Timestamp  string  `json:"timestamp"`
		Status     string  `json:"status"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	out := make([]recordView, 0, len(records))
	for _, rec := range records {
		out = append(out, recordView{
			ID:         rec.ID,
			StudentID:  rec.StudentID,
			Date:       rec.Date.Format("2006-01-02"),
			Timestamp:  rec.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			Status:     string(rec.Status),
			Confidence: rec.Confidence,
			Reason:     rec.Reason,
		})
	}
	respondJSON(w, http.StatusOK, out)
}
