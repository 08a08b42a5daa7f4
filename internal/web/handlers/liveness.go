package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/rollcall/internal/liveness"
)

// LivenessHandler drives liveness attempts frame by frame.
type LivenessHandler struct {
	attempts  *liveness.Attempts
	processor *liveness.Processor
}

func NewLivenessHandler(attempts *liveness.Attempts, processor *liveness.Processor) *LivenessHandler {
	return &LivenessHandler{attempts: attempts, processor: processor}
}

// LivenessResponse is the state of an attempt after a frame.
type LivenessResponse struct {
	AttemptID string          `json:"attempt_id"`
	Status    liveness.Status `json:"status"`
	Check     liveness.Check  `json:"check"`
}

type frameRequest struct {
	Image string `json:"image" validate:"required"`
}

type faceBox struct {
	X int `json:"x" validate:"gte=0"`
	Y int `json:"y" validate:"gte=0"`
	W int `json:"w" validate:"gt=0"`
	H int `json:"h" validate:"gt=0"`
}

type observationRequest struct {
	Face      *faceBox     `json:"face"`
	Landmarks [][2]float64 `json:"landmarks" validate:"omitempty,len=68"`
}

func respondLiveness(w http.ResponseWriter, status int, id string, st liveness.Status) {
	respondJSON(w, status, LivenessResponse{AttemptID: id, Status: st, Check: st.Check()})
}

func (h *LivenessHandler) attempt(w http.ResponseWriter, r *http.Request) *liveness.Attempt {
	a := h.attempts.Get(chi.URLParam(r, "attemptId"))
	if a == nil {
		respondError(w, http.StatusNotFound, "liveness attempt not found or expired")
	}
	return a
}

// Start opens a new attempt
func (h *LivenessHandler) Start(w http.ResponseWriter, r *http.Request) {
	a := h.attempts.New()
	st := a.Do(func(s *liveness.Session) liveness.Status { return s.Snapshot() })
	respondLiveness(w, http.StatusCreated, a.ID, st)
}

// Frame runs one captured frame through face detection and landmarks
func (h *LivenessHandler) Frame(w http.ResponseWriter, r *http.Request) {
	a := h.attempt(w, r)
	if a == nil {
		return
	}
	var req frameRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	frame, ok := decodeImage(w, req.Image)
	if !ok {
		return
	}

	st := a.Do(func(s *liveness.Session) liveness.Status {
		return h.processor.ProcessFrame(r.Context(), s, frame)
	})
	respondLiveness(w, http.StatusOK, a.ID, st)
}

// Observation folds a client-detected face box and landmarks into the attempt
func (h *LivenessHandler) Observation(w http.ResponseWriter, r *http.Request) {
	a := h.attempt(w, r)
	if a == nil {
		return
	}
	var req observationRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	var obs liveness.Observation
	if req.Face != nil {
		obs.Face = &liveness.Rect{X: req.Face.X, Y: req.Face.Y, W: req.Face.W, H: req.Face.H}
		if len(req.Landmarks) > 0 {
			obs.Landmarks = make(liveness.Landmarks, len(req.Landmarks))
			for i, p := range req.Landmarks {
				obs.Landmarks[i] = liveness.Point{X: p[0], Y: p[1]}
			}
		}
	}

	st := a.Do(func(s *liveness.Session) liveness.Status { return s.Observe(obs) })
	respondLiveness(w, http.StatusOK, a.ID, st)
}

// Reset clears the attempt's counters
func (h *LivenessHandler) Reset(w http.ResponseWriter, r *http.Request) {
	a := h.attempt(w, r)
	if a == nil {
		return
	}
	st := a.Do(func(s *liveness.Session) liveness.Status {
		s.Reset()
		return s.Snapshot()
	})
	respondLiveness(w, http.StatusOK, a.ID, st)
}

// Delete closes the attempt
func (h *LivenessHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.attempts.Delete(chi.URLParam(r, "attemptId")) {
		respondError(w, http.StatusNotFound, "liveness attempt not found or expired")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
