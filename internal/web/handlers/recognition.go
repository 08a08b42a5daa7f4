package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/rollcall/internal/facematch"
)

// Recognizer matches a captured image against a subject's enrolled students.
type Recognizer interface {
	Recognize(ctx context.Context, subjectID int64, image []byte) facematch.Result
}

// RecognitionHandler exposes recognition without recording attendance.
type RecognitionHandler struct {
	recognizer Recognizer
}

func NewRecognitionHandler(recognizer Recognizer) *RecognitionHandler {
	return &RecognitionHandler{recognizer: recognizer}
}

type recognizeRequest struct {
	Image string `json:"image" validate:"required"`
}

// Recognize returns the tiered match for one image
func (h *RecognitionHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := idParam(w, r, "subjectId")
	if !ok {
		return
	}
	var req recognizeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	image, ok := decodeImage(w, req.Image)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, h.recognizer.Recognize(r.Context(), subjectID, image))
}
