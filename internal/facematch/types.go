// Package facematch scores query embeddings against a subject's enrolled
// identities and sorts the best match into a confidence tier.
package facematch

import (
	"fmt"

	"github.com/kozaktomas/rollcall/internal/config"
)

// Status is the outcome of a recognition attempt.
type Status string

const (
	StatusRecognized        Status = "recognized"
	StatusLowConfidence     Status = "low_confidence"
	StatusUnknown           Status = "unknown"
	StatusNoFace            Status = "no_face"
	StatusMultipleFaces     Status = "multiple_faces"
	StatusRecognitionFailed Status = "recognition_failed"
	StatusNoModel           Status = "no_model"
)

// Tier is the confidence band of the best similarity.
type Tier string

const (
	TierHigh Tier = "high" // at or above the recognition threshold
	TierLow  Tier = "low"  // between min confidence and the recognition threshold
	TierNone Tier = "none" // below min confidence
)

// Candidate is one scored identity.
type Candidate struct {
	Roll       string  `json:"roll"`
	Similarity float64 `json:"similarity"`
}

// Result is a recognition verdict. Roll is only set for recognized and
// low_confidence results.
type Result struct {
	Status     Status      `json:"status"`
	Roll       string      `json:"roll,omitempty"`
	Similarity float64     `json:"similarity"`
	Tier       Tier        `json:"tier,omitempty"`
	Faces      int         `json:"faces"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Message    string      `json:"message"`
}

// Thresholds are the similarity cut-offs of an operating mode.
type Thresholds struct {
	Recognition   float64 `json:"recognition_threshold"`
	MinConfidence float64 `json:"min_confidence"`
}

// ThresholdsFor returns the cut-offs configured for mode.
func ThresholdsFor(mode config.Mode) Thresholds {
	return Thresholds{Recognition: mode.RecognitionThreshold, MinConfidence: mode.MinConfidence}
}

// Classify maps a similarity to its status and tier. Both bounds are inclusive.
func (t Thresholds) Classify(similarity float64) (Status, Tier) {
	switch {
	case similarity >= t.Recognition:
		return StatusRecognized, TierHigh
	case similarity >= t.MinConfidence:
		return StatusLowConfidence, TierLow
	default:
		return StatusUnknown, TierNone
	}
}

// NoFace is the result for an image without a detectable face.
func NoFace() Result {
	return Result{Status: StatusNoFace, Message: "No face detected"}
}

// MultipleFaces is the result for an image with more than one face.
func MultipleFaces(n int) Result {
	return Result{Status: StatusMultipleFaces, Faces: n, Message: fmt.Sprintf("Multiple faces detected (%d)", n)}
}

// RecognitionFailed is the result when no extractor could process the image.
func RecognitionFailed() Result {
	return Result{Status: StatusRecognitionFailed, Message: "Recognition failed"}
}

// NoModel is the result for a subject that has not been trained.
func NoModel() Result {
	return Result{Status: StatusNoModel, Message: "No trained model found"}
}
