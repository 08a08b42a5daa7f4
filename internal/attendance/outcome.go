// Package attendance decides, for one recognized face, whether an attendance
// record is written.
package attendance

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/liveness"
)

// ErrSessionNotFound is returned when the class session does not exist or
// belongs to another subject.
var ErrSessionNotFound = errors.New("class session not found")

// Outcome is the tag of an attendance decision.
type Outcome string

const (
	OutcomeSpoofingDetected   Outcome = "spoofing_detected"
	OutcomeLowAntiSpoofing    Outcome = "low_anti_spoofing"
	OutcomeNotLive            Outcome = "not_live"
	OutcomeNoModel            Outcome = "no_model"
	OutcomeNoFace             Outcome = "no_face"
	OutcomeMultipleFaces      Outcome = "multiple_faces"
	OutcomeRecognitionFailed  Outcome = "recognition_failed"
	OutcomeUnknown            Outcome = "unknown"
	OutcomeLowConfidence      Outcome = "low_confidence"
	OutcomeAlreadyMarked      Outcome = "already_marked"
	OutcomeAlreadyMarkedToday Outcome = "already_marked_today"
	OutcomeMarked             Outcome = "marked"
)

// Written reports whether the outcome created a record.
func (o Outcome) Written() bool {
	return o == OutcomeMarked
}

// Telemetry is the liveness report computed by the capturing client.
// Scores are percentages.
type Telemetry struct {
	AntiSpoofingScore float64 `json:"antiSpoofingScore"`
	RealPersonScore   float64 `json:"realPersonScore"`
	SpoofingDetected  bool    `json:"spoofingDetected"`
	LivenessScore     float64 `json:"livenessScore"`
}

// Request is one attendance attempt.
type Request struct {
	SubjectID int64
	SessionID int64
	Result    facematch.Result

	// Telemetry is optional; nil skips the client gate.
	Telemetry *Telemetry

	// Liveness is the server-side verdict of the attempt's frames, when the
	// frames went through this service.
	Liveness *liveness.Check
}

// Decision is the verdict for a Request. Record is set only for OutcomeMarked.
type Decision struct {
	Outcome     Outcome                    `json:"status"`
	Message     string                     `json:"message"`
	Roll        string                     `json:"roll,omitempty"`
	StudentID   int64                      `json:"student_id,omitempty"`
	StudentName string                     `json:"name,omitempty"`
	Confidence  float64                    `json:"confidence,omitempty"`
	Candidates  []facematch.Candidate      `json:"candidates,omitempty"`
	Record      *database.AttendanceRecord `json:"-"`
}

// Reason renders the sub-scores stored on a record, e.g.
// "Liveness score: 83% | Anti-spoofing: 91%".
func Reason(t *Telemetry, check *liveness.Check) string {
	var livenessScore, antiSpoofing float64
	if t != nil {
		livenessScore = t.LivenessScore
		antiSpoofing = t.AntiSpoofingScore
	}
	reason := fmt.Sprintf("Liveness score: %s%% | Anti-spoofing: %s%%", percent(livenessScore), percent(antiSpoofing))
	if check != nil {
		reason += fmt.Sprintf(" | Server liveness: %s%%", percent(check.Confidence*100))
	}
	return reason
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fromResult(res facematch.Result) Decision {
	d := Decision{Message: res.Message, Roll: res.Roll, Candidates: res.Candidates}
	switch res.Status {
	case facematch.StatusNoModel:
		d.Outcome = OutcomeNoModel
	case facematch.StatusNoFace:
		d.Outcome = OutcomeNoFace
	case facematch.StatusMultipleFaces:
		d.Outcome = OutcomeMultipleFaces
	case facematch.StatusRecognitionFailed:
		d.Outcome = OutcomeRecognitionFailed
	case facematch.StatusLowConfidence:
		d.Outcome = OutcomeLowConfidence
		d.Confidence = res.Similarity
	default:
		d.Outcome = OutcomeUnknown
		d.Roll = ""
		if d.Message == "" {
			d.Message = "Unknown face - Not in database"
		}
	}
	return d
}
