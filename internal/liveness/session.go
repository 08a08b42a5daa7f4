package liveness

import (
	"strings"
	"time"

	"github.com/kozaktomas/rollcall/internal/constants"
)

// FrameState describes what a single frame contributed to an attempt.
type FrameState string

const (
	StateTracking FrameState = "tracking"
	StateNoFace   FrameState = "no_face"
)

// Feedback messages returned while an attempt is not yet live.
const (
	feedbackBlink     = "Blink your eyes"
	feedbackHead      = "Move your head slightly"
	feedbackDuration  = "Keep face in frame longer"
	feedbackPassed    = "All checks passed"
	feedbackNoFace    = "No face detected"
	feedbackSeparator = " | "
)

// Observation is the per-frame input to a Session. A nil Face means no face was found.
// Landmarks may be empty, in which case the shape is approximated from Face.
type Observation struct {
	Face      *Rect
	Landmarks Landmarks
}

// Status is the attempt state after a frame.
type Status struct {
	State        FrameState `json:"state"`
	Live         bool       `json:"live"`
	Score        int        `json:"score"`
	Blinks       int        `json:"blinks"`
	Yawns        int        `json:"yawns"`
	HeadMovement bool       `json:"head_movement"`
	TotalFrames  int        `json:"total_frames"`
	EAR          float64    `json:"ear"`
	MAR          float64    `json:"mar"`
	Approximated bool       `json:"approximated"`
	Feedback     string     `json:"feedback"`
	Elapsed      float64    `json:"elapsed_seconds"`
}

// Check is the compact liveness verdict returned to callers.
type Check struct {
	Live       bool    `json:"live"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
	BlinkCount int     `json:"blinkCount"`
}

// Check converts the status into the compact verdict; confidence is score/6.
func (s Status) Check() Check {
	msg := s.Feedback
	if s.State == StateNoFace {
		msg = feedbackNoFace
	}
	return Check{
		Live:       s.Live,
		Confidence: float64(s.Score) / constants.MaxLivenessScore,
		Message:    msg,
		BlinkCount: s.Blinks,
	}
}

// Session accumulates eye, mouth and head signals across the frames of one
// verification attempt. It is not safe for concurrent use.
type Session struct {
	blinks       int
	yawns        int
	eyeClosed    int
	mouthOpen    int
	centers      []Point
	headMovement bool
	score        int
	live         bool
	totalFrames  int
	startedAt    time.Time
	now          func() time.Time
}

func NewSession() *Session {
	s := &Session{now: time.Now}
	s.Reset()
	return s
}

// Reset clears every counter and restarts the attempt clock.
func (s *Session) Reset() {
	s.blinks = 0
	s.yawns = 0
	s.eyeClosed = 0
	s.mouthOpen = 0
	s.centers = make([]Point, 0, constants.HeadHistorySize)
	s.headMovement = false
	s.score = 0
	s.live = false
	s.totalFrames = 0
	s.startedAt = s.now()
}

// Observe folds one frame into the attempt.
func (s *Session) Observe(o Observation) Status {
	s.totalFrames++

	if o.Face == nil {
		return s.status(StateNoFace)
	}

	s.trackHead(o.Face.Center())

	lm := o.Landmarks
	approximated := false
	if !lm.Valid() {
		lm = ApproximateLandmarks(*o.Face)
		approximated = true
	}

	ear := s.detectBlink(lm.RightEye(), lm.LeftEye())
	mar := s.detectYawn(lm.Mouth())
	s.evaluate()

	st := s.status(StateTracking)
	st.EAR = ear
	st.MAR = mar
	st.Approximated = approximated
	return st
}

// Snapshot returns the accumulated status without observing a frame.
func (s *Session) Snapshot() Status {
	return s.status(StateTracking)
}

// Live reports the verdict as of the last evaluated frame.
func (s *Session) Live() bool {
	return s.live
}

// Score returns the liveness score as of the last evaluated frame.
func (s *Session) Score() int {
	return s.score
}

// StartedAt returns when the attempt was last reset.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Feedback lists the unmet requirements, or "All checks passed".
func (s *Session) Feedback() string {
	var missing []string
	if s.blinks < 1 {
		missing = append(missing, feedbackBlink)
	}
	if !s.headMovement {
		missing = append(missing, feedbackHead)
	}
	if s.totalFrames < constants.MinFramesForPoint {
		missing = append(missing, feedbackDuration)
	}
	if len(missing) == 0 {
		return feedbackPassed
	}
	return strings.Join(missing, feedbackSeparator)
}

func (s *Session) detectBlink(rightEye, leftEye []Point) float64 {
	ear := (EyeAspectRatio(rightEye) + EyeAspectRatio(leftEye)) / 2.0
	if ear < constants.EyeARThreshold {
		s.eyeClosed++
		return ear
	}
	if s.eyeClosed >= constants.EyeARConsecFrames {
		s.blinks++
	}
	s.eyeClosed = 0
	return ear
}

func (s *Session) detectYawn(mouth []Point) float64 {
	mar := MouthAspectRatio(mouth)
	if mar <= constants.MouthARThreshold {
		s.mouthOpen = 0
		return mar
	}
	s.mouthOpen++
	if s.mouthOpen >= constants.MouthARConsecFrames {
		s.yawns++
		s.mouthOpen = 0
	}
	return mar
}

func (s *Session) trackHead(center Point) {
	s.centers = append(s.centers, center)
	if len(s.centers) > constants.HeadHistorySize {
		s.centers = s.centers[1:]
	}
	if len(s.centers) < constants.HeadMinSamples {
		return
	}
	if movementScore(s.centers) > constants.HeadMovementThreshold {
		s.headMovement = true
	}
}

func (s *Session) evaluate() {
	score := min(s.blinks, constants.MaxBlinkPoints)
	if s.yawns > 0 {
		score++
	}
	if s.headMovement {
		score += constants.HeadMovementPoints
	}
	if s.totalFrames >= constants.MinFramesForPoint {
		score++
	}
	s.score = score
	s.live = score >= constants.LiveScoreThreshold && s.blinks >= 1
}

func (s *Session) status(state FrameState) Status {
	return Status{
		State:        state,
		Live:         s.live,
		Score:        s.score,
		Blinks:       s.blinks,
		Yawns:        s.yawns,
		HeadMovement: s.headMovement,
		TotalFrames:  s.totalFrames,
		Feedback:     s.Feedback(),
		Elapsed:      s.now().Sub(s.startedAt).Seconds(),
	}
}
