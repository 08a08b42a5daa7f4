package liveness

import (
	"context"

	"github.com/kozaktomas/rollcall/internal/imageutil"
	"github.com/kozaktomas/rollcall/internal/logger"
	"go.uber.org/zap"
)

// frameMaxSize is the width/height frames are scaled to before detection.
const frameMaxSize = 640

// FaceDetector finds the face box in a frame. A nil box with a nil error means no face.
type FaceDetector interface {
	DetectFace(ctx context.Context, frame []byte) (*Rect, error)
}

// LandmarkProvider returns the 68-point shape for a face box.
type LandmarkProvider interface {
	Landmarks(ctx context.Context, frame []byte, face Rect) (Landmarks, error)
}

// Processor turns raw frames into Session observations.
type Processor struct {
	detector  FaceDetector
	landmarks LandmarkProvider
	logger    *zap.Logger
}

// NewProcessor creates a frame processor. landmarks may be nil, in which case
// every frame uses approximated landmarks.
func NewProcessor(detector FaceDetector, landmarks LandmarkProvider, log *zap.Logger) *Processor {
	return &Processor{detector: detector, landmarks: landmarks, logger: logger.OrNop(log)}
}

// ProcessFrame detects the face, fetches its landmarks and folds the frame into s.
// Detector failures count as a frame without a face; landmark failures fall back
// to the approximated shape.
func (p *Processor) ProcessFrame(ctx context.Context, s *Session, frame []byte) Status {
	if resized, err := imageutil.Resize(frame, frameMaxSize); err == nil {
		frame = resized
	}

	face, err := p.detector.DetectFace(ctx, frame)
	if err != nil {
		p.logger.Warn("face detection failed", zap.Error(err))
		face = nil
	}
	if face == nil {
		return s.Observe(Observation{})
	}

	var lm Landmarks
	if p.landmarks != nil {
		lm, err = p.landmarks.Landmarks(ctx, frame, *face)
		if err != nil {
			p.logger.Debug("landmark detection failed, using approximation", zap.Error(err))
			lm = nil
		}
	}
	return s.Observe(Observation{Face: face, Landmarks: lm})
}
