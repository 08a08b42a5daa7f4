package liveness

import (
	"context"
	"errors"
	"testing"
)

type stubDetector struct {
	face *Rect
	err  error
}

func (d *stubDetector) DetectFace(ctx context.Context, frame []byte) (*Rect, error) {
	return d.face, d.err
}

type stubLandmarks struct {
	lm    Landmarks
	err   error
	calls int
}

func (l *stubLandmarks) Landmarks(ctx context.Context, frame []byte, face Rect) (Landmarks, error) {
	l.calls++
	return l.lm, l.err
}

func TestProcessor_ProcessFrame(t *testing.T) {
	face := &Rect{X: 10, Y: 10, W: 120, H: 120}

	tests := []struct {
		name         string
		detector     *stubDetector
		landmarks    *stubLandmarks
		state        FrameState
		approximated bool
	}{
		{"landmarks available", &stubDetector{face: face}, &stubLandmarks{lm: shape(true, false)}, StateTracking, false},
		{"landmark service down", &stubDetector{face: face}, &stubLandmarks{err: errors.New("down")}, StateTracking, true},
		{"no face", &stubDetector{}, &stubLandmarks{lm: shape(true, false)}, StateNoFace, false},
		{"detector failure", &stubDetector{err: errors.New("timeout")}, &stubLandmarks{}, StateNoFace, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcessor(tt.detector, tt.landmarks, nil)
			s := NewSession()

			st := p.ProcessFrame(context.Background(), s, []byte("frame"))

			if st.State != tt.state {
				t.Errorf("expected state %s, got %s", tt.state, st.State)
			}
			if st.Approximated != tt.approximated {
				t.Errorf("expected approximated %v, got %v", tt.approximated, st.Approximated)
			}
			if st.TotalFrames != 1 {
				t.Errorf("expected frame to be counted, got %d", st.TotalFrames)
			}
			if tt.state == StateNoFace && tt.landmarks.calls != 0 {
				t.Error("landmarks should not be requested without a face")
			}
		})
	}
}

func TestProcessor_WithoutLandmarkProvider(t *testing.T) {
	p := NewProcessor(&stubDetector{face: &Rect{X: 0, Y: 0, W: 80, H: 80}}, nil, nil)
	st := p.ProcessFrame(context.Background(), NewSession(), []byte("frame"))
	if !st.Approximated {
		t.Error("expected approximated landmarks without a provider")
	}
}
