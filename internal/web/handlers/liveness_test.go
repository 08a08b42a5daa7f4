package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/rollcall/internal/liveness"
)

func newTestLivenessHandler(face *liveness.Rect) (*LivenessHandler, *liveness.Attempts) {
	attempts := liveness.NewAttempts(time.Minute)
	processor := liveness.NewProcessor(stubDetector{face: face}, nil, nil)
	return NewLivenessHandler(attempts, processor), attempts
}

func TestLivenessHandler_Start(t *testing.T) {
	h, attempts := newTestLivenessHandler(nil)

	recorder := httptest.NewRecorder()
	h.Start(recorder, jsonRequest(t, "POST", "/api/v1/liveness", nil))

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp LivenessResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.AttemptID == "" {
		t.Fatal("expected attempt id")
	}
	if attempts.Get(resp.AttemptID) == nil {
		t.Error("attempt was not registered")
	}
	if resp.Check.Live {
		t.Error("fresh attempt must not be live")
	}
}

func TestLivenessHandler_Frame(t *testing.T) {
	face := &liveness.Rect{X: 4, Y: 4, W: 8, H: 8}

	tests := []struct {
		name       string
		face       *liveness.Rect
		attemptID  string
		body       any
		wantStatus int
		wantState  liveness.FrameState
		wantFrames int
	}{
		{
			name:       "face tracked",
			face:       face,
			body:       map[string]string{"image": "@png"},
			wantStatus: http.StatusOK,
			wantState:  liveness.StateTracking,
			wantFrames: 1,
		},
		{
			name:       "no face",
			face:       nil,
			body:       map[string]string{"image": "@png"},
			wantStatus: http.StatusOK,
			wantState:  liveness.StateNoFace,
			wantFrames: 1,
		},
		{
			name:       "missing image",
			face:       face,
			body:       map[string]string{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid image",
			face:       face,
			body:       map[string]string{"image": "!!!not-base64"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown attempt",
			face:       face,
			attemptID:  "missing",
			body:       map[string]string{"image": "@png"},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, attempts := newTestLivenessHandler(tt.face)
			id := tt.attemptID
			if id == "" {
				id = attempts.New().ID
			}
			body := tt.body
			if m, ok := body.(map[string]string); ok && m["image"] == "@png" {
				body = map[string]string{"image": pngDataURL(t, 100)}
			}

			req := requestWithChiParams(jsonRequest(t, "POST", "/api/v1/liveness/"+id+"/frames", body),
				map[string]string{"attemptId": id})
			recorder := httptest.NewRecorder()
			h.Frame(recorder, req)

			assertStatusCode(t, recorder, tt.wantStatus)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp LivenessResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.Status.State != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, resp.Status.State)
			}
			if resp.Status.TotalFrames != tt.wantFrames {
				t.Errorf("expected %d frames, got %d", tt.wantFrames, resp.Status.TotalFrames)
			}
		})
	}
}

func TestLivenessHandler_Observation(t *testing.T) {
	h, attempts := newTestLivenessHandler(nil)
	id := attempts.New().ID
	params := map[string]string{"attemptId": id}

	t.Run("face box only", func(t *testing.T) {
		body := map[string]any{"face": map[string]int{"x": 10, "y": 10, "w": 50, "h": 60}}
		recorder := httptest.NewRecorder()
		h.Observation(recorder, requestWithChiParams(jsonRequest(t, "POST", "/", body), params))

		assertStatusCode(t, recorder, http.StatusOK)
		var resp LivenessResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Status.TotalFrames != 1 {
			t.Errorf("expected 1 frame, got %d", resp.Status.TotalFrames)
		}
		if !resp.Status.Approximated {
			t.Error("expected approximated landmarks")
		}
	})

	t.Run("wrong landmark count", func(t *testing.T) {
		body := map[string]any{
			"face":      map[string]int{"x": 10, "y": 10, "w": 50, "h": 60},
			"landmarks": make([][2]float64, 67),
		}
		recorder := httptest.NewRecorder()
		h.Observation(recorder, requestWithChiParams(jsonRequest(t, "POST", "/", body), params))
		assertStatusCode(t, recorder, http.StatusBadRequest)
	})

	t.Run("no face", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		h.Observation(recorder, requestWithChiParams(jsonRequest(t, "POST", "/", map[string]any{}), params))

		assertStatusCode(t, recorder, http.StatusOK)
		var resp LivenessResponse
		parseJSONResponse(t, recorder, &resp)
		if resp.Status.State != liveness.StateNoFace {
			t.Errorf("expected no_face, got %s", resp.Status.State)
		}
		if resp.Check.Message != "No face detected" {
			t.Errorf("unexpected message %q", resp.Check.Message)
		}
	})
}

func TestLivenessHandler_ResetAndDelete(t *testing.T) {
	h, attempts := newTestLivenessHandler(nil)
	a := attempts.New()
	a.Do(func(s *liveness.Session) liveness.Status {
		return s.Observe(liveness.Observation{Face: &liveness.Rect{X: 1, Y: 1, W: 40, H: 40}})
	})
	params := map[string]string{"attemptId": a.ID}

	recorder := httptest.NewRecorder()
	h.Reset(recorder, requestWithChiParams(httptest.NewRequest("POST", "/", nil), params))
	assertStatusCode(t, recorder, http.StatusOK)
	var resp LivenessResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Status.TotalFrames != 0 {
		t.Errorf("expected counters reset, got %d frames", resp.Status.TotalFrames)
	}

	recorder = httptest.NewRecorder()
	h.Delete(recorder, requestWithChiParams(httptest.NewRequest("DELETE", "/", nil), params))
	assertStatusCode(t, recorder, http.StatusNoContent)

	recorder = httptest.NewRecorder()
	h.Delete(recorder, requestWithChiParams(httptest.NewRequest("DELETE", "/", nil), params))
	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "liveness attempt not found or expired")
}
