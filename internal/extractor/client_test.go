package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/rollcall/internal/liveness"
)

func TestClient_Extract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			return
		}
		defer file.Close()
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("expected image/jpeg part, got %s", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"faces_count":1,"model":"buffalo_l","faces":[{"embedding":[0.6,0.8],"bbox":[10,20,110,140],"det_score":0.98}]}`)
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", time.Second)
	ext, err := c.Extract(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ext.Faces) != 1 || ext.Count() != 1 {
		t.Fatalf("expected 1 face, got %d (count %d)", len(ext.Faces), ext.Count())
	}
	if ext.Model != "buffalo_l" || ext.Provider != server.URL {
		t.Errorf("unexpected metadata %q / %q", ext.Model, ext.Provider)
	}
	r, ok := ext.Faces[0].Rect()
	if !ok || r != (liveness.Rect{X: 10, Y: 20, W: 100, H: 120}) {
		t.Errorf("unexpected rect %+v", r)
	}
}

func TestClient_ExtractKeepsDetectedCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"faces_count":2,"model":"buffalo_l","faces":[{"embedding":[0.6,0.8],"bbox":[10,20,110,140]}]}`)
	}))
	defer server.Close()

	ext, err := NewClient(server.URL, time.Second).Extract(context.Background(), []byte("image"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ext.Faces) != 1 {
		t.Errorf("expected 1 returned face, got %d", len(ext.Faces))
	}
	if ext.Count() != 2 {
		t.Errorf("expected 2 detected faces, got %d", ext.Count())
	}
}

func TestClient_ExtractErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"invalid json", http.StatusOK, "{"},
		{"empty embedding", http.StatusOK, `{"faces_count":1,"faces":[{"embedding":[]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			if _, err := NewClient(server.URL, time.Second).Extract(context.Background(), []byte("img")); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClient_DetectFace(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantNil bool
	}{
		{"face", `{"faces":[{"embedding":[1],"bbox":[0,0,50,60]}]}`, false},
		{"no face", `{"faces_count":0,"faces":[]}`, true},
		{"degenerate box", `{"faces":[{"embedding":[1],"bbox":[5,5,5,5]}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			r, err := NewClient(server.URL, time.Second).DetectFace(context.Background(), []byte("frame"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r == nil) != tt.wantNil {
				t.Errorf("DetectFace() = %+v, wantNil %v", r, tt.wantNil)
			}
		})
	}
}

func TestClient_Landmarks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/landmarks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse form: %v", err)
			return
		}
		if r.FormValue("x") != "3" || r.FormValue("w") != "40" {
			t.Errorf("unexpected box fields x=%s w=%s", r.FormValue("x"), r.FormValue("w"))
		}
		count := 68
		if r.FormValue("y") == "999" {
			count = 5
		}
		points := make([]string, count)
		for i := range points {
			points[i] = fmt.Sprintf("[%d,%d]", i, i*2)
		}
		fmt.Fprintf(w, `{"landmarks":[%s]}`, strings.Join(points, ","))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)

	lm, err := c.Landmarks(context.Background(), []byte("frame"), liveness.Rect{X: 3, Y: 4, W: 40, H: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lm.Valid() || lm[10] != (liveness.Point{X: 10, Y: 20}) {
		t.Errorf("unexpected landmarks %v", lm[10])
	}

	if _, err := c.Landmarks(context.Background(), []byte("frame"), liveness.Rect{X: 3, Y: 999, W: 40, H: 50}); err == nil {
		t.Error("expected error for incomplete landmark set")
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL, 20*time.Millisecond).Extract(context.Background(), []byte("img")); err == nil {
		t.Error("expected timeout error")
	}
}
