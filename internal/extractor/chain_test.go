package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/rollcall/internal/liveness"
)

type stubEmbedder struct {
	ext   *Extraction
	err   error
	calls int
}

func (s *stubEmbedder) Extract(ctx context.Context, image []byte) (*Extraction, error) {
	s.calls++
	return s.ext, s.err
}

func TestChain_Extract(t *testing.T) {
	ok := &Extraction{Faces: []Face{{Embedding: []float32{1}}}}
	empty := &Extraction{}

	t.Run("first provider wins", func(t *testing.T) {
		a := &stubEmbedder{ext: ok}
		b := &stubEmbedder{ext: empty}
		got, err := NewChain(nil, a, b).Extract(context.Background(), nil)
		if err != nil || got != ok {
			t.Fatalf("unexpected result %v, %v", got, err)
		}
		if b.calls != 0 {
			t.Error("second provider should not be called")
		}
	})

	t.Run("falls back on error", func(t *testing.T) {
		a := &stubEmbedder{err: errors.New("down")}
		b := &stubEmbedder{ext: ok}
		got, err := NewChain(nil, a, b).Extract(context.Background(), nil)
		if err != nil || got != ok {
			t.Fatalf("unexpected result %v, %v", got, err)
		}
	})

	t.Run("zero faces does not fall back", func(t *testing.T) {
		a := &stubEmbedder{ext: empty}
		b := &stubEmbedder{ext: ok}
		got, err := NewChain(nil, a, b).Extract(context.Background(), nil)
		if err != nil || got != empty {
			t.Fatalf("unexpected result %v, %v", got, err)
		}
		if b.calls != 0 {
			t.Error("second provider should not be called")
		}
	})

	t.Run("all fail", func(t *testing.T) {
		a := &stubEmbedder{err: errors.New("down")}
		b := &stubEmbedder{err: errors.New("also down")}
		_, err := NewChain(nil, a, b).Extract(context.Background(), nil)
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("no providers", func(t *testing.T) {
		_, err := NewChain(nil).Extract(context.Background(), nil)
		if !errors.Is(err, ErrNoProviders) {
			t.Errorf("expected ErrNoProviders, got %v", err)
		}
	})

	t.Run("cancelled context stops fallback", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		a := &stubEmbedder{err: errors.New("down")}
		b := &stubEmbedder{ext: ok}
		_, err := NewChain(nil, a, b).Extract(ctx, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if b.calls != 0 {
			t.Error("second provider should not be called after cancellation")
		}
	})
}

// detectingEmbedder is a provider that can also locate faces.
type detectingEmbedder struct {
	stubEmbedder
	rect    *liveness.Rect
	err     error
	detects int
}

func (d *detectingEmbedder) DetectFace(ctx context.Context, frame []byte) (*liveness.Rect, error) {
	d.detects++
	return d.rect, d.err
}

func TestChain_DetectFace(t *testing.T) {
	box := &liveness.Rect{X: 1, Y: 2, W: 30, H: 40}

	t.Run("falls back when the primary is down", func(t *testing.T) {
		a := &detectingEmbedder{err: errors.New("down")}
		b := &detectingEmbedder{rect: box}
		got, err := NewChain(nil, a, b).DetectFace(context.Background(), nil)
		if err != nil || got != box {
			t.Fatalf("unexpected result %v, %v", got, err)
		}
		if a.detects != 1 || b.detects != 1 {
			t.Errorf("detect calls = %d, %d, want 1, 1", a.detects, b.detects)
		}
	})

	t.Run("no face does not fall back", func(t *testing.T) {
		a := &detectingEmbedder{}
		b := &detectingEmbedder{rect: box}
		got, err := NewChain(nil, a, b).DetectFace(context.Background(), nil)
		if err != nil || got != nil {
			t.Fatalf("unexpected result %v, %v", got, err)
		}
		if b.detects != 0 {
			t.Error("second provider should not be called")
		}
	})

	t.Run("skips providers that cannot detect", func(t *testing.T) {
		a := &stubEmbedder{}
		b := &detectingEmbedder{rect: box}
		got, err := NewChain(nil, a, b).DetectFace(context.Background(), nil)
		if err != nil || got != box {
			t.Fatalf("unexpected result %v, %v", got, err)
		}
	})

	t.Run("all fail", func(t *testing.T) {
		a := &detectingEmbedder{err: errors.New("down")}
		b := &detectingEmbedder{err: errors.New("also down")}
		if _, err := NewChain(nil, a, b).DetectFace(context.Background(), nil); !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("no detecting providers", func(t *testing.T) {
		if _, err := NewChain(nil, &stubEmbedder{}).DetectFace(context.Background(), nil); !errors.Is(err, ErrNoProviders) {
			t.Errorf("expected ErrNoProviders, got %v", err)
		}
	})
}

func TestChain_FallsBackAcrossClients(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"faces_count":1,"faces":[{"embedding":[1],"bbox":[0,0,50,60]}]}`)
	}))
	defer up.Close()

	chain := NewChain(nil, NewClient(down.URL, time.Second), NewClient(up.URL, time.Second))
	r, err := chain.DetectFace(context.Background(), []byte("frame"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil || *r != (liveness.Rect{W: 50, H: 60}) {
		t.Errorf("unexpected rect %+v", r)
	}
	if got := NewClient(up.URL+"/", time.Second).Name(); got != up.URL {
		t.Errorf("Name() = %q, want %q", got, up.URL)
	}
}
