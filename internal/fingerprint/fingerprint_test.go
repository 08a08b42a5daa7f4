package fingerprint

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// gradient returns a horizontal gradient; reversed flips its direction.
func gradient(t *testing.T, reversed bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 90, 80))
	for x := range 90 {
		v := uint8(x * 255 / 89)
		if reversed {
			v = 255 - v
		}
		for y := range 80 {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return encodePNG(t, img)
}

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected int
	}{
		{"identical", 0x0, 0x0, 0},
		{"completely different", 0xFFFFFFFFFFFFFFFF, 0x0, 64},
		{"one bit different", 0x1, 0x0, 1},
		{"half different", 0xFFFFFFFF00000000, 0x0, 32},
		{"alternating", 0xAAAAAAAAAAAAAAAA, 0x5555555555555555, 64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if result := HammingDistance(tc.hash1, tc.hash2); result != tc.expected {
				t.Errorf("HammingDistance(%x, %x) = %d; want %d", tc.hash1, tc.hash2, result, tc.expected)
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	if !Similar(0x0, 0x3FF, 10) {
		t.Error("10 bits different should be similar at threshold 10")
	}
	if Similar(0x0, 0x7FF, 10) {
		t.Error("11 bits different should not be similar at threshold 10")
	}
}

func TestDHash(t *testing.T) {
	dark := gradient(t, true)
	light := gradient(t, false)

	h1, err := DHash(dark)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := DHash(dark)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected stable hash, got %x and %x", h1, h2)
	}

	h3, err := DHash(light)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if HammingDistance(h1, h3) < 32 {
		t.Errorf("expected opposite gradients to differ, distance %d", HammingDistance(h1, h3))
	}

	if _, err := DHash([]byte("not an image")); err == nil {
		t.Error("expected error for invalid image")
	}
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator(4)
	a := gradient(t, false)
	b := gradient(t, true)

	if !d.Accept(a) {
		t.Error("first capture should be accepted")
	}
	if d.Accept(a) {
		t.Error("identical capture should be rejected")
	}
	if !d.Accept(b) {
		t.Error("different capture should be accepted")
	}
	if !d.Accept([]byte("broken")) {
		t.Error("undecodable capture should be passed through")
	}
}
