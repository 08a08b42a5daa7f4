package facematch

import (
	"math"
	"testing"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"identical unit", []float32{0.6, 0.8}, []float32{0.6, 0.8}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Dot(tt.a, tt.b); math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("Dot() = %f, want %f", result, tt.expected)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	v, ok := Normalize([]float32{3, 4})
	if !ok {
		t.Fatal("expected normalization to succeed")
	}
	if math.Abs(Norm(v)-1) > 0.0001 || math.Abs(float64(v[0])-0.6) > 0.0001 {
		t.Errorf("unexpected unit vector %v", v)
	}

	for _, bad := range [][]float32{nil, {}, {0, 0, 0}} {
		if _, ok := Normalize(bad); ok {
			t.Errorf("expected %v to be rejected", bad)
		}
	}
}

func TestMean(t *testing.T) {
	m, err := Mean([][]float32{{1, 0}, {0, 1}, {1, 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(m[0])-2.0/3) > 0.0001 || math.Abs(float64(m[1])-2.0/3) > 0.0001 {
		t.Errorf("unexpected mean %v", m)
	}

	if _, err := Mean(nil); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := Mean([][]float32{{1, 0}, {1}}); err == nil {
		t.Error("expected error for dimension mismatch")
	}
}
