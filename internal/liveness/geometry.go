package liveness

import "math"

// Point is a landmark position in frame pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a face bounding box in frame pixel coordinates.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Center returns the integer center of the box.
func (r Rect) Center() Point {
	return Point{X: float64(r.X + r.W/2), Y: float64(r.Y + r.H/2)}
}

// Empty reports whether the box has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2|p1-p4|) over six eye points.
// Returns 0 for malformed input, which reads as a closed eye.
func EyeAspectRatio(eye []Point) float64 {
	if len(eye) < 6 {
		return 0
	}
	horizontal := distance(eye[0], eye[3])
	if horizontal == 0 {
		return 0
	}
	return (distance(eye[1], eye[5]) + distance(eye[2], eye[4])) / (2.0 * horizontal)
}

// MouthAspectRatio computes the mean of three inner-lip vertical distances
// over the inner-lip width, using the 20-point mouth layout.
// Returns 0 for malformed input, which reads as a closed mouth.
func MouthAspectRatio(mouth []Point) float64 {
	if len(mouth) < 20 {
		return 0
	}
	width := distance(mouth[12], mouth[16])
	if width == 0 {
		return 0
	}
	a := distance(mouth[13], mouth[19])
	b := distance(mouth[14], mouth[18])
	c := distance(mouth[15], mouth[17])
	return (a + b + c) / (3.0 * width)
}

// movementScore is the mean of the per-axis population variance of the centers.
func movementScore(centers []Point) float64 {
	n := float64(len(centers))
	if n == 0 {
		return 0
	}
	var sumX, sumY float64
	for _, c := range centers {
		sumX += c.X
		sumY += c.Y
	}
	meanX, meanY := sumX/n, sumY/n
	var varX, varY float64
	for _, c := range centers {
		varX += (c.X - meanX) * (c.X - meanX)
		varY += (c.Y - meanY) * (c.Y - meanY)
	}
	return (varX/n + varY/n) / 2
}
