package liveness

// LandmarkCount is the size of the 68-point facial landmark layout.
const LandmarkCount = 68

// Index ranges into the 68-point layout, half-open.
const (
	jawStart, jawEnd           = 0, 17
	rightBrowStart             = 17
	leftBrowStart              = 22
	noseStart                  = 27
	rightEyeStart, rightEyeEnd = 36, 42
	leftEyeStart, leftEyeEnd   = 42, 48
	mouthStart, mouthEnd       = 48, 68
)

// Landmarks is a full 68-point face shape.
type Landmarks []Point

// Valid reports whether the shape has all 68 points.
func (l Landmarks) Valid() bool {
	return len(l) >= LandmarkCount
}

func (l Landmarks) RightEye() []Point { return l[rightEyeStart:rightEyeEnd] }
func (l Landmarks) LeftEye() []Point  { return l[leftEyeStart:leftEyeEnd] }
func (l Landmarks) Mouth() []Point    { return l[mouthStart:mouthEnd] }

// Relative positions inside the face box used by ApproximateLandmarks.
var (
	approxNose = [9][2]float64{
		{0.35, 0.4}, {0.5, 0.3}, {0.65, 0.4},
		{0.5, 0.6}, {0.5, 0.7}, {0.5, 0.8},
		{0.4, 0.9}, {0.5, 0.95}, {0.6, 0.9},
	}
	approxEye = [6][2]float64{
		{0.3, 0.35}, {0.35, 0.3}, {0.4, 0.35},
		{0.35, 0.4}, {0.3, 0.4}, {0.35, 0.45},
	}
	approxMouth = [20][2]float64{
		{0.3, 0.7}, {0.35, 0.65}, {0.4, 0.7}, {0.45, 0.65},
		{0.5, 0.7}, {0.55, 0.65}, {0.6, 0.7}, {0.65, 0.65},
		{0.7, 0.7}, {0.65, 0.75}, {0.6, 0.8}, {0.55, 0.75},
		{0.5, 0.8}, {0.45, 0.75}, {0.4, 0.8}, {0.35, 0.75},
		{0.3, 0.8}, {0.35, 0.85}, {0.5, 0.85}, {0.65, 0.85},
	}
)

// ApproximateLandmarks places a fixed 68-point shape inside the face box.
// It is used when no landmark provider is reachable. The approximated eyes never
// close, so an attempt that stays in this mode cannot become live.
func ApproximateLandmarks(r Rect) Landmarks {
	x, y := float64(r.X), float64(r.Y)
	w, h := float64(r.W), float64(r.H)
	at := func(fx, fy float64) Point {
		return Point{X: x + float64(int(w*fx)), Y: y + float64(int(h*fy))}
	}

	l := make(Landmarks, LandmarkCount)
	for i := jawStart; i < jawEnd; i++ {
		l[i] = Point{X: x + float64(int(w*float64(i)/16)), Y: y + h}
	}
	for i := range 5 {
		l[rightBrowStart+i] = Point{X: x + float64(int(w*float64(i+1)/6)), Y: y + float64(int(h*0.2))}
		l[leftBrowStart+i] = Point{X: x + float64(int(w*float64(i+4)/6)), Y: y + float64(int(h*0.2))}
	}
	for i, p := range approxNose {
		l[noseStart+i] = at(p[0], p[1])
	}
	for i, p := range approxEye {
		l[rightEyeStart+i] = at(p[0], p[1])
		l[leftEyeStart+i] = at(p[0]+0.3, p[1])
	}
	for i, p := range approxMouth {
		l[mouthStart+i] = at(p[0], p[1])
	}
	return l
}
