// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Eye aspect ratio constants
const (
	// EyeARThreshold is the EAR below which an eye is considered closed
	EyeARThreshold = 0.25

	// EyeARConsecFrames is the number of consecutive closed frames that make a blink
	EyeARConsecFrames = 3
)

// Mouth aspect ratio constants
const (
	// MouthARThreshold is the MAR above which the mouth is considered open
	MouthARThreshold = 0.5

	// MouthARConsecFrames is the number of consecutive open frames that make a yawn
	MouthARConsecFrames = 10
)

// Head movement constants
const (
	// HeadHistorySize is the rolling window of face centers kept per attempt
	HeadHistorySize = 30

	// HeadMinSamples is the number of face centers required before movement is evaluated
	HeadMinSamples = 10

	// HeadMovementThreshold is the mean per-axis pixel variance that counts as movement
	HeadMovementThreshold = 10.0
)

// Liveness scoring constants
const (
	// MaxBlinkPoints caps the score contribution of blinks
	MaxBlinkPoints = 2

	// HeadMovementPoints is the score contribution of detected head movement
	HeadMovementPoints = 2

	// MinFramesForPoint is the frame count that earns the duration point
	MinFramesForPoint = 15

	// LiveScoreThreshold is the minimum score for a live verdict
	LiveScoreThreshold = 4

	// MaxLivenessScore is the highest score an attempt can reach
	MaxLivenessScore = 6
)

// Attendance constants
const (
	// DefaultMinAntiSpoofingScore is the lowest client anti-spoofing score accepted
	DefaultMinAntiSpoofingScore = 60.0

	// TopMatches is the number of candidates kept on a recognition result for auditing
	TopMatches = 3
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for enrollment
	WorkerPoolSize = 4

	// MaxImageSize is the maximum dimension (width or height) sent to the extractor
	MaxImageSize = 1280
)
