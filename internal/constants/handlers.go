// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Upload constants
const (
	// MaxRequestBodySize is the maximum accepted JSON body in bytes; base64
	// frames and captures are about a third larger than the image (16MB)
	MaxRequestBodySize = 16 << 20
)

// Job constants
const (
	// JobRetention is how long finished training jobs stay queryable
	JobRetention = time.Hour

	// AttemptSweepInterval is how often expired liveness attempts are removed
	AttemptSweepInterval = 30 * time.Second
)
