package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed modes.yaml
var modesYAML []byte

// Mode names shipped in modes.yaml.
const (
	ModeHighQuality   = "high_quality"
	ModeFasterQuality = "faster_quality"
)

type Config struct {
	Database    DatabaseConfig
	Roster      RosterConfig
	Extractor   ExtractorConfig
	Recognition RecognitionConfig
	Liveness    LivenessConfig
	Attendance  AttendanceConfig
	Enrollment  EnrollmentConfig
	Redis       RedisConfig
	Log         LogConfig
	Web         WebConfig
	Modes       ModesConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RosterConfig struct {
	DatabaseURL string // MariaDB/MySQL DSN of the attendance front-end (optional, students table is used when empty)
}

type ExtractorConfig struct {
	EmbeddingURL string        // primary face embedding service
	FallbackURL  string        // secondary embedding service, tried when the primary fails
	LandmarkURL  string        // 68-point landmark service (optional)
	Timeout      time.Duration // per-request timeout
}

type RecognitionConfig struct {
	Mode                 string  // operating mode used for live recognition
	RecognitionThreshold float64 // overrides the mode threshold when > 0
	MinConfidence        float64 // overrides the mode minimum when > 0
	IndexMinSize         int     // gallery size from which the HNSW index is used (0 disables)

	// RefreshInterval bounds how long a cached gallery is trusted before its
	// stored version is checked again.
	RefreshInterval time.Duration
}

type LivenessConfig struct {
	AttemptTTL time.Duration // idle attempts are discarded after this long
}

type AttendanceConfig struct {
	MinAntiSpoofingScore float64
	Timezone             string         // calendar used for the per-day rule
	Location             *time.Location // resolved Timezone
	LockTTL              time.Duration
}

type EnrollmentConfig struct {
	UploadDir     string // root of <subject>/<roll>/ capture folders
	Concurrency   int
	DedupDistance int // dHash distance at or below which captures are treated as duplicates (0 disables)
}

type RedisConfig struct {
	Addr     string // enables the distributed attendance lock when set
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string // json or console
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type ModesConfig struct {
	Modes map[string]Mode `yaml:"modes"`
}

// Mode is one operating mode: how many captures to embed per person and the
// similarity thresholds used for tiering.
type Mode struct {
	Name                 string  `yaml:"-"`
	ImagesPerStudent     int     `yaml:"images_per_student"`
	RecognitionThreshold float64 `yaml:"recognition_threshold"`
	MinConfidence        float64 `yaml:"min_confidence"`
	DetectorBackend      string  `yaml:"detector_backend"`
	ModelName            string  `yaml:"model_name"`
}

func (m Mode) Validate() error {
	if m.ImagesPerStudent <= 0 {
		return fmt.Errorf("mode %s: images_per_student must be positive", m.Name)
	}
	if m.MinConfidence <= 0 || m.MinConfidence >= m.RecognitionThreshold || m.RecognitionThreshold > 1 {
		return fmt.Errorf("mode %s: thresholds must satisfy 0 < min_confidence (%.2f) < recognition_threshold (%.2f) <= 1",
			m.Name, m.MinConfidence, m.RecognitionThreshold)
	}
	return nil
}

// ErrUnknownMode is returned for a mode name missing from the modes table.
var ErrUnknownMode = errors.New("unknown mode")

// Mode returns the named operating mode.
func (c *ModesConfig) Mode(name string) (Mode, error) {
	m, ok := c.Modes[name]
	if !ok {
		return Mode{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownMode, name, strings.Join(c.Names(), ", "))
	}
	m.Name = name
	return m, nil
}

// Names returns the configured mode names in sorted order.
func (c *ModesConfig) Names() []string {
	names := make([]string, 0, len(c.Modes))
	for name := range c.Modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RecognitionMode returns the mode used for live recognition with any
// threshold overrides applied.
func (c *Config) RecognitionMode() (Mode, error) {
	m, err := c.Modes.Mode(c.Recognition.Mode)
	if err != nil {
		return Mode{}, err
	}
	if c.Recognition.RecognitionThreshold > 0 {
		m.RecognitionThreshold = c.Recognition.RecognitionThreshold
	}
	if c.Recognition.MinConfidence > 0 {
		m.MinConfidence = c.Recognition.MinConfidence
	}
	if err := m.Validate(); err != nil {
		return Mode{}, err
	}
	return m, nil
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadModes() ModesConfig {
	var modes ModesConfig
	if err := yaml.Unmarshal(modesYAML, &modes); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded modes.yaml: " + err.Error())
	}
	return modes
}

func Load() *Config {
	tz := envString("ATTENDANCE_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	dedup := 0
	if s := os.Getenv("ENROLLMENT_DEDUP_DISTANCE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			dedup = n
		}
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Roster: RosterConfig{
			DatabaseURL: os.Getenv("ROSTER_DATABASE_URL"),
		},
		Extractor: ExtractorConfig{
			EmbeddingURL: envString("EMBEDDING_URL", "http://localhost:8000"),
			FallbackURL:  os.Getenv("EMBEDDING_FALLBACK_URL"),
			LandmarkURL:  os.Getenv("LANDMARK_URL"),
			Timeout:      envDuration("EXTRACTOR_TIMEOUT", 60*time.Second),
		},
		Recognition: RecognitionConfig{
			Mode:                 envString("RECOGNITION_MODE", ModeHighQuality),
			RecognitionThreshold: envFloat("RECOGNITION_THRESHOLD", 0),
			MinConfidence:        envFloat("MIN_CONFIDENCE", 0),
			IndexMinSize:         envInt("GALLERY_INDEX_MIN_SIZE", 0),
			RefreshInterval:      envDuration("REFERENCE_REFRESH_INTERVAL", 2*time.Second),
		},
		Liveness: LivenessConfig{
			AttemptTTL: envDuration("LIVENESS_ATTEMPT_TTL", 2*time.Minute),
		},
		Attendance: AttendanceConfig{
			MinAntiSpoofingScore: envFloat("MIN_ANTI_SPOOFING_SCORE", 60),
			Timezone:             tz,
			Location:             loc,
			LockTTL:              envDuration("LOCK_TTL", 10*time.Second),
		},
		Enrollment: EnrollmentConfig{
			UploadDir:     envString("UPLOAD_DIR", "uploads"),
			Concurrency:   envInt("ENROLLMENT_CONCURRENCY", 4),
			DedupDistance: dedup,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Modes: loadModes(),
	}
}
