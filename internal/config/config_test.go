package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadModes(t *testing.T) {
	modes := loadModes()

	tests := []struct {
		name      string
		images    int
		threshold float64
		minConf   float64
	}{
		{ModeHighQuality, 20, 0.60, 0.50},
		{ModeFasterQuality, 12, 0.55, 0.45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := modes.Mode(tt.name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Name != tt.name {
				t.Errorf("expected name %s, got %s", tt.name, m.Name)
			}
			if m.ImagesPerStudent != tt.images {
				t.Errorf("expected %d images, got %d", tt.images, m.ImagesPerStudent)
			}
			if m.RecognitionThreshold != tt.threshold || m.MinConfidence != tt.minConf {
				t.Errorf("unexpected thresholds %.2f/%.2f", m.RecognitionThreshold, m.MinConfidence)
			}
			if m.ModelName != "ArcFace" || m.DetectorBackend != "retinaface" {
				t.Errorf("unexpected backend %s/%s", m.DetectorBackend, m.ModelName)
			}
			if err := m.Validate(); err != nil {
				t.Errorf("embedded mode should be valid: %v", err)
			}
		})
	}
}

func TestModesConfig_UnknownMode(t *testing.T) {
	modes := loadModes()
	_, err := modes.Mode("ultra")
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("err = %v, want ErrUnknownMode", err)
	}
	names := modes.Names()
	if len(names) != 2 || names[0] != ModeFasterQuality || names[1] != ModeHighQuality {
		t.Errorf("unexpected names %v", names)
	}
}

func TestMode_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		wantErr bool
	}{
		{"valid", Mode{ImagesPerStudent: 5, RecognitionThreshold: 0.6, MinConfidence: 0.5}, false},
		{"equal thresholds", Mode{ImagesPerStudent: 5, RecognitionThreshold: 0.5, MinConfidence: 0.5}, true},
		{"inverted thresholds", Mode{ImagesPerStudent: 5, RecognitionThreshold: 0.4, MinConfidence: 0.5}, true},
		{"zero min confidence", Mode{ImagesPerStudent: 5, RecognitionThreshold: 0.6}, true},
		{"threshold above one", Mode{ImagesPerStudent: 5, RecognitionThreshold: 1.2, MinConfidence: 0.5}, true},
		{"no images", Mode{RecognitionThreshold: 0.6, MinConfidence: 0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mode.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RECOGNITION_MODE", "")
	t.Setenv("ATTENDANCE_TIMEZONE", "")
	t.Setenv("LIVENESS_ATTEMPT_TTL", "")
	t.Setenv("MIN_ANTI_SPOOFING_SCORE", "")
	t.Setenv("REFERENCE_REFRESH_INTERVAL", "")

	cfg := Load()

	if cfg.Recognition.Mode != ModeHighQuality {
		t.Errorf("expected default mode %s, got %s", ModeHighQuality, cfg.Recognition.Mode)
	}
	if cfg.Attendance.Location != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Attendance.Location)
	}
	if cfg.Attendance.MinAntiSpoofingScore != 60 {
		t.Errorf("expected anti-spoofing minimum 60, got %v", cfg.Attendance.MinAntiSpoofingScore)
	}
	if cfg.Liveness.AttemptTTL != 2*time.Minute {
		t.Errorf("expected attempt TTL 2m, got %v", cfg.Liveness.AttemptTTL)
	}
	if cfg.Recognition.RefreshInterval != 2*time.Second {
		t.Errorf("expected reference refresh interval 2s, got %v", cfg.Recognition.RefreshInterval)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RECOGNITION_MODE", ModeFasterQuality)
	t.Setenv("RECOGNITION_THRESHOLD", "0.7")
	t.Setenv("ENROLLMENT_CONCURRENCY", "not-a-number")
	t.Setenv("WEB_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("LOCK_TTL", "3s")

	cfg := Load()

	m, err := cfg.RecognitionMode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != ModeFasterQuality || m.RecognitionThreshold != 0.7 || m.MinConfidence != 0.45 {
		t.Errorf("unexpected recognition mode %+v", m)
	}
	if cfg.Enrollment.Concurrency != 4 {
		t.Errorf("expected default concurrency on invalid value, got %d", cfg.Enrollment.Concurrency)
	}
	if len(cfg.Web.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.Web.AllowedOrigins)
	}
	if cfg.Attendance.LockTTL != 3*time.Second {
		t.Errorf("expected lock TTL 3s, got %v", cfg.Attendance.LockTTL)
	}
}

func TestRecognitionMode_InvalidOverride(t *testing.T) {
	t.Setenv("RECOGNITION_MODE", ModeHighQuality)
	t.Setenv("MIN_CONFIDENCE", "0.9")

	cfg := Load()
	if _, err := cfg.RecognitionMode(); err == nil {
		t.Error("expected error when min confidence exceeds recognition threshold")
	}
}
