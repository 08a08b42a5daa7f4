package enrollment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/jobs"
	"github.com/kozaktomas/rollcall/internal/logger"
	"go.uber.org/zap"
)

var (
	// ErrNoStudents is returned when a subject has no capture directories.
	ErrNoStudents = errors.New("no students found with images")
	// ErrNothingTrained is returned when no person produced a reference embedding.
	// The previous reference store is left in place.
	ErrNothingTrained = errors.New("training failed - no students could be processed")
)

// Report is the summary of one training run.
type Report struct {
	Status          string         `json:"status"` // success or error
	Mode            string         `json:"mode"`
	Model           string         `json:"model"`
	Detector        string         `json:"detector"`
	TrainedCount    int            `json:"trainedCount"`
	TotalCount      int            `json:"totalCount"`
	ImagesProcessed int            `json:"imagesProcessed"`
	Seconds         float64        `json:"time"`
	Excluded        []string       `json:"excluded,omitempty"`
	People          []PersonResult `json:"people"`
	Message         string         `json:"message"`
}

// Progress receives per-person progress of a training run.
type Progress interface {
	Start(total int, message string)
	Advance(current string, processed int, message string)
}

type nopProgress struct{}

func (nopProgress) Start(int, string)           {}
func (nopProgress) Advance(string, int, string) {}

// Invalidator drops a cached reference set so live recognition reloads it.
type Invalidator interface {
	Invalidate(subjectID int64)
}

// Trainer runs enrollment for a whole subject and publishes the result.
type Trainer struct {
	aggregator *Aggregator
	source     ImageSource
	refs       database.ReferenceWriter
	cache      Invalidator
	modes      config.ModesConfig
	registry   *jobs.Registry
	logger     *zap.Logger
	now        func() time.Time
}

func NewTrainer(
	aggregator *Aggregator,
	source ImageSource,
	refs database.ReferenceWriter,
	cache Invalidator,
	modes config.ModesConfig,
	registry *jobs.Registry,
	log *zap.Logger,
) *Trainer {
	return &Trainer{
		aggregator: aggregator,
		source:     source,
		refs:       refs,
		cache:      cache,
		modes:      modes,
		registry:   registry,
		logger:     logger.OrNop(log),
		now:        time.Now,
	}
}

// TrainSubject trains the subject synchronously.
func (t *Trainer) TrainSubject(ctx context.Context, subjectID int64, mode string) (*Report, error) {
	return t.Train(ctx, subjectID, mode, nil)
}

// Train rebuilds the subject's reference store from its captures, reporting
// per-person progress. The store is replaced only if at least one person trained.
func (t *Trainer) Train(ctx context.Context, subjectID int64, modeName string, progress Progress) (*Report, error) {
	if progress == nil {
		progress = nopProgress{}
	}
	mode, err := t.modes.Mode(modeName)
	if err != nil {
		return nil, err
	}

	people, err := t.source.People(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list enrollment images: %w", err)
	}
	if len(people) == 0 {
		return nil, ErrNoStudents
	}

	log := t.logger.With(zap.Int64("subject_id", subjectID), zap.String("mode", mode.Name))
	log.Info("starting training",
		zap.Int("students", len(people)),
		zap.Int("images_per_student", mode.ImagesPerStudent),
		zap.String("model", mode.ModelName),
	)

	start := t.now()
	report := &Report{
		Mode:       mode.Name,
		Model:      mode.ModelName,
		Detector:   mode.DetectorBackend,
		TotalCount: len(people),
	}
	progress.Start(len(people), fmt.Sprintf("Training %d students", len(people)))

	var identities []database.EnrolledIdentity
	for i, p := range people {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Advance(p.Roll, i, fmt.Sprintf("Processing student %d/%d: %s", i+1, len(people), p.Roll))

		res := t.aggregator.Person(ctx, p, mode.ImagesPerStudent)
		report.People = append(report.People, res)
		report.ImagesProcessed += res.Used

		if !res.Trained() {
			log.Warn("no valid face embeddings, student excluded", zap.String("roll", p.Roll), zap.Int("sampled", res.Sampled))
			report.Excluded = append(report.Excluded, p.Roll)
			continue
		}
		log.Info("student trained", zap.String("roll", p.Roll), zap.Int("used", res.Used), zap.Int("sampled", res.Sampled))
		identities = append(identities, database.EnrolledIdentity{
			SubjectID:  subjectID,
			Roll:       p.Roll,
			Embedding:  res.Embedding,
			ImageCount: res.Used,
			EnrolledAt: t.now().UTC(),
		})
	}
	progress.Advance("", len(people), "Saving reference embeddings")

	report.TrainedCount = len(identities)
	report.Seconds = math.Round(t.now().Sub(start).Seconds()*100) / 100

	if len(identities) == 0 {
		report.Status = "error"
		report.Message = ErrNothingTrained.Error()
		log.Error("training produced no embeddings")
		return report, ErrNothingTrained
	}

	if err := t.refs.ReplaceReferences(ctx, subjectID, identities); err != nil {
		return nil, fmt.Errorf("save reference embeddings: %w", err)
	}
	if t.cache != nil {
		t.cache.Invalidate(subjectID)
	}

	report.Status = "success"
	report.Message = fmt.Sprintf("Training successful! %d students trained in %.1fs", report.TrainedCount, report.Seconds)
	log.Info("training completed",
		zap.Int("trained", report.TrainedCount),
		zap.Int("total", report.TotalCount),
		zap.Int("images", report.ImagesProcessed),
		zap.Float64("seconds", report.Seconds),
	)
	return report, nil
}

// Start runs training in the background and tracks it in the job registry.
// The run is not tied to any request and stops only with the process.
func (t *Trainer) Start(subjectID int64, mode string) (*jobs.Job, error) {
	if _, err := t.modes.Mode(mode); err != nil {
		return nil, err
	}
	job, err := t.registry.Create(subjectID, mode)
	if err != nil {
		return nil, err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("training panicked", zap.Any("panic", r), zap.String("job_id", job.ID()))
				job.Fail(fmt.Errorf("training panicked: %v", r), nil)
			}
		}()

		report, err := t.Train(context.Background(), subjectID, mode, job)
		if err != nil {
			var result any
			if report != nil {
				result = report
			}
			job.Fail(err, result)
			return
		}
		job.Complete(report, report.Message)
	}()

	return job, nil
}
