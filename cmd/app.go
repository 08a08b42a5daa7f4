package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/database/mariadb"
	"github.com/kozaktomas/rollcall/internal/database/postgres"
	"github.com/kozaktomas/rollcall/internal/enrollment"
	"github.com/kozaktomas/rollcall/internal/extractor"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/jobs"
	"github.com/kozaktomas/rollcall/internal/logger"
	"github.com/kozaktomas/rollcall/internal/recognition"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the services shared by the commands.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	pool       *postgres.Pool
	embedder   *extractor.Chain
	landmarks  *extractor.Client
	store      *recognition.Store
	recognizer *recognition.Recognizer
	source     *enrollment.DirSource
	trainer    *enrollment.Trainer
	jobs       *jobs.Registry

	closers []func() error
}

// loadConfig reads the environment and builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	if lvl := mustGetString(cmd, "log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// newApp connects to PostgreSQL and wires recognition and enrollment.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	mode, err := cfg.RecognitionMode()
	if err != nil {
		return nil, fmt.Errorf("invalid recognition mode: %w", err)
	}

	log.Info("connecting to PostgreSQL")
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, pool: pool}
	a.closers = append(a.closers, pool.Close)

	providers := []extractor.Embedder{extractor.NewClient(cfg.Extractor.EmbeddingURL, cfg.Extractor.Timeout)}
	if cfg.Extractor.FallbackURL != "" {
		providers = append(providers, extractor.NewClient(cfg.Extractor.FallbackURL, cfg.Extractor.Timeout))
	}
	a.embedder = extractor.NewChain(log, providers...)
	if cfg.Extractor.LandmarkURL != "" {
		a.landmarks = extractor.NewClient(cfg.Extractor.LandmarkURL, cfg.Extractor.Timeout)
	}

	refs := postgres.NewReferenceRepository(pool)
	a.store = recognition.NewStore(refs, cfg.Recognition.IndexMinSize, cfg.Recognition.RefreshInterval)
	a.recognizer = recognition.NewRecognizer(a.store, a.embedder, facematch.ThresholdsFor(mode), log)

	a.source = enrollment.NewDirSource(cfg.Enrollment.UploadDir)
	a.jobs = jobs.NewRegistry(constants.JobRetention)
	aggregator := enrollment.NewAggregator(a.embedder, a.source, cfg.Enrollment.Concurrency, cfg.Enrollment.DedupDistance, log)
	a.trainer = enrollment.NewTrainer(aggregator, a.source, refs, a.store, cfg.Modes, a.jobs, log)

	log.Info("services ready",
		zap.String("mode", mode.Name),
		zap.Float64("recognition_threshold", mode.RecognitionThreshold),
		zap.Float64("min_confidence", mode.MinConfidence),
		zap.Bool("fallback_extractor", cfg.Extractor.FallbackURL != ""),
		zap.Bool("landmarks", a.landmarks != nil),
	)
	return a, nil
}

// students returns the roster: the external MariaDB front-end when configured,
// the local students table otherwise.
func (a *app) students() (database.StudentReader, error) {
	if a.cfg.Roster.DatabaseURL == "" {
		return postgres.NewStudentRepository(a.pool), nil
	}
	rosterPool, err := mariadb.NewPool(a.cfg.Roster.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect roster database: %w", err)
	}
	a.closers = append(a.closers, rosterPool.Close)
	a.log.Info("using MariaDB roster")
	return mariadb.NewRosterRepository(rosterPool), nil
}

// locker returns the Redis attendance lock when REDIS_ADDR is set. A nil
// locker makes the policy use an in-process mutex.
func (a *app) locker(ctx context.Context) (attendance.Locker, error) {
	if a.cfg.Redis.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.log.Info("using Redis attendance lock", zap.String("addr", a.cfg.Redis.Addr))
	return attendance.NewRedisLocker(client, a.cfg.Attendance.LockTTL), nil
}

// policy builds the attendance policy over the configured stores.
func (a *app) policy(ctx context.Context) (*attendance.Policy, error) {
	students, err := a.students()
	if err != nil {
		return nil, err
	}
	locker, err := a.locker(ctx)
	if err != nil {
		return nil, err
	}
	return attendance.NewPolicy(
		students,
		postgres.NewSessionRepository(a.pool),
		postgres.NewAttendanceRepository(a.pool),
		locker,
		a.cfg.Attendance,
		a.log,
	), nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
