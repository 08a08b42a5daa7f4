package enrollment

import (
	"context"
	"sync"

	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/extractor"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/fingerprint"
	"github.com/kozaktomas/rollcall/internal/imageutil"
	"github.com/kozaktomas/rollcall/internal/logger"
	"go.uber.org/zap"
)

// PersonResult is the outcome of embedding one student's captures.
// Embedding is nil when no capture produced a face.
type PersonResult struct {
	Roll       string    `json:"roll"`
	Sampled    int       `json:"sampled"`
	Used       int       `json:"used"`
	Duplicates int       `json:"duplicates,omitempty"`
	Embedding  []float32 `json:"-"`
}

// Trained reports whether the person got a reference embedding.
func (p PersonResult) Trained() bool {
	return p.Embedding != nil
}

// Aggregator averages per-image embeddings into one reference per person.
type Aggregator struct {
	embedder      extractor.Embedder
	source        ImageSource
	concurrency   int
	dedupDistance int
	logger        *zap.Logger
}

func NewAggregator(embedder extractor.Embedder, source ImageSource, concurrency, dedupDistance int, log *zap.Logger) *Aggregator {
	if concurrency <= 0 {
		concurrency = constants.WorkerPoolSize
	}
	return &Aggregator{
		embedder:      embedder,
		source:        source,
		concurrency:   concurrency,
		dedupDistance: dedupDistance,
		logger:        logger.OrNop(log),
	}
}

// Person embeds up to limit of the person's images. Images that cannot be
// read or show no face are skipped; the first face of a multi-face capture is used.
func (a *Aggregator) Person(ctx context.Context, p Person, limit int) PersonResult {
	log := a.logger.With(zap.String("roll", p.Roll))
	images := p.Images
	if limit > 0 && len(images) > limit {
		images = images[:limit]
	}
	res := PersonResult{Roll: p.Roll, Sampled: len(images)}

	var dedup *fingerprint.Deduplicator
	if a.dedupDistance > 0 {
		dedup = fingerprint.NewDeduplicator(a.dedupDistance)
	}

	var captures [][]byte
	for _, path := range images {
		data, err := a.source.ReadImage(ctx, path)
		if err != nil {
			log.Warn("skipping unreadable capture", zap.String("path", path), zap.Error(err))
			continue
		}
		if dedup != nil && !dedup.Accept(data) {
			res.Duplicates++
			continue
		}
		captures = append(captures, data)
	}

	embeddings := make([][]float32, len(captures))
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	for i, data := range captures {
		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			embeddings[i] = a.embed(ctx, log, data)
		}(i, data)
	}
	wg.Wait()

	var ok [][]float32
	for _, e := range embeddings {
		if e != nil {
			ok = append(ok, e)
		}
	}
	res.Used = len(ok)
	if len(ok) == 0 {
		return res
	}

	mean, err := facematch.Mean(ok)
	if err != nil {
		log.Warn("cannot average embeddings", zap.Error(err))
		res.Used = 0
		return res
	}
	unit, valid := facematch.Normalize(mean)
	if !valid {
		log.Warn("embeddings cancel out, person excluded")
		res.Used = 0
		return res
	}
	res.Embedding = unit
	return res
}

func (a *Aggregator) embed(ctx context.Context, log *zap.Logger, data []byte) []float32 {
	resized, err := imageutil.Resize(data, constants.MaxImageSize)
	if err != nil {
		log.Debug("capture could not be decoded", zap.Error(err))
		return nil
	}
	ext, err := a.embedder.Extract(ctx, resized)
	if err != nil {
		log.Debug("capture extraction failed", zap.Error(err))
		return nil
	}
	if len(ext.Faces) == 0 {
		return nil
	}
	if ext.Count() > 1 {
		log.Debug("multiple faces in capture, using first", zap.Int("faces", ext.Count()))
	}
	unit, ok := facematch.Normalize(ext.Faces[0].Embedding)
	if !ok {
		return nil
	}
	return unit
}
