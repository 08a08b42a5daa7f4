package recognition

import (
	"context"

	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/extractor"
	"github.com/kozaktomas/rollcall/internal/facematch"
	"github.com/kozaktomas/rollcall/internal/imageutil"
	"github.com/kozaktomas/rollcall/internal/logger"
	"go.uber.org/zap"
)

// Recognizer runs one captured image through the extractor and the matcher.
type Recognizer struct {
	store      *Store
	embedder   extractor.Embedder
	thresholds facematch.Thresholds
	logger     *zap.Logger
}

// NewRecognizer creates a recognizer using the given thresholds.
func NewRecognizer(store *Store, embedder extractor.Embedder, thresholds facematch.Thresholds, log *zap.Logger) *Recognizer {
	return &Recognizer{
		store:      store,
		embedder:   embedder,
		thresholds: thresholds,
		logger:     logger.OrNop(log),
	}
}

// Thresholds returns the cut-offs the recognizer tiers with.
func (r *Recognizer) Thresholds() facematch.Thresholds {
	return r.thresholds
}

// Recognize never fails: extractor and storage problems are reported as
// recognition_failed, an untrained subject as no_model.
func (r *Recognizer) Recognize(ctx context.Context, subjectID int64, image []byte) facematch.Result {
	log := r.logger.With(zap.Int64("subject_id", subjectID))

	gallery, err := r.store.Snapshot(ctx, subjectID)
	if err != nil {
		log.Error("failed to load reference store", zap.Error(err))
		return facematch.RecognitionFailed()
	}
	if gallery.Len() == 0 {
		return facematch.NoModel()
	}

	resized, err := imageutil.Resize(image, constants.MaxImageSize)
	if err != nil {
		log.Warn("failed to decode image", zap.Error(err))
		return facematch.RecognitionFailed()
	}

	ext, err := r.embedder.Extract(ctx, resized)
	if err != nil {
		log.Warn("face extraction failed", zap.Error(err))
		return facematch.RecognitionFailed()
	}

	switch n := ext.Count(); {
	case n == 0:
		return facematch.NoFace()
	case n > 1:
		return facematch.MultipleFaces(n)
	case len(ext.Faces) == 0:
		log.Warn("detected face came back without an embedding")
		return facematch.RecognitionFailed()
	}

	res := facematch.Match(ext.Faces[0].Embedding, gallery, r.thresholds)
	if ce := log.Check(zap.DebugLevel, "recognition result"); ce != nil {
		ce.Write(
			zap.String("status", string(res.Status)),
			zap.String("roll", res.Roll),
			zap.Float64("similarity", res.Similarity),
			zap.Any("top_matches", res.Candidates),
			zap.String("provider", ext.Provider),
			zap.Bool("indexed", gallery.Indexed()),
		)
	}
	return res
}
