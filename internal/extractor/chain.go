package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/liveness"
	"github.com/kozaktomas/rollcall/internal/logger"
	"go.uber.org/zap"
)

// Chain tries its providers in order and returns the first successful extraction.
// A provider that answers with zero faces is a success; only errors fall through.
type Chain struct {
	providers []Embedder
	logger    *zap.Logger
}

func NewChain(log *zap.Logger, providers ...Embedder) *Chain {
	return &Chain{providers: providers, logger: logger.OrNop(log)}
}

func (c *Chain) Extract(ctx context.Context, image []byte) (*Extraction, error) {
	if len(c.providers) == 0 {
		return nil, ErrNoProviders
	}

	var errs []error
	for i, p := range c.providers {
		ext, err := p.Extract(ctx, image)
		if err == nil {
			return ext, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("extractor provider failed", zap.String("provider", providerName(i, p)), zap.Error(err))
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

// DetectFace finds the face box with the first provider that can detect faces,
// falling back like Extract does.
func (c *Chain) DetectFace(ctx context.Context, frame []byte) (*liveness.Rect, error) {
	var errs []error
	for i, p := range c.providers {
		d, ok := p.(liveness.FaceDetector)
		if !ok {
			continue
		}
		r, err := d.DetectFace(ctx, frame)
		if err == nil {
			return r, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("face detection provider failed", zap.String("provider", providerName(i, p)), zap.Error(err))
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoProviders
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func providerName(i int, p Embedder) string {
	if n, ok := p.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("provider-%d", i)
}
