package reranker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cvsearchd/internal/logging"
)

// FallbackReranker tries a primary reranker and falls back to a secondary
// one when the primary fails for any reason.
//
// A primary failure never fails the whole search: it is logged and the
// secondary's result is returned. Only an error from the secondary
// propagates to the caller.
type FallbackReranker struct {
	primary   Reranker
	secondary Reranker
	logger    *logging.Logger
}

// NewFallbackReranker wraps primary with a secondary fallback.
func NewFallbackReranker(primary, secondary Reranker, logger *logging.Logger) (*FallbackReranker, error) {
	if primary == nil || secondary == nil {
		return nil, fmt.Errorf("%w: primary and secondary rerankers are required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FallbackReranker{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}, nil
}

// Rerank delegates to the primary reranker, then to the secondary on error.
func (r *FallbackReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topN int) ([]RankedResult, error) {
	if len(candidates) == 0 {
		return []RankedResult{}, nil
	}

	results, err := r.primary.Rerank(ctx, query, candidates, topN)
	if err == nil {
		return results, nil
	}

	r.logger.Warn(ctx, "primary reranker failed, falling back to similarity reranker",
		zap.Int("candidates", len(candidates)),
		zap.Error(err),
	)

	results, err = r.secondary.Rerank(ctx, query, candidates, topN)
	if err != nil {
		return nil, fmt.Errorf("fallback rerank: %w", err)
	}
	return results, nil
}

// Close closes both wrapped rerankers, returning the first error.
func (r *FallbackReranker) Close() error {
	errPrimary := r.primary.Close()
	errSecondary := r.secondary.Close()
	if errPrimary != nil {
		return errPrimary
	}
	return errSecondary
}

// Ensure FallbackReranker implements Reranker interface.
var _ Reranker = (*FallbackReranker)(nil)
