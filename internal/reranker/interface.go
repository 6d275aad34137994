// Package reranker provides second-stage relevance scoring over retrieval
// candidates.
//
// The primary reranker delegates to an external cross-encoder that scores
// query/candidate pairs together. Because that call can fail, a similarity
// based secondary reranker exists with no dependency beyond the embedding
// provider, and a fallback wrapper makes the primary-then-secondary order a
// first-class, testable behavior instead of incidental error recovery.
package reranker

import (
	"context"
	"errors"
)

// Sentinel errors for reranking operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderUnavailable indicates the scoring service is unreachable
	// or refused the request.
	ErrProviderUnavailable = errors.New("rerank provider unavailable")

	// ErrProviderResponse indicates a malformed scoring response.
	ErrProviderResponse = errors.New("malformed rerank provider response")
)

// Candidate is a retrieval candidate submitted for reranking.
type Candidate struct {
	// ID is the chunk identifier, used to map results back.
	ID string

	// Content is the text scored against the query.
	Content string

	// Embedding is the candidate's stored vector, used by the similarity
	// fallback.
	Embedding []float32

	// Similarity is the first-stage retrieval score, kept for logging.
	Similarity float64
}

// RankedResult is a candidate with its final relevance score.
type RankedResult struct {
	Candidate

	// Relevance is the reranker's score in [0, 1], 1 = maximal relevance.
	Relevance float64

	// OriginalRank is the candidate's position in the input list.
	OriginalRank int
}

// Reranker scores candidates against a query and returns them in strictly
// descending relevance order, ties broken by input order, at most topN
// results. An empty candidate list returns an empty result without any
// provider call. A topN of zero or less means no limit.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topN int) ([]RankedResult, error)

	// Close releases any resources held by the reranker.
	Close() error
}
