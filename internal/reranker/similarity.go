package reranker

import (
	"context"
	"fmt"
	"sort"

	"github.com/fyrsmithlabs/cvsearchd/internal/embeddings"
	"github.com/fyrsmithlabs/cvsearchd/internal/retriever"
)

// SimilarityReranker ranks candidates by cosine similarity between a freshly
// embedded query vector and each candidate's stored embedding.
//
// It is the always-available fallback: its only dependency is the embedding
// provider, so it keeps search answering whenever the cross-encoder is
// unreachable. Cosine values are mapped from [-1, 1] into [0, 1].
type SimilarityReranker struct {
	embedder embeddings.Provider
}

// NewSimilarityReranker creates a similarity-based reranker.
func NewSimilarityReranker(embedder embeddings.Provider) (*SimilarityReranker, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	return &SimilarityReranker{embedder: embedder}, nil
}

// Rerank embeds the query and scores candidates by normalized cosine
// similarity, descending, ties in input order.
func (r *SimilarityReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topN int) ([]RankedResult, error) {
	if len(candidates) == 0 {
		return []RankedResult{}, nil
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query for similarity rerank: %w", err)
	}

	results := make([]RankedResult, len(candidates))
	for i, c := range candidates {
		score := 0.0
		if len(c.Embedding) == len(queryVec) {
			// (cos+1)/2 maps [-1,1] into [0,1]
			score = (retriever.CosineSimilarity(queryVec, c.Embedding) + 1) / 2
		}
		results[i] = RankedResult{
			Candidate:    c,
			Relevance:    score,
			OriginalRank: i,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// Close closes the reranker. The embedding provider is owned by the caller.
func (r *SimilarityReranker) Close() error {
	return nil
}

// Ensure SimilarityReranker implements Reranker interface.
var _ Reranker = (*SimilarityReranker)(nil)
