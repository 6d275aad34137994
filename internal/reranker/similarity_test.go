package reranker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns canned vectors keyed by input text.
type fakeEmbedder struct {
	vectors   map[string][]float32
	dimension int
	err       error
	calls     int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return make([]float32, f.dimension), nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dimension }
func (f *fakeEmbedder) Close() error   { return nil }

func TestSimilarityRerankerRanking(t *testing.T) {
	embedder := &fakeEmbedder{
		dimension: 3,
		vectors: map[string][]float32{
			"mobile developers": {1, 1, 0.1},
		},
	}
	r, err := NewSimilarityReranker(embedder)
	require.NoError(t, err)
	defer r.Close()

	candidates := []Candidate{
		{ID: "ios", Content: "iOS Engineer, Swift, UIKit", Embedding: []float32{1, 1, 0}},
		{ID: "backend", Content: "Backend Developer, PostgreSQL", Embedding: []float32{0, 0, 1}},
		{ID: "android", Content: "Android Engineer, Kotlin", Embedding: []float32{1, 0.8, 0}},
	}

	results, err := r.Rerank(context.Background(), "mobile developers", candidates, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Both mobile chunks outrank the backend chunk
	assert.Equal(t, "backend", results[2].ID)
	assert.Contains(t, []string{"ios", "android"}, results[0].ID)
	assert.Contains(t, []string{"ios", "android"}, results[1].ID)

	// Scores are normalized into [0,1] and strictly descending
	for i, res := range results {
		assert.GreaterOrEqual(t, res.Relevance, 0.0)
		assert.LessOrEqual(t, res.Relevance, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Relevance, res.Relevance)
		}
	}
}

func TestSimilarityRerankerTopN(t *testing.T) {
	embedder := &fakeEmbedder{dimension: 2, vectors: map[string][]float32{"q": {1, 0}}}
	r, err := NewSimilarityReranker(embedder)
	require.NoError(t, err)

	candidates := []Candidate{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{0, 1}},
		{ID: "c", Embedding: []float32{1, 1}},
	}

	results, err := r.Rerank(context.Background(), "q", candidates, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
}

func TestSimilarityRerankerEmptyCandidates(t *testing.T) {
	embedder := &fakeEmbedder{dimension: 2}
	r, err := NewSimilarityReranker(embedder)
	require.NoError(t, err)

	results, err := r.Rerank(context.Background(), "anything", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, embedder.calls, "empty candidate list must not trigger an embed call")
}

func TestSimilarityRerankerEmbedderError(t *testing.T) {
	embedder := &fakeEmbedder{dimension: 2, err: errors.New("connection refused")}
	r, err := NewSimilarityReranker(embedder)
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "q", []Candidate{{ID: "a", Embedding: []float32{1, 0}}}, 5)
	assert.Error(t, err)
}

func TestSimilarityRerankerMismatchedEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{dimension: 2, vectors: map[string][]float32{"q": {1, 0}}}
	r, err := NewSimilarityReranker(embedder)
	require.NoError(t, err)

	// A candidate with a wrong-length embedding scores 0 and sinks to the bottom.
	candidates := []Candidate{
		{ID: "bad", Embedding: []float32{1, 0, 0}},
		{ID: "good", Embedding: []float32{1, 0}},
	}

	results, err := r.Rerank(context.Background(), "q", candidates, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "good", results[0].ID)
	assert.Zero(t, results[1].Relevance)
}

func TestNewSimilarityRerankerNilEmbedder(t *testing.T) {
	_, err := NewSimilarityReranker(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
