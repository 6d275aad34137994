// Package retriever scores stored chunks against a query vector and returns
// a bounded candidate list for reranking.
package retriever

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/fyrsmithlabs/cvsearchd/internal/docstore"
)

// DefaultTopK is the default candidate list size. The reranker recomputes
// the final ranking over these, so topK trades recall for rerank cost.
const DefaultTopK = 25

// ErrDimensionMismatch indicates a query vector whose length differs from a
// stored chunk embedding. This is a configuration-integrity problem: it
// cannot happen while all chunks were embedded under one provider
// configuration, but it is checked defensively.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Candidate is a chunk annotated with its similarity to the query vector.
// Candidates are transient: produced here, consumed by the reranker.
type Candidate struct {
	Chunk      docstore.Chunk
	Similarity float64
}

// CosineSimilarity returns the cosine of the angle between a and b,
// in [-1, 1]. If either vector has zero magnitude the similarity is 0 by
// definition, not an error.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Retrieve scores all chunks by cosine similarity against queryVec and
// returns at most topK candidates, most similar first. Equal similarities
// keep their input order. Chunks without an embedding are skipped; a
// document may be mid-ingestion. A topK of zero or less selects DefaultTopK.
func Retrieve(queryVec []float32, chunks []docstore.Chunk, topK int) ([]Candidate, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	candidates := make([]Candidate, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.HasEmbedding() {
			continue
		}
		if len(chunk.Embedding) != len(queryVec) {
			return nil, fmt.Errorf("%w: query vector has %d dimensions, chunk %s has %d",
				ErrDimensionMismatch, len(queryVec), chunk.ID, len(chunk.Embedding))
		}
		candidates = append(candidates, Candidate{
			Chunk:      chunk,
			Similarity: CosineSimilarity(queryVec, chunk.Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}
