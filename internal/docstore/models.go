package docstore

import "time"

// Chunk represents one retrievable slice of a source document.
//
// Chunks are immutable once inserted into a Store. The Embedding must be
// present at insertion time and its length must match the dimensionality of
// every other chunk in the same store.
type Chunk struct {
	// ID is the unique chunk identifier, assigned at creation.
	ID string

	// ParentID identifies the source document. All chunks of one document
	// share the same parent ID and are deleted together.
	ParentID string

	// Content is the chunk text. Never empty for a stored chunk.
	Content string

	// ChunkIndex is the zero-based position of this chunk within its
	// parent's chunk sequence, contiguous from 0.
	ChunkIndex int

	// SourceName is a human-readable origin label (e.g. filename), used
	// for citation in search results.
	SourceName string

	// CreatedAt is the chunk creation timestamp.
	CreatedAt time.Time

	// Embedding is the chunk's vector. Present for every stored chunk.
	Embedding []float32
}

// HasEmbedding reports whether the chunk carries an embedding vector.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
