package docstore

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for document store operations.
var (
	// ErrMissingEmbedding is returned when inserting a chunk without an embedding.
	ErrMissingEmbedding = errors.New("chunk has no embedding")

	// ErrInvalidChunk indicates a chunk that violates store invariants
	// (empty ID, empty content, or mismatched embedding dimension).
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrNotFound is returned when a chunk ID does not exist.
	ErrNotFound = errors.New("chunk not found")

	// ErrStore indicates a persistence-layer failure.
	ErrStore = errors.New("store operation failed")

	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Store is the interface for chunk storage.
//
// Implementations must keep concurrent readers safe from writers: a reader
// never observes a partially written chunk, and GetAll returns a snapshot
// that later mutations do not modify.
type Store interface {
	// Insert adds a chunk. The chunk must carry an embedding; inserting a
	// chunk without one fails with ErrMissingEmbedding. Inserting an ID
	// that already exists overwrites it (last-write-wins).
	Insert(ctx context.Context, chunk Chunk) error

	// Get returns the chunk with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Chunk, error)

	// GetAll returns a snapshot of all stored chunks in insertion order.
	GetAll(ctx context.Context) ([]Chunk, error)

	// DeleteByParent removes all chunks belonging to the given parent
	// document and returns the number removed. Removing zero chunks is
	// not an error.
	DeleteByParent(ctx context.Context, parentID string) (int, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// validateInsert checks store-independent chunk invariants.
func validateInsert(chunk Chunk) error {
	if chunk.ID == "" {
		return fmt.Errorf("%w: empty chunk ID", ErrInvalidChunk)
	}
	if chunk.Content == "" {
		return fmt.Errorf("%w: empty chunk content", ErrInvalidChunk)
	}
	if !chunk.HasEmbedding() {
		return ErrMissingEmbedding
	}
	if chunk.ChunkIndex < 0 {
		return fmt.Errorf("%w: negative chunk index", ErrInvalidChunk)
	}
	return nil
}
