package docstore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cvsearchd/internal/logging"
)

// MemoryStore is an in-process chunk store.
//
// All operations are safe for concurrent use. Reads hand out copies, so a
// snapshot taken with GetAll is never modified by later writes. Insertion
// order is preserved, which keeps downstream tie-breaking deterministic.
type MemoryStore struct {
	mu        sync.RWMutex
	chunks    map[string]Chunk
	order     []string // insertion order of chunk IDs
	dimension int      // embedding dimension, fixed by the first insert
	logger    *logging.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *logging.Logger) *MemoryStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MemoryStore{
		chunks: make(map[string]Chunk),
		logger: logger,
	}
}

// Insert adds a chunk, overwriting any existing chunk with the same ID.
// The first inserted chunk fixes the store's embedding dimension; later
// inserts with a different dimension are rejected.
func (s *MemoryStore) Insert(ctx context.Context, chunk Chunk) error {
	if err := validateInsert(chunk); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		s.dimension = len(chunk.Embedding)
	} else if len(chunk.Embedding) != s.dimension {
		return fmt.Errorf("%w: embedding dimension %d does not match store dimension %d",
			ErrInvalidChunk, len(chunk.Embedding), s.dimension)
	}

	if _, exists := s.chunks[chunk.ID]; !exists {
		s.order = append(s.order, chunk.ID)
	}
	s.chunks[chunk.ID] = chunk

	return nil
}

// Get returns the chunk with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[id]
	if !ok {
		return Chunk{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return chunk, nil
}

// GetAll returns a snapshot of all chunks in insertion order.
func (s *MemoryStore) GetAll(ctx context.Context) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Chunk, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.chunks[id])
	}
	return out, nil
}

// DeleteByParent removes all chunks for the given parent document.
// The delete is atomic: concurrent readers see either all chunks or none.
func (s *MemoryStore) DeleteByParent(ctx context.Context, parentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	remaining := s.order[:0]
	for _, id := range s.order {
		if s.chunks[id].ParentID == parentID {
			delete(s.chunks, id)
			deleted++
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining

	if deleted > 0 {
		s.logger.Debug(ctx, "deleted chunks by parent",
			zap.String("parent_id", parentID),
			zap.Int("deleted", deleted),
		)
	}
	if len(s.chunks) == 0 {
		s.dimension = 0
	}

	return deleted, nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Dimension returns the store's embedding dimension, or 0 if empty.
func (s *MemoryStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Close releases nothing for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store interface.
var _ Store = (*MemoryStore)(nil)
