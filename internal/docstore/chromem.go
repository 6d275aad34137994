package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cvsearchd/internal/logging"
)

// ChromemConfig holds configuration for the chromem-go backed store.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/cvsearchd/docstore"
	Path string `koanf:"path"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`

	// Collection is the chromem collection name.
	// Default: "cvsearchd_chunks"
	Collection string `koanf:"collection"`
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/cvsearchd/docstore"
	}
	if c.Collection == "" {
		c.Collection = "cvsearchd_chunks"
	}
}

// ChromemStore implements Store backed by chromem-go.
//
// chromem-go is an embeddable vector database with zero third-party
// dependencies and automatic persistence to gob files. The store keeps an
// in-memory chunk index for snapshot reads and mirrors every chunk into the
// chromem collection, which owns on-disk persistence. On startup the index
// is rebuilt from the reloaded collection, so chunks survive a restart.
// chromem normalizes embeddings on write; rehydrated chunks carry the
// normalized vectors, which leaves cosine scoring unchanged.
//
// chromem collections are not transactional: a mirror write can fail after
// the index write succeeded. Deletions follow the documented partial-failure
// policy, where the index delete always completes and a failed mirror delete
// is logged as a warning.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     ChromemConfig
	logger     *logging.Logger

	mu        sync.RWMutex
	chunks    map[string]Chunk
	order     []string
	dimension int
}

// NewChromemStore creates a ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, logger *logging.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	config.ApplyDefaults()

	expandedPath, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: expanding path: %v", ErrInvalidConfig, err)
	}

	if err := os.MkdirAll(expandedPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating directory %s: %v", ErrStore, expandedPath, err)
	}

	db, err := chromem.NewPersistentDB(expandedPath, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("%w: creating chromem DB: %v", ErrStore, err)
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, rejectEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection %s: %v", ErrStore, config.Collection, err)
	}

	store := &ChromemStore{
		db:         db,
		collection: collection,
		config:     config,
		logger:     logger,
		chunks:     make(map[string]Chunk),
	}

	if err := store.rehydrate(context.Background()); err != nil {
		return nil, err
	}

	logger.Info(context.Background(), "chromem store initialized",
		zap.String("path", expandedPath),
		zap.Bool("compress", config.Compress),
		zap.String("collection", config.Collection),
		zap.Int("chunks", len(store.order)),
	)

	return store, nil
}

// metaDocID is the reserved collection document that records the store's
// embedding dimension. chromem has no list operation, so rehydration reads
// this document first and then queries the collection exhaustively with a
// probe vector of the recorded dimension.
const metaDocID = "cvsearchd.index.meta"

// rehydrate rebuilds the in-memory index from the persisted collection.
func (s *ChromemStore) rehydrate(ctx context.Context) error {
	count := s.collection.Count()
	if count == 0 {
		return nil
	}

	meta, err := s.collection.GetByID(ctx, metaDocID)
	if err != nil {
		return fmt.Errorf("%w: reading index metadata: %v", ErrStore, err)
	}
	if count == 1 {
		// Only the metadata document survived; the store was emptied.
		return nil
	}

	probe := make([]float32, len(meta.Embedding))
	probe[0] = 1
	results, err := s.collection.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: loading persisted chunks: %v", ErrStore, err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, res := range results {
		if res.ID == metaDocID {
			continue
		}
		index, err := strconv.Atoi(res.Metadata["chunk_index"])
		if err != nil {
			s.logger.Warn(ctx, "skipping persisted chunk with malformed metadata",
				zap.String("id", res.ID),
				zap.Error(err),
			)
			continue
		}
		createdAt, _ := time.Parse(time.RFC3339, res.Metadata["created_at"])
		chunks = append(chunks, Chunk{
			ID:         res.ID,
			ParentID:   res.Metadata["parent_id"],
			Content:    res.Content,
			ChunkIndex: index,
			SourceName: res.Metadata["source_name"],
			CreatedAt:  createdAt,
			Embedding:  res.Embedding,
		})
	}
	if len(chunks) == 0 {
		return nil
	}

	// Insertion order is not persisted; restore a deterministic one.
	sort.Slice(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.ParentID != b.ParentID {
			return a.ParentID < b.ParentID
		}
		if a.ChunkIndex != b.ChunkIndex {
			return a.ChunkIndex < b.ChunkIndex
		}
		return a.ID < b.ID
	})

	for _, chunk := range chunks {
		s.order = append(s.order, chunk.ID)
		s.chunks[chunk.ID] = chunk
	}
	s.dimension = len(meta.Embedding)
	return nil
}

// writeMeta upserts the metadata document recording the embedding dimension.
// Called with the write lock held, before the dimension is pinned.
func (s *ChromemStore) writeMeta(ctx context.Context, dimension int) error {
	embedding := make([]float32, dimension)
	embedding[0] = 1

	meta := chromem.Document{
		ID:        metaDocID,
		Content:   "index metadata",
		Metadata:  map[string]string{"kind": "meta"},
		Embedding: embedding,
	}
	if err := s.collection.AddDocuments(ctx, []chromem.Document{meta}, 1); err != nil {
		return fmt.Errorf("%w: writing index metadata: %v", ErrStore, err)
	}
	return nil
}

// rejectEmbeddingFunc is passed to chromem so it never embeds on its own.
// Every chunk arrives with a precomputed embedding; a nil func would make
// chromem fall back to its OpenAI default.
func rejectEmbeddingFunc(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("embeddings must be precomputed before insertion")
}

// expandPath expands ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Insert adds a chunk to the index and mirrors it into chromem.
func (s *ChromemStore) Insert(ctx context.Context, chunk Chunk) error {
	if err := validateInsert(chunk); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		if err := s.writeMeta(ctx, len(chunk.Embedding)); err != nil {
			return err
		}
		s.dimension = len(chunk.Embedding)
	} else if len(chunk.Embedding) != s.dimension {
		return fmt.Errorf("%w: embedding dimension %d does not match store dimension %d",
			ErrInvalidChunk, len(chunk.Embedding), s.dimension)
	}

	doc := chromem.Document{
		ID:      chunk.ID,
		Content: chunk.Content,
		Metadata: map[string]string{
			"parent_id":   chunk.ParentID,
			"chunk_index": strconv.Itoa(chunk.ChunkIndex),
			"source_name": chunk.SourceName,
			"created_at":  chunk.CreatedAt.Format(time.RFC3339),
		},
		Embedding: chunk.Embedding,
	}
	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("%w: adding document %s: %v", ErrStore, chunk.ID, err)
	}

	// Index write happens after the mirror write so a failed mirror never
	// leaves a chunk visible to readers.
	if _, exists := s.chunks[chunk.ID]; !exists {
		s.order = append(s.order, chunk.ID)
	}
	s.chunks[chunk.ID] = chunk

	return nil
}

// Get returns the chunk with the given ID.
func (s *ChromemStore) Get(ctx context.Context, id string) (Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[id]
	if !ok {
		return Chunk{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return chunk, nil
}

// GetAll returns a snapshot of all chunks in insertion order.
func (s *ChromemStore) GetAll(ctx context.Context) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Chunk, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.chunks[id])
	}
	return out, nil
}

// DeleteByParent removes all chunks for the given parent document from the
// index, then from the chromem mirror. A failed mirror delete leaves the
// caller's view consistent and is logged as a warning.
func (s *ChromemStore) DeleteByParent(ctx context.Context, parentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	remaining := s.order[:0]
	for _, id := range s.order {
		if s.chunks[id].ParentID == parentID {
			delete(s.chunks, id)
			ids = append(ids, id)
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining
	if len(s.chunks) == 0 {
		s.dimension = 0
	}

	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		s.logger.Warn(ctx, "partial delete: chunks removed from index but not from chromem mirror",
			zap.String("parent_id", parentID),
			zap.Int("chunks", len(ids)),
			zap.Error(err),
		)
	}

	return len(ids), nil
}

// Count returns the number of stored chunks.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Close closes the store.
// chromem-go handles persistence automatically, no explicit close needed.
func (s *ChromemStore) Close() error {
	s.logger.Info(context.Background(), "chromem store closed")
	return nil
}

// Ensure ChromemStore implements Store interface.
var _ Store = (*ChromemStore)(nil)
