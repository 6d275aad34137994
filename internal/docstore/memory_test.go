package docstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunk(id, parentID string, index int, embedding []float32) Chunk {
	return Chunk{
		ID:         id,
		ParentID:   parentID,
		Content:    "content of " + id,
		ChunkIndex: index,
		SourceName: parentID + ".txt",
		CreatedAt:  time.Now(),
		Embedding:  embedding,
	}
}

func TestMemoryStoreInsertAndGet(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	chunk := testChunk("c1", "doc1", 0, []float32{0.1, 0.2, 0.3})
	require.NoError(t, store.Insert(ctx, chunk))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, chunk.Content, got.Content)
	assert.Equal(t, chunk.Embedding, got.Embedding)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreInsertValidation(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		chunk   Chunk
		wantErr error
	}{
		{
			name:    "missing embedding",
			chunk:   testChunk("c1", "doc1", 0, nil),
			wantErr: ErrMissingEmbedding,
		},
		{
			name: "empty content",
			chunk: Chunk{
				ID:        "c2",
				ParentID:  "doc1",
				Embedding: []float32{0.1},
			},
			wantErr: ErrInvalidChunk,
		},
		{
			name: "empty id",
			chunk: Chunk{
				ParentID:  "doc1",
				Content:   "text",
				Embedding: []float32{0.1},
			},
			wantErr: ErrInvalidChunk,
		},
		{
			name: "negative index",
			chunk: Chunk{
				ID:         "c3",
				ParentID:   "doc1",
				Content:    "text",
				ChunkIndex: -1,
				Embedding:  []float32{0.1},
			},
			wantErr: ErrInvalidChunk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Insert(ctx, tt.chunk)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMemoryStoreDimensionEnforcement(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testChunk("c1", "doc1", 0, []float32{1, 2, 3})))

	err := store.Insert(ctx, testChunk("c2", "doc1", 1, []float32{1, 2}))
	assert.ErrorIs(t, err, ErrInvalidChunk)

	// Dimension resets once the store is emptied
	_, err = store.DeleteByParent(ctx, "doc1")
	require.NoError(t, err)
	assert.NoError(t, store.Insert(ctx, testChunk("c3", "doc2", 0, []float32{1, 2})))
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testChunk("c1", "doc1", 0, []float32{1, 0})))
	require.NoError(t, store.Insert(ctx, testChunk("c2", "doc1", 1, []float32{0, 1})))

	replacement := testChunk("c1", "doc1", 0, []float32{0.5, 0.5})
	replacement.Content = "replaced"
	require.NoError(t, store.Insert(ctx, replacement))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "replaced", got.Content)

	// Overwrite keeps the original insertion position
	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c1", all[0].ID)
	assert.Equal(t, "c2", all[1].ID)
}

func TestMemoryStoreGetAllSnapshot(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testChunk("c1", "doc1", 0, []float32{1})))

	snapshot, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	// Mutations after the snapshot do not change it
	require.NoError(t, store.Insert(ctx, testChunk("c2", "doc1", 1, []float32{2})))
	_, err = store.DeleteByParent(ctx, "doc1")
	require.NoError(t, err)

	assert.Len(t, snapshot, 1)
	assert.Equal(t, "c1", snapshot[0].ID)
}

func TestMemoryStoreDeleteByParent(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testChunk("a0", "docA", 0, []float32{1})))
	require.NoError(t, store.Insert(ctx, testChunk("b0", "docB", 0, []float32{2})))
	require.NoError(t, store.Insert(ctx, testChunk("a1", "docA", 1, []float32{3})))

	deleted, err := store.DeleteByParent(ctx, "docA")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b0", all[0].ID)

	// Deleting an unknown parent removes nothing and is not an error
	deleted, err = store.DeleteByParent(ctx, "docA")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("w%d-%d", n, j)
				_ = store.Insert(ctx, testChunk(id, fmt.Sprintf("doc%d", n), j, []float32{1, 2}))
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				chunks, err := store.GetAll(ctx)
				if err != nil {
					t.Error(err)
					return
				}
				for _, c := range chunks {
					// Readers must never observe a partially written chunk
					if c.Content == "" || !c.HasEmbedding() {
						t.Errorf("observed partial chunk %q", c.ID)
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()
}
