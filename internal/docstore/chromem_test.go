package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChromemStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{
		Path:       t.TempDir(),
		Collection: "test_chunks",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestChromemStoreInsertAndGet(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	chunk := testChunk("c1", "doc1", 0, []float32{0.1, 0.2})
	require.NoError(t, store.Insert(ctx, chunk))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, chunk.Content, got.Content)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChromemStoreRejectsMissingEmbedding(t *testing.T) {
	store := newTestChromemStore(t)

	err := store.Insert(context.Background(), testChunk("c1", "doc1", 0, nil))
	assert.ErrorIs(t, err, ErrMissingEmbedding)
}

func TestChromemStoreDimensionEnforcement(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testChunk("c1", "doc1", 0, []float32{1, 2, 3})))

	err := store.Insert(ctx, testChunk("c2", "doc1", 1, []float32{1}))
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestChromemStoreDeleteByParent(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testChunk("a0", "docA", 0, []float32{1, 0})))
	require.NoError(t, store.Insert(ctx, testChunk("a1", "docA", 1, []float32{0, 1})))
	require.NoError(t, store.Insert(ctx, testChunk("b0", "docB", 0, []float32{1, 1})))

	deleted, err := store.DeleteByParent(ctx, "docA")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b0", all[0].ID)

	_, err = store.Get(ctx, "a0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChromemStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	open := func() *ChromemStore {
		store, err := NewChromemStore(ChromemConfig{
			Path:       dir,
			Collection: "test_chunks",
		}, nil)
		require.NoError(t, err)
		return store
	}

	store := open()
	require.NoError(t, store.Insert(ctx, testChunk("a0", "docA", 0, []float32{1, 0})))
	require.NoError(t, store.Insert(ctx, testChunk("a1", "docA", 1, []float32{0, 1})))
	require.NoError(t, store.Insert(ctx, testChunk("b0", "docB", 0, []float32{1, 0})))
	require.NoError(t, store.Close())

	reopened := open()
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	got, err := reopened.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "docA", got.ParentID)
	assert.Equal(t, "content of a1", got.Content)
	assert.Equal(t, 1, got.ChunkIndex)
	assert.Equal(t, "docA.txt", got.SourceName)
	assert.Equal(t, []float32{0, 1}, got.Embedding)

	// Rehydrated order is deterministic: parent, then chunk index
	all, err := reopened.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a0", all[0].ID)
	assert.Equal(t, "a1", all[1].ID)
	assert.Equal(t, "b0", all[2].ID)

	// The dimension is pinned again after reopening
	err = reopened.Insert(ctx, testChunk("c0", "docC", 0, []float32{1, 0, 0}))
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestChromemStoreReopenAfterEmptied(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	open := func() *ChromemStore {
		store, err := NewChromemStore(ChromemConfig{
			Path:       dir,
			Collection: "test_chunks",
		}, nil)
		require.NoError(t, err)
		return store
	}

	store := open()
	require.NoError(t, store.Insert(ctx, testChunk("a0", "docA", 0, []float32{1, 0})))
	deleted, err := store.DeleteByParent(ctx, "docA")
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	require.NoError(t, store.Close())

	reopened := open()
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// An emptied store accepts a new dimension
	require.NoError(t, reopened.Insert(ctx, testChunk("b0", "docB", 0, []float32{1, 0, 0})))
}

func TestChromemStoreGetAllOrder(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	ids := []string{"c2", "c0", "c1"}
	for i, id := range ids {
		require.NoError(t, store.Insert(ctx, testChunk(id, "doc", i, []float32{float32(i), 1})))
	}

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, id := range ids {
		assert.Equal(t, id, all[i].ID)
	}
}
