package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/smallnest/memoria/memory"
)

func newTestStore(t *testing.T) *RedisVectorStore {
	t.Helper()
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(mr.Close)

	store := NewRedisVectorStore(RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisVectorStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Insert(ctx,
		[][]float32{{1, 0}, {0, 1}},
		[]string{"m1", "m2"},
		[]map[string]any{
			{"data": "Lives in Paris", "user_id": "alice"},
			{"data": "Likes tea", "user_id": "bob"},
		},
	)
	assert.NoError(t, err)

	// Get
	rec, err := store.Get(ctx, "m1")
	assert.NoError(t, err)
	assert.Equal(t, "Lives in Paris", rec.Payload["data"])

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, memory.ErrNotFound)

	// Search with identity filter
	hits, err := store.Search(ctx, []float32{1, 0}, 10, map[string]any{"user_id": "alice"})
	assert.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, "m1", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)

	// Unfiltered search ranks all rows
	hits, err = store.Search(ctx, []float32{1, 0}, 10, nil)
	assert.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "m1", hits[0].ID)

	// List
	records, err := store.List(ctx, map[string]any{"user_id": "bob"}, 0)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "m2", records[0].ID)

	// Update
	err = store.Update(ctx, "m1", []float32{0, 1}, map[string]any{"data": "Lives in Berlin", "user_id": "alice"})
	assert.NoError(t, err)
	rec, _ = store.Get(ctx, "m1")
	assert.Equal(t, "Lives in Berlin", rec.Payload["data"])

	err = store.Update(ctx, "missing", nil, map[string]any{})
	assert.ErrorIs(t, err, memory.ErrNotFound)

	// Delete
	err = store.Delete(ctx, "m2")
	assert.NoError(t, err)
	_, err = store.Get(ctx, "m2")
	assert.ErrorIs(t, err, memory.ErrNotFound)

	err = store.Delete(ctx, "m2")
	assert.ErrorIs(t, err, memory.ErrNotFound)

	// Reset
	err = store.Reset(ctx)
	assert.NoError(t, err)
	records, err = store.List(ctx, nil, 0)
	assert.NoError(t, err)
	assert.Len(t, records, 0)
}

func TestRedisVectorStore_UpdatePayloadOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Insert(ctx, [][]float32{{1, 0}}, []string{"m1"}, []map[string]any{{"data": "before"}})
	assert.NoError(t, err)

	// Nil vector leaves the stored vector untouched.
	err = store.Update(ctx, "m1", nil, map[string]any{"data": "after"})
	assert.NoError(t, err)

	hits, err := store.Search(ctx, []float32{1, 0}, 1, nil)
	assert.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "after", hits[0].Payload["data"])
}

func TestRedisVectorStore_KeyPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	store := NewRedisVectorStore(RedisOptions{Addr: mr.Addr(), Prefix: "custom:"})
	defer store.Close()

	ctx := context.Background()
	err = store.Insert(ctx, [][]float32{{1}}, []string{"m1"}, []map[string]any{{"data": "x"}})
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:memory:m1"))
	assert.True(t, mr.Exists("custom:memories"))
}

func TestRedisVectorStore_InsertLengthMismatch(t *testing.T) {
	store := newTestStore(t)
	err := store.Insert(context.Background(), [][]float32{{1}}, []string{"a", "b"}, []map[string]any{{}})
	assert.Error(t, err)
}
