package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smallnest/memoria/memory"
)

func TestInMemoryVectorStore(t *testing.T) {
	s := NewInMemoryVectorStore()
	ctx := context.Background()

	err := s.Insert(ctx,
		[][]float32{{1, 0}, {0, 1}, {0.9, 0.1}},
		[]string{"m1", "m2", "m3"},
		[]map[string]any{
			{"data": "Lives in Paris", "user_id": "alice"},
			{"data": "Likes tea", "user_id": "bob"},
			{"data": "Works remotely", "user_id": "alice"},
		},
	)
	assert.NoError(t, err)

	// Search ranks by cosine similarity and honors filters.
	hits, err := s.Search(ctx, []float32{1, 0}, 10, map[string]any{"user_id": "alice"})
	assert.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "m1", hits[0].ID)
	assert.Equal(t, "m3", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	// Limit caps the result set.
	hits, err = s.Search(ctx, []float32{1, 0}, 1, nil)
	assert.NoError(t, err)
	assert.Len(t, hits, 1)

	// Get
	rec, err := s.Get(ctx, "m2")
	assert.NoError(t, err)
	assert.Equal(t, "Likes tea", rec.Payload["data"])

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, memory.ErrNotFound)

	// List with filters
	records, err := s.List(ctx, map[string]any{"user_id": "alice"}, 0)
	assert.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.List(ctx, map[string]any{"user_id": "alice"}, 1)
	assert.NoError(t, err)
	assert.Len(t, records, 1)

	// Update payload only
	err = s.Update(ctx, "m1", nil, map[string]any{"data": "Lives in Berlin", "user_id": "alice"})
	assert.NoError(t, err)
	rec, _ = s.Get(ctx, "m1")
	assert.Equal(t, "Lives in Berlin", rec.Payload["data"])

	err = s.Update(ctx, "missing", nil, map[string]any{})
	assert.ErrorIs(t, err, memory.ErrNotFound)

	// Delete
	err = s.Delete(ctx, "m2")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "m2")
	assert.ErrorIs(t, err, memory.ErrNotFound)

	err = s.Delete(ctx, "m2")
	assert.ErrorIs(t, err, memory.ErrNotFound)

	// Reset
	err = s.Reset(ctx)
	assert.NoError(t, err)
	records, err = s.List(ctx, nil, 0)
	assert.NoError(t, err)
	assert.Len(t, records, 0)
}

func TestInMemoryVectorStore_InsertLengthMismatch(t *testing.T) {
	s := NewInMemoryVectorStore()
	err := s.Insert(context.Background(), [][]float32{{1}}, []string{"a", "b"}, []map[string]any{{}})
	assert.Error(t, err)
}

func TestInMemoryVectorStore_SearchRequiresPositiveLimit(t *testing.T) {
	s := NewInMemoryVectorStore()
	_, err := s.Search(context.Background(), []float32{1}, 0, nil)
	assert.Error(t, err)
}

func TestInMemoryVectorStore_PayloadIsolation(t *testing.T) {
	s := NewInMemoryVectorStore()
	ctx := context.Background()

	payload := map[string]any{"data": "original"}
	err := s.Insert(ctx, [][]float32{{1}}, []string{"m1"}, []map[string]any{payload})
	assert.NoError(t, err)

	// Mutating the caller's map after insert must not affect the store.
	payload["data"] = "mutated"
	rec, err := s.Get(ctx, "m1")
	assert.NoError(t, err)
	assert.Equal(t, "original", rec.Payload["data"])

	// Mutating a returned payload must not affect the store either.
	rec.Payload["data"] = "mutated again"
	rec2, _ := s.Get(ctx, "m1")
	assert.Equal(t, "original", rec2.Payload["data"])
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	// Mismatched lengths and zero vectors degrade to zero.
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
