package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/smallnest/memoria/memory"
)

// InMemoryVectorStore is a simple in-memory vector store with cosine
// similarity search and equality payload filters. Safe for concurrent use.
type InMemoryVectorStore struct {
	mu   sync.RWMutex
	rows map[string]*row
}

type row struct {
	vector  []float32
	payload map[string]any
}

// NewInMemoryVectorStore creates an empty in-memory vector store.
func NewInMemoryVectorStore() *InMemoryVectorStore {
	return &InMemoryVectorStore{rows: make(map[string]*row)}
}

var _ memory.VectorStore = (*InMemoryVectorStore)(nil)

// Insert stores vectors with their ids and payloads.
func (s *InMemoryVectorStore) Insert(ctx context.Context, vectors [][]float32, ids []string, payloads []map[string]any) error {
	if len(vectors) != len(ids) || len(ids) != len(payloads) {
		return fmt.Errorf("vectors, ids and payloads must have the same length")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		s.rows[id] = &row{vector: vectors[i], payload: clonePayload(payloads[i])}
	}
	return nil
}

// Search returns up to limit rows matching the filters, ranked by cosine
// similarity to the query vector.
func (s *InMemoryVectorStore) Search(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]memory.SearchHit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]memory.SearchHit, 0)
	for id, r := range s.rows {
		if !matchesFilters(r.payload, filters) {
			continue
		}
		hits = append(hits, memory.SearchHit{
			Record: memory.Record{ID: id, Payload: clonePayload(r.payload)},
			Score:  cosineSimilarity(vector, r.vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Get returns one row by id.
func (s *InMemoryVectorStore) Get(ctx context.Context, id string) (*memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return &memory.Record{ID: id, Payload: clonePayload(r.payload)}, nil
}

// List returns rows matching the filters. A limit <= 0 means no limit.
func (s *InMemoryVectorStore) List(ctx context.Context, filters map[string]any, limit int) ([]memory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]memory.Record, 0)
	for id, r := range s.rows {
		if !matchesFilters(r.payload, filters) {
			continue
		}
		records = append(records, memory.Record{ID: id, Payload: clonePayload(r.payload)})
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}

// Update replaces a row's vector and/or payload in place. Nil arguments
// leave the corresponding part unchanged.
func (s *InMemoryVectorStore) Update(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok {
		return memory.ErrNotFound
	}
	if vector != nil {
		r.vector = vector
	}
	if payload != nil {
		r.payload = clonePayload(payload)
	}
	return nil
}

// Delete removes one row by id.
func (s *InMemoryVectorStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return memory.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// Reset drops all rows.
func (s *InMemoryVectorStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]*row)
	return nil
}

func clonePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

// matchesFilters checks equality of every filter key against the payload.
func matchesFilters(payload, filters map[string]any) bool {
	for key, want := range filters {
		got, ok := payload[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
