package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/memoria/memory"
)

// RedisVectorStore implements memory.VectorStore on Redis. Rows are stored
// as JSON values keyed by id, with a set holding the collection's ids.
// Similarity ranking runs client-side, which keeps the store compatible
// with plain Redis deployments without the search module.
type RedisVectorStore struct {
	client *redis.Client
	prefix string
}

// RedisOptions configuration for the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Key prefix, default "memoria:"
}

// NewRedisVectorStore creates a new Redis-backed vector store.
func NewRedisVectorStore(opts RedisOptions) *RedisVectorStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "memoria:"
	}

	return &RedisVectorStore{client: client, prefix: prefix}
}

var _ memory.VectorStore = (*RedisVectorStore)(nil)

type storedRow struct {
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (s *RedisVectorStore) rowKey(id string) string {
	return fmt.Sprintf("%smemory:%s", s.prefix, id)
}

func (s *RedisVectorStore) indexKey() string {
	return fmt.Sprintf("%smemories", s.prefix)
}

// Insert stores vectors with their ids and payloads.
func (s *RedisVectorStore) Insert(ctx context.Context, vectors [][]float32, ids []string, payloads []map[string]any) error {
	if len(vectors) != len(ids) || len(ids) != len(payloads) {
		return fmt.Errorf("vectors, ids and payloads must have the same length")
	}

	pipe := s.client.TxPipeline()
	for i, id := range ids {
		data, err := json.Marshal(storedRow{Vector: vectors[i], Payload: payloads[i]})
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		pipe.Set(ctx, s.rowKey(id), data, 0)
		pipe.SAdd(ctx, s.indexKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert rows: %w", err)
	}
	return nil
}

// Search ranks all rows matching the filters by cosine similarity.
func (s *RedisVectorStore) Search(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]memory.SearchHit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	rows, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	hits := make([]memory.SearchHit, 0)
	for id, r := range rows {
		if !matchesFilters(r.Payload, filters) {
			continue
		}
		hits = append(hits, memory.SearchHit{
			Record: memory.Record{ID: id, Payload: r.Payload},
			Score:  cosineSimilarity(vector, r.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Get returns one row by id.
func (s *RedisVectorStore) Get(ctx context.Context, id string) (*memory.Record, error) {
	data, err := s.client.Get(ctx, s.rowKey(id)).Bytes()
	if err == redis.Nil {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load row: %w", err)
	}

	var r storedRow
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal row: %w", err)
	}
	return &memory.Record{ID: id, Payload: r.Payload}, nil
}

// List returns rows matching the filters. A limit <= 0 means no limit.
func (s *RedisVectorStore) List(ctx context.Context, filters map[string]any, limit int) ([]memory.Record, error) {
	rows, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]memory.Record, 0)
	for id, r := range rows {
		if !matchesFilters(r.Payload, filters) {
			continue
		}
		records = append(records, memory.Record{ID: id, Payload: r.Payload})
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}

// Update replaces a row's vector and/or payload in place.
func (s *RedisVectorStore) Update(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	data, err := s.client.Get(ctx, s.rowKey(id)).Bytes()
	if err == redis.Nil {
		return memory.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load row: %w", err)
	}

	var r storedRow
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("failed to unmarshal row: %w", err)
	}
	if vector != nil {
		r.Vector = vector
	}
	if payload != nil {
		r.Payload = payload
	}

	updated, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	if err := s.client.Set(ctx, s.rowKey(id), updated, 0).Err(); err != nil {
		return fmt.Errorf("failed to update row: %w", err)
	}
	return nil
}

// Delete removes one row by id.
func (s *RedisVectorStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, s.rowKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	if removed == 0 {
		return memory.ErrNotFound
	}
	if err := s.client.SRem(ctx, s.indexKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to unindex row: %w", err)
	}
	return nil
}

// Reset drops all rows of this collection.
func (s *RedisVectorStore) Reset(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list collection: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.rowKey(id))
	}
	pipe.Del(ctx, s.indexKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisVectorStore) Close() error {
	return s.client.Close()
}

func (s *RedisVectorStore) loadAll(ctx context.Context) (map[string]storedRow, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}

	rows := make(map[string]storedRow, len(ids))
	for _, id := range ids {
		data, err := s.client.Get(ctx, s.rowKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load row %s: %w", id, err)
		}
		var r storedRow
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row %s: %w", id, err)
		}
		rows[id] = r
	}
	return rows, nil
}

func matchesFilters(payload, filters map[string]any) bool {
	for key, want := range filters {
		got, ok := payload[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

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
