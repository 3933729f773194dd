package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/memoria/memory"
)

// DBPool defines the interface for the database connection pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresVectorStore implements memory.VectorStore on PostgreSQL with the
// pgvector extension. Payload filters use JSONB containment; similarity
// search orders by cosine distance (the <=> operator).
type PostgresVectorStore struct {
	pool      DBPool
	tableName string
	dims      int
}

// PostgresOptions configuration for the Postgres connection.
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "memories"
	// Dims is the embedding dimension, fixed at collection creation.
	Dims int
}

// NewPostgresVectorStore creates a new Postgres-backed vector store.
func NewPostgresVectorStore(ctx context.Context, opts PostgresOptions) (*PostgresVectorStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "memories"
	}

	return &PostgresVectorStore{pool: pool, tableName: tableName, dims: opts.Dims}, nil
}

// NewPostgresVectorStoreWithPool creates a store with an existing pool.
// Useful for testing with mocks.
func NewPostgresVectorStoreWithPool(pool DBPool, tableName string, dims int) *PostgresVectorStore {
	if tableName == "" {
		tableName = "memories"
	}
	return &PostgresVectorStore{pool: pool, tableName: tableName, dims: dims}
}

var _ memory.VectorStore = (*PostgresVectorStore)(nil)

// InitSchema creates the extension and table if they don't exist.
func (s *PostgresVectorStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_payload ON %s USING GIN (payload);
	`, s.tableName, s.dims, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresVectorStore) Close() {
	s.pool.Close()
}

// Insert stores vectors with their ids and payloads.
func (s *PostgresVectorStore) Insert(ctx context.Context, vectors [][]float32, ids []string, payloads []map[string]any) error {
	if len(vectors) != len(ids) || len(ids) != len(payloads) {
		return fmt.Errorf("vectors, ids and payloads must have the same length")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT(id) DO UPDATE SET
			embedding = excluded.embedding,
			payload = excluded.payload
	`, s.tableName)

	for i, id := range ids {
		payloadJSON, err := json.Marshal(payloads[i])
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		if _, err := s.pool.Exec(ctx, query, id, encodeVector(vectors[i]), payloadJSON); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}
	return nil
}

// Search returns up to limit rows matching the filters, ranked by cosine
// similarity.
func (s *PostgresVectorStore) Search(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]memory.SearchHit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	filterJSON, err := filtersJSON(filters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, payload, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE payload @> $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, encodeVector(vector), filterJSON, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	var hits []memory.SearchHit
	for rows.Next() {
		var (
			id          string
			payloadJSON []byte
			score       float64
		)
		if err := rows.Scan(&id, &payloadJSON, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		payload, err := decodePayload(payloadJSON)
		if err != nil {
			return nil, err
		}
		hits = append(hits, memory.SearchHit{
			Record: memory.Record{ID: id, Payload: payload},
			Score:  score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search rows: %w", err)
	}
	return hits, nil
}

// Get returns one row by id.
func (s *PostgresVectorStore) Get(ctx context.Context, id string) (*memory.Record, error) {
	query := fmt.Sprintf("SELECT payload FROM %s WHERE id = $1", s.tableName)

	var payloadJSON []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&payloadJSON)
	if err == pgx.ErrNoRows {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load row: %w", err)
	}

	payload, err := decodePayload(payloadJSON)
	if err != nil {
		return nil, err
	}
	return &memory.Record{ID: id, Payload: payload}, nil
}

// List returns rows matching the filters. A limit <= 0 means no limit.
func (s *PostgresVectorStore) List(ctx context.Context, filters map[string]any, limit int) ([]memory.Record, error) {
	filterJSON, err := filtersJSON(filters)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT id, payload FROM %s WHERE payload @> $1", s.tableName)
	args := []any{filterJSON}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}
	defer rows.Close()

	var records []memory.Record
	for rows.Next() {
		var (
			id          string
			payloadJSON []byte
		)
		if err := rows.Scan(&id, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		payload, err := decodePayload(payloadJSON)
		if err != nil {
			return nil, err
		}
		records = append(records, memory.Record{ID: id, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// Update replaces a row's vector and/or payload in place.
func (s *PostgresVectorStore) Update(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	if vector == nil && payload == nil {
		return nil
	}

	sets := make([]string, 0, 2)
	args := []any{id}
	if vector != nil {
		args = append(args, encodeVector(vector))
		sets = append(sets, fmt.Sprintf("embedding = $%d", len(args)))
	}
	if payload != nil {
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		args = append(args, payloadJSON)
		sets = append(sets, fmt.Sprintf("payload = $%d", len(args)))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", s.tableName, strings.Join(sets, ", "))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// Delete removes one row by id.
func (s *PostgresVectorStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// Reset truncates the collection.
func (s *PostgresVectorStore) Reset(ctx context.Context) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s", s.tableName)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	return nil
}

// encodeVector renders a vector in pgvector's text format, e.g. [1,2,3].
func encodeVector(vector []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

func filtersJSON(filters map[string]any) ([]byte, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	data, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filters: %w", err)
	}
	return data, nil
}

func decodePayload(data []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
