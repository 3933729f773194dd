package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/memoria/memory"
)

// SqliteHistoryStore implements memory.HistoryStore using SQLite.
type SqliteHistoryStore struct {
	db        *sql.DB
	tableName string
}

// SqliteOptions configuration for the SQLite connection.
type SqliteOptions struct {
	Path      string
	TableName string // Default "history"
}

// NewSqliteHistoryStore creates a new SQLite history store.
func NewSqliteHistoryStore(opts SqliteOptions) (*SqliteHistoryStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "history"
	}

	store := &SqliteHistoryStore{db: db, tableName: tableName}
	if err := store.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

var _ memory.HistoryStore = (*SqliteHistoryStore)(nil)

// InitSchema creates the necessary table if it doesn't exist.
func (s *SqliteHistoryStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			memory_id TEXT NOT NULL,
			previous_memory TEXT,
			new_memory TEXT,
			event TEXT NOT NULL,
			actor_id TEXT,
			role TEXT,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_memory_id ON %s (memory_id);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// AddEntry appends one lifecycle event.
func (s *SqliteHistoryStore) AddEntry(ctx context.Context, entry *memory.HistoryEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, memory_id, previous_memory, new_memory, event, actor_id, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.tableName)

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.MemoryID,
		entry.PreviousMemory,
		entry.NewMemory,
		string(entry.Event),
		entry.ActorID,
		entry.Role,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// GetHistory returns the entries for one memory id, oldest first. Ordering
// follows insertion (rowid), not the created_at column, so entries written
// within the same instant replay deterministically.
func (s *SqliteHistoryStore) GetHistory(ctx context.Context, memoryID string) ([]memory.HistoryEntry, error) {
	query := fmt.Sprintf(`
		SELECT id, memory_id, previous_memory, new_memory, event, actor_id, role, created_at
		FROM %s
		WHERE memory_id = ?
		ORDER BY rowid ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, memoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []memory.HistoryEntry
	for rows.Next() {
		var (
			e     memory.HistoryEntry
			event string
		)
		if err := rows.Scan(
			&e.ID,
			&e.MemoryID,
			&e.PreviousMemory,
			&e.NewMemory,
			&event,
			&e.ActorID,
			&e.Role,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Event = memory.Event(event)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	return entries, nil
}

// Reset removes all history entries.
func (s *SqliteHistoryStore) Reset(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s", s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to reset history: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqliteHistoryStore) Close() error {
	return s.db.Close()
}
