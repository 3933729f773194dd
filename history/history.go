package history

import (
	"context"
	"sync"

	"github.com/smallnest/memoria/memory"
)

// InMemoryHistoryStore keeps history entries in process memory, ordered by
// insertion. Safe for concurrent use.
type InMemoryHistoryStore struct {
	mu      sync.RWMutex
	entries map[string][]memory.HistoryEntry
}

// NewInMemoryHistoryStore creates an empty in-memory history store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{entries: make(map[string][]memory.HistoryEntry)}
}

var _ memory.HistoryStore = (*InMemoryHistoryStore)(nil)

// AddEntry appends one lifecycle event.
func (s *InMemoryHistoryStore) AddEntry(ctx context.Context, entry *memory.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.MemoryID] = append(s.entries[entry.MemoryID], *entry)
	return nil
}

// GetHistory returns the entries for one memory id, oldest first.
func (s *InMemoryHistoryStore) GetHistory(ctx context.Context, memoryID string) ([]memory.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.entries[memoryID]
	out := make([]memory.HistoryEntry, len(stored))
	copy(out, stored)
	return out, nil
}

// Reset drops all entries.
func (s *InMemoryHistoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]memory.HistoryEntry)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryHistoryStore) Close() error {
	return nil
}
