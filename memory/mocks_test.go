package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// fakeLLM replays scripted responses in order and records every call.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	calls     [][]Message
	formats   []ResponseFormat
	err       error
}

func (f *fakeLLM) Generate(ctx context.Context, messages []Message, format ResponseFormat) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, messages)
	f.formats = append(f.formats, format)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeEmbedder returns a deterministic vector per text.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v := make([]float32, 4)
	for i, r := range text {
		v[i%4] += float32(r % 13)
	}
	return v, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeVectorStore is a map-backed VectorStore with error injection. Safe
// for concurrent use so the parallel apply path can exercise it.
type fakeVectorStore struct {
	mu   sync.RWMutex
	rows map[string]fakeRow

	insertErr error
	searchErr error
	updateErr error
	deleteErr error
}

type fakeRow struct {
	vector  []float32
	payload map[string]any
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{rows: make(map[string]fakeRow)}
}

func (s *fakeVectorStore) Insert(ctx context.Context, vectors [][]float32, ids []string, payloads []map[string]any) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range ids {
		s.rows[id] = fakeRow{vector: vectors[i], payload: copyPayload(payloads[i])}
	}
	return nil
}

func (s *fakeVectorStore) Search(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]SearchHit, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []SearchHit
	for id, r := range s.rows {
		if !payloadMatches(r.payload, filters) {
			continue
		}
		hits = append(hits, SearchHit{Record: Record{ID: id, Payload: copyPayload(r.payload)}, Score: 0.9})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *fakeVectorStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Record{ID: id, Payload: copyPayload(r.payload)}, nil
}

func (s *fakeVectorStore) List(ctx context.Context, filters map[string]any, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []Record
	for id, r := range s.rows {
		if !payloadMatches(r.payload, filters) {
			continue
		}
		records = append(records, Record{ID: id, Payload: copyPayload(r.payload)})
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}

func (s *fakeVectorStore) Update(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	if vector != nil {
		r.vector = vector
	}
	if payload != nil {
		r.payload = copyPayload(payload)
	}
	s.rows[id] = r
	return nil
}

func (s *fakeVectorStore) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *fakeVectorStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]fakeRow)
	return nil
}

func (s *fakeVectorStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func copyPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

func payloadMatches(payload, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := payload[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// fakeHistoryStore records entries per memory id.
type fakeHistoryStore struct {
	mu      sync.Mutex
	entries map[string][]HistoryEntry
	addErr  error
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{entries: make(map[string][]HistoryEntry)}
}

func (h *fakeHistoryStore) AddEntry(ctx context.Context, entry *HistoryEntry) error {
	if h.addErr != nil {
		return h.addErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[entry.MemoryID] = append(h.entries[entry.MemoryID], *entry)
	return nil
}

func (h *fakeHistoryStore) GetHistory(ctx context.Context, memoryID string) ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries[memoryID]))
	copy(out, h.entries[memoryID])
	return out, nil
}

func (h *fakeHistoryStore) Reset(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make(map[string][]HistoryEntry)
	return nil
}

func (h *fakeHistoryStore) Close() error { return nil }

func (h *fakeHistoryStore) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.entries {
		n += len(e)
	}
	return n
}

func testConfig(llm *fakeLLM, emb *fakeEmbedder, vs *fakeVectorStore, hs *fakeHistoryStore) Config {
	return Config{
		LLM:         llm,
		Embedder:    emb,
		VectorStore: vs,
		History:     hs,
	}
}
