package memory

import (
	"context"
	"time"
)

// Message is a single chat-style message from a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Name optionally identifies the actor who produced the message,
	// used for attribution in multi-actor sessions.
	Name string `json:"name,omitempty"`
}

// Event describes the lifecycle operation applied to a memory.
type Event string

const (
	// EventAdd stores a new memory.
	EventAdd Event = "ADD"
	// EventUpdate rewrites the text of an existing memory.
	EventUpdate Event = "UPDATE"
	// EventDelete removes an existing memory.
	EventDelete Event = "DELETE"
	// EventNone leaves memory unchanged; informational only.
	EventNone Event = "NONE"
)

// Item is a stored memory in its public shape.
type Item struct {
	ID        string         `json:"id"`
	Memory    string         `json:"memory"`
	Hash      string         `json:"hash,omitempty"`
	Score     float64        `json:"score,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	ActorID   string         `json:"actor_id,omitempty"`
	Role      string         `json:"role,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// HistoryEntry is one lifecycle event of a memory.
type HistoryEntry struct {
	ID             string    `json:"id"`
	MemoryID       string    `json:"memory_id"`
	PreviousMemory string    `json:"previous_memory,omitempty"`
	NewMemory      string    `json:"new_memory,omitempty"`
	Event          Event     `json:"event"`
	ActorID        string    `json:"actor_id,omitempty"`
	Role           string    `json:"role,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Decision is a validated, storage-actionable output of reconciliation.
type Decision struct {
	Event Event
	// ID references an existing memory for UPDATE and DELETE decisions.
	// It is empty for ADD; the applier allocates one.
	ID   string
	Text string
	// OldMemory carries the previous text reported by the model for
	// UPDATE decisions. Informational; the applier reads the stored
	// payload for the authoritative previous text.
	OldMemory string
}

// Result describes the outcome of one applied decision.
type Result struct {
	ID             string `json:"id"`
	Memory         string `json:"memory"`
	Event          Event  `json:"event"`
	PreviousMemory string `json:"previous_memory,omitempty"`
}

// AddResult is the public response of Memory.Add.
type AddResult struct {
	Results []Result `json:"results"`
}

// ResponseFormat selects how the LLM should shape its output.
type ResponseFormat string

const (
	// FormatText requests free-form text.
	FormatText ResponseFormat = "text"
	// FormatJSON requests a JSON object. Providers are not required to
	// guarantee valid JSON; callers must still parse tolerantly.
	FormatJSON ResponseFormat = "json"
)

// LLM generates text from an ordered message list.
type LLM interface {
	Generate(ctx context.Context, messages []Message, format ResponseFormat) (string, error)
}

// Embedder turns text into a fixed-dimension vector. The dimension must
// match the vector store collection's configured dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Record is a stored (id, payload) pair returned by vector store reads.
type Record struct {
	ID      string
	Payload map[string]any
}

// SearchHit is a record with its similarity score.
type SearchHit struct {
	Record
	Score float64
}

// VectorStore is generic CRUD plus similarity search over
// (id, vector, payload) rows. Filters are equality matches over payload
// fields; backends may additionally understand range operators, which the
// core passes through opaquely.
type VectorStore interface {
	Insert(ctx context.Context, vectors [][]float32, ids []string, payloads []map[string]any) error
	Search(ctx context.Context, vector []float32, limit int, filters map[string]any) ([]SearchHit, error)
	Get(ctx context.Context, id string) (*Record, error)
	// List returns rows matching the filters. A limit <= 0 means no limit.
	List(ctx context.Context, filters map[string]any, limit int) ([]Record, error)
	Update(ctx context.Context, id string, vector []float32, payload map[string]any) error
	Delete(ctx context.Context, id string) error
	// Reset drops and recreates the collection.
	Reset(ctx context.Context) error
}

// HistoryStore is the append-only audit log of memory lifecycle events.
type HistoryStore interface {
	AddEntry(ctx context.Context, entry *HistoryEntry) error
	// GetHistory returns the entries for one memory id, oldest first.
	GetHistory(ctx context.Context, memoryID string) ([]HistoryEntry, error)
	Reset(ctx context.Context) error
	Close() error
}

// Telemetry receives usage events from the facade. Implementations must be
// safe for concurrent use. The default is NopTelemetry.
type Telemetry interface {
	CaptureEvent(event string, properties map[string]any)
}

// NopTelemetry discards all events.
type NopTelemetry struct{}

// CaptureEvent does nothing.
func (NopTelemetry) CaptureEvent(event string, properties map[string]any) {}

// payload field names shared by the facade, applier and stores.
const (
	payloadData      = "data"
	payloadHash      = "hash"
	payloadUserID    = "user_id"
	payloadAgentID   = "agent_id"
	payloadRunID     = "run_id"
	payloadActorID   = "actor_id"
	payloadRole      = "role"
	payloadCreatedAt = "created_at"
	payloadUpdatedAt = "updated_at"
)
