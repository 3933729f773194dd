package memory

import (
	"fmt"

	"github.com/smallnest/memoria/log"
)

// Default limits used when the caller does not override them.
const (
	// DefaultTopK is the number of similar memories retrieved per
	// candidate fact during reconciliation.
	DefaultTopK = 5
	// DefaultLimit is the maximum number of rows returned by Search and
	// GetAll when no limit is given.
	DefaultLimit = 100
)

// Config assembles a Memory facade. LLM, Embedder, VectorStore and History
// are required; everything else has working defaults.
type Config struct {
	LLM         LLM
	Embedder    Embedder
	VectorStore VectorStore
	History     HistoryStore

	// TopK is the per-fact similarity search depth used during
	// reconciliation. Defaults to DefaultTopK.
	TopK int

	// CustomFactExtractionPrompt replaces the built-in fact extraction
	// system prompt when non-empty.
	CustomFactExtractionPrompt string
	// CustomUpdateMemoryPrompt replaces the built-in reconciliation
	// prompt when non-empty.
	CustomUpdateMemoryPrompt string

	// Logger receives operational messages. Defaults to the log
	// package's default logger.
	Logger log.Logger
	// Telemetry receives usage events. Defaults to NopTelemetry.
	Telemetry Telemetry
}

func (c *Config) validate() error {
	if c.LLM == nil {
		return fmt.Errorf("memory: config requires an LLM")
	}
	if c.Embedder == nil {
		return fmt.Errorf("memory: config requires an Embedder")
	}
	if c.VectorStore == nil {
		return fmt.Errorf("memory: config requires a VectorStore")
	}
	if c.History == nil {
		return fmt.Errorf("memory: config requires a HistoryStore")
	}
	if c.TopK < 0 {
		return fmt.Errorf("memory: TopK must not be negative")
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.TopK == 0 {
		out.TopK = DefaultTopK
	}
	if out.Logger == nil {
		out.Logger = log.GetDefaultLogger()
	}
	if out.Telemetry == nil {
		out.Telemetry = NopTelemetry{}
	}
	return out
}

// requestOptions collects per-call options for the facade operations.
type requestOptions struct {
	userID     string
	agentID    string
	runID      string
	actorID    string
	metadata   map[string]any
	filters    map[string]any
	limit      int
	threshold  *float64
	infer      bool
	inferSet   bool
	memoryType string
}

// Option configures a single facade call.
type Option func(*requestOptions)

// WithUserID scopes the call to one user.
func WithUserID(id string) Option {
	return func(o *requestOptions) { o.userID = id }
}

// WithAgentID scopes the call to one agent.
func WithAgentID(id string) Option {
	return func(o *requestOptions) { o.agentID = id }
}

// WithRunID scopes the call to one run.
func WithRunID(id string) Option {
	return func(o *requestOptions) { o.runID = id }
}

// WithActorID attributes stored memories to one actor within a session.
func WithActorID(id string) Option {
	return func(o *requestOptions) { o.actorID = id }
}

// WithMetadata attaches caller metadata to stored memories. Identity
// fields are merged in by the facade and win on key collisions.
func WithMetadata(md map[string]any) Option {
	return func(o *requestOptions) { o.metadata = md }
}

// WithFilters adds extra payload filters to Search and GetAll. Filters are
// passed to the vector store as-is.
func WithFilters(filters map[string]any) Option {
	return func(o *requestOptions) { o.filters = filters }
}

// WithLimit caps the number of results returned by Search and GetAll.
func WithLimit(limit int) Option {
	return func(o *requestOptions) { o.limit = limit }
}

// WithThreshold drops Search hits scoring below the given similarity.
func WithThreshold(score float64) Option {
	return func(o *requestOptions) { o.threshold = &score }
}

// WithInfer toggles the inference pipeline on Add. When false, messages
// are stored verbatim without any LLM call. Default true.
func WithInfer(infer bool) Option {
	return func(o *requestOptions) {
		o.infer = infer
		o.inferSet = true
	}
}

// WithMemoryType requests a specific memory type. Only
// MemoryTypeProceduralMemory is accepted besides the default.
func WithMemoryType(t string) Option {
	return func(o *requestOptions) { o.memoryType = t }
}

// MemoryTypeProceduralMemory is the only non-default memory type.
const MemoryTypeProceduralMemory = "procedural_memory"

func buildRequestOptions(opts []Option) requestOptions {
	o := requestOptions{infer: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// identityFilters returns the equality filters for the supplied identity
// scope, or nil when no identity field is present.
func (o *requestOptions) identityFilters() map[string]any {
	filters := map[string]any{}
	if o.userID != "" {
		filters[payloadUserID] = o.userID
	}
	if o.agentID != "" {
		filters[payloadAgentID] = o.agentID
	}
	if o.runID != "" {
		filters[payloadRunID] = o.runID
	}
	if o.actorID != "" {
		filters[payloadActorID] = o.actorID
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

// hasSessionIdentity reports whether at least one session identifier
// (user, agent or run) is present. Actor alone does not qualify.
func (o *requestOptions) hasSessionIdentity() bool {
	return o.userID != "" || o.agentID != "" || o.runID != ""
}
