package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/smallnest/memoria/log"
)

// Memory is the public facade over the extraction, retrieval,
// reconciliation and application pipeline. It is a stateless orchestrator
// per call; the only state it holds are the configured ports.
type Memory struct {
	config     Config
	extractor  *factExtractor
	retriever  *candidateRetriever
	reconciler *reconciler
	applier    *applier
	logger     log.Logger
	telemetry  Telemetry
}

// New creates a Memory facade from a validated config.
func New(cfg Config) (*Memory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	return &Memory{
		config:     cfg,
		extractor:  newFactExtractor(cfg.LLM, cfg.CustomFactExtractionPrompt, cfg.Logger),
		retriever:  newCandidateRetriever(cfg.Embedder, cfg.VectorStore, cfg.TopK, cfg.Logger),
		reconciler: newReconciler(cfg.LLM, cfg.CustomUpdateMemoryPrompt, cfg.Logger),
		applier:    newApplier(cfg.VectorStore, cfg.Embedder, cfg.History, cfg.Logger),
		logger:     cfg.Logger,
		telemetry:  cfg.Telemetry,
	}, nil
}

// Add ingests conversational messages and returns the memory mutations
// they caused. At least one of WithUserID, WithAgentID or WithRunID is
// required. With WithInfer(false), messages are stored verbatim without
// any LLM call.
func (m *Memory) Add(ctx context.Context, messages []Message, opts ...Option) (*AddResult, error) {
	o := buildRequestOptions(opts)
	if err := validateAdd(&o, messages); err != nil {
		return nil, err
	}

	m.telemetry.CaptureEvent("memory.add", map[string]any{
		"messages": len(messages),
		"infer":    o.infer,
	})

	if o.memoryType == MemoryTypeProceduralMemory {
		return m.addProcedural(ctx, messages, o)
	}
	if !o.infer {
		return m.addRaw(ctx, messages, o)
	}
	return m.addInferred(ctx, messages, o, false)
}

// addInferred runs the full pipeline. parallel selects the fanned-out
// retrieval/apply variants used by AsyncMemory.
func (m *Memory) addInferred(ctx context.Context, messages []Message, o requestOptions, parallel bool) (*AddResult, error) {
	facts, err := m.extractor.Extract(ctx, messages)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		m.logger.Info("no facts extracted, nothing to reconcile")
		return &AddResult{Results: []Result{}}, nil
	}

	filters := o.identityFilters()

	var existing []existingMemory
	if parallel {
		existing, err = m.retriever.RetrieveParallel(ctx, facts, filters)
	} else {
		existing, err = m.retriever.Retrieve(ctx, facts, filters)
	}
	if err != nil {
		return nil, err
	}

	decisions, err := m.reconciler.Reconcile(ctx, facts, existing)
	if err != nil {
		return nil, err
	}

	var results []Result
	if parallel {
		results = m.applier.ApplyParallel(ctx, decisions, scope{o})
	} else {
		results = m.applier.Apply(ctx, decisions, scope{o})
	}
	if results == nil {
		results = []Result{}
	}
	return &AddResult{Results: results}, nil
}

// addRaw stores each message directly as an ADD, recording the message
// role for attribution. No LLM is involved.
func (m *Memory) addRaw(ctx context.Context, messages []Message, o requestOptions) (*AddResult, error) {
	results := make([]Result, 0, len(messages))
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		sc := scope{o}
		if sc.metadata == nil {
			sc.metadata = map[string]any{}
		} else {
			md := make(map[string]any, len(sc.metadata)+1)
			for k, v := range sc.metadata {
				md[k] = v
			}
			sc.metadata = md
		}
		sc.metadata[payloadRole] = msg.Role
		if msg.Name != "" && sc.actorID == "" {
			sc.actorID = msg.Name
		}

		res, err := m.applier.add(ctx, msg.Content, sc)
		if err != nil {
			m.logger.Error("failed to store raw message: %v", err)
			continue
		}
		results = append(results, *res)
	}
	return &AddResult{Results: results}, nil
}

// addProcedural condenses an agent trace into a single procedural memory.
func (m *Memory) addProcedural(ctx context.Context, messages []Message, o requestOptions) (*AddResult, error) {
	prompt := buildProceduralMessages(messages)
	summary, err := m.config.LLM.Generate(ctx, prompt, FormatText)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}
	summary = removeThinkingTags(summary)
	if summary == "" {
		return nil, &ExtractionError{Err: fmt.Errorf("empty procedural memory summary")}
	}

	sc := scope{o}
	md := make(map[string]any, len(sc.metadata)+1)
	for k, v := range sc.metadata {
		md[k] = v
	}
	md["memory_type"] = MemoryTypeProceduralMemory
	sc.metadata = md

	res, err := m.applier.add(ctx, summary, sc)
	if err != nil {
		return nil, err
	}
	return &AddResult{Results: []Result{*res}}, nil
}

// Search embeds the query and returns memories ranked by similarity,
// scoped to the supplied identity.
func (m *Memory) Search(ctx context.Context, query string, opts ...Option) ([]Item, error) {
	o := buildRequestOptions(opts)
	if !o.hasSessionIdentity() {
		return nil, missingIdentityError()
	}

	m.telemetry.CaptureEvent("memory.search", map[string]any{"limit": o.limit})

	vector, err := m.config.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limit := o.limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	hits, err := m.config.VectorStore.Search(ctx, vector, limit, mergeFilters(o.identityFilters(), o.filters))
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	items := make([]Item, 0, len(hits))
	for _, hit := range hits {
		if o.threshold != nil && hit.Score < *o.threshold {
			continue
		}
		item := payloadToItem(hit.ID, hit.Payload)
		item.Score = hit.Score
		items = append(items, item)
	}
	return items, nil
}

// Get returns one memory by id, or ErrNotFound.
func (m *Memory) Get(ctx context.Context, memoryID string) (*Item, error) {
	record, err := m.config.VectorStore.Get(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	item := payloadToItem(record.ID, record.Payload)
	return &item, nil
}

// GetAll lists memories matching the supplied identity filters.
func (m *Memory) GetAll(ctx context.Context, opts ...Option) ([]Item, error) {
	o := buildRequestOptions(opts)

	limit := o.limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	records, err := m.config.VectorStore.List(ctx, mergeFilters(o.identityFilters(), o.filters), limit)
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, payloadToItem(rec.ID, rec.Payload))
	}
	return items, nil
}

// Update rewrites one memory's text directly, bypassing extraction and
// reconciliation. The text is always re-embedded and one history entry is
// appended.
func (m *Memory) Update(ctx context.Context, memoryID, text string) (*Result, error) {
	m.telemetry.CaptureEvent("memory.update", nil)
	return m.applier.update(ctx, memoryID, text, scope{}, true)
}

// Delete removes one memory by id and appends a terminal history entry.
func (m *Memory) Delete(ctx context.Context, memoryID string) error {
	m.telemetry.CaptureEvent("memory.delete", nil)
	_, err := m.applier.delete(ctx, memoryID, scope{})
	return err
}

// DeleteAll removes every memory matching the supplied identity filters.
// It requires at least one identity field and never degrades into a full
// collection reset.
func (m *Memory) DeleteAll(ctx context.Context, opts ...Option) error {
	o := buildRequestOptions(opts)
	if !o.hasSessionIdentity() && o.actorID == "" {
		return missingIdentityError()
	}

	m.telemetry.CaptureEvent("memory.delete_all", nil)

	records, err := m.config.VectorStore.List(ctx, o.identityFilters(), 0)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	for _, rec := range records {
		if _, err := m.applier.delete(ctx, rec.ID, scope{o}); err != nil {
			m.logger.Error("failed to delete memory %s: %v", rec.ID, err)
		}
	}
	return nil
}

// History returns the ordered lifecycle events of one memory.
func (m *Memory) History(ctx context.Context, memoryID string) ([]HistoryEntry, error) {
	return m.config.History.GetHistory(ctx, memoryID)
}

// Reset drops and recreates the whole collection and clears the history
// store. Destructive; DeleteAll with filters is the scoped alternative.
func (m *Memory) Reset(ctx context.Context) error {
	m.telemetry.CaptureEvent("memory.reset", nil)
	if err := m.config.VectorStore.Reset(ctx); err != nil {
		return fmt.Errorf("vector store reset failed: %w", err)
	}
	if err := m.config.History.Reset(ctx); err != nil {
		return fmt.Errorf("history reset failed: %w", err)
	}
	return nil
}

func validateAdd(o *requestOptions, messages []Message) error {
	if !o.hasSessionIdentity() {
		return missingIdentityError()
	}
	if o.memoryType != "" && o.memoryType != MemoryTypeProceduralMemory {
		return &ValidationError{
			Code:    CodeInvalidMemoryType,
			Message: fmt.Sprintf("invalid memory_type %q, only %q is supported", o.memoryType, MemoryTypeProceduralMemory),
		}
	}
	if len(messages) == 0 {
		return &ValidationError{
			Code:    CodeInvalidMessages,
			Message: "messages must not be empty",
		}
	}
	for _, msg := range messages {
		if msg.Role == "" {
			return &ValidationError{
				Code:    CodeInvalidMessages,
				Message: "every message requires a role",
			}
		}
	}
	return nil
}

func missingIdentityError() error {
	return &ValidationError{
		Code:    CodeMissingIdentity,
		Message: "at least one of user_id, agent_id or run_id is required",
	}
}

func mergeFilters(identity, extra map[string]any) map[string]any {
	if len(extra) == 0 {
		return identity
	}
	merged := make(map[string]any, len(identity)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range identity {
		merged[k] = v
	}
	return merged
}

// payloadToItem reshapes a stored payload into the public schema. Known
// fields are lifted into struct fields; everything else stays in Metadata.
func payloadToItem(id string, payload map[string]any) Item {
	item := Item{ID: id}
	metadata := map[string]any{}

	for k, v := range payload {
		switch k {
		case payloadData:
			item.Memory, _ = v.(string)
		case payloadHash:
			item.Hash, _ = v.(string)
		case payloadUserID:
			item.UserID, _ = v.(string)
		case payloadAgentID:
			item.AgentID, _ = v.(string)
		case payloadRunID:
			item.RunID, _ = v.(string)
		case payloadActorID:
			item.ActorID, _ = v.(string)
		case payloadRole:
			item.Role, _ = v.(string)
		case payloadCreatedAt:
			item.CreatedAt = parseTimestamp(v)
		case payloadUpdatedAt:
			item.UpdatedAt = parseTimestamp(v)
		default:
			metadata[k] = v
		}
	}

	if len(metadata) > 0 {
		item.Metadata = metadata
	}
	return item
}

func parseTimestamp(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
