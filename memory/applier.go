package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/memoria/log"
)

// contentHash is the idempotence key of a memory's text.
func contentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// applier executes validated decisions against the vector store and
// records each mutation in the history store. Decisions are independent:
// a failure on one is logged and skipped, never aborting its siblings.
type applier struct {
	store    VectorStore
	embedder Embedder
	history  HistoryStore
	logger   log.Logger
}

func newApplier(store VectorStore, embedder Embedder, history HistoryStore, logger log.Logger) *applier {
	return &applier{store: store, embedder: embedder, history: history, logger: logger}
}

// scope carries the identity and metadata stamped onto written payloads.
type scope struct {
	requestOptions
}

// Apply executes the batch sequentially and returns one Result per
// decision that succeeded. Failed decisions are logged and omitted.
func (a *applier) Apply(ctx context.Context, decisions []Decision, sc scope) []Result {
	results := make([]Result, 0, len(decisions))
	for _, d := range decisions {
		res, err := a.applyOne(ctx, d, sc)
		if err != nil {
			a.logger.Error("failed to apply %s decision: %v", d.Event, err)
			continue
		}
		if res != nil {
			results = append(results, *res)
		}
	}
	return results
}

// ApplyParallel executes the batch with one goroutine per decision,
// preserving result order. Used by AsyncMemory.
func (a *applier) ApplyParallel(ctx context.Context, decisions []Decision, sc scope) []Result {
	slots := make([]*Result, len(decisions))

	var wg sync.WaitGroup
	for i, d := range decisions {
		wg.Add(1)
		go func(i int, d Decision) {
			defer wg.Done()
			res, err := a.applyOne(ctx, d, sc)
			if err != nil {
				a.logger.Error("failed to apply %s decision: %v", d.Event, err)
				return
			}
			slots[i] = res
		}(i, d)
	}
	wg.Wait()

	results := make([]Result, 0, len(decisions))
	for _, res := range slots {
		if res != nil {
			results = append(results, *res)
		}
	}
	return results
}

// applyOne returns (nil, nil) when the decision degrades to a no-op, such
// as an UPDATE whose text hash matches the stored hash.
func (a *applier) applyOne(ctx context.Context, d Decision, sc scope) (*Result, error) {
	switch d.Event {
	case EventAdd:
		return a.add(ctx, d.Text, sc)
	case EventUpdate:
		return a.update(ctx, d.ID, d.Text, sc, false)
	case EventDelete:
		return a.delete(ctx, d.ID, sc)
	default:
		return nil, fmt.Errorf("unsupported event %q", d.Event)
	}
}

func (a *applier) add(ctx context.Context, text string, sc scope) (*Result, error) {
	id := uuid.New().String()

	// Re-embed here rather than reusing the retrieval embedding: the
	// reconciler may have normalized the text.
	vector, err := a.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	now := time.Now().UTC()
	payload := a.newPayload(text, sc, now)

	if err := a.store.Insert(ctx, [][]float32{vector}, []string{id}, []map[string]any{payload}); err != nil {
		return nil, fmt.Errorf("vector store insert failed: %w", err)
	}

	a.appendHistory(ctx, &HistoryEntry{
		MemoryID:  id,
		NewMemory: text,
		Event:     EventAdd,
		ActorID:   sc.actorID,
		CreatedAt: now,
	})

	return &Result{ID: id, Memory: text, Event: EventAdd}, nil
}

// update rewrites one memory. With force false, an unchanged content hash
// degrades the write to a no-op (nil, nil); direct facade updates pass
// force true and always write.
func (a *applier) update(ctx context.Context, id, text string, sc scope, force bool) (*Result, error) {
	record, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup of memory %s failed: %w", id, err)
	}

	previous, _ := record.Payload[payloadData].(string)
	newHash := contentHash(text)
	if oldHash, _ := record.Payload[payloadHash].(string); oldHash == newHash && !force {
		// Redundant write; treat as NONE.
		a.logger.Debug("skipping UPDATE of %s: content hash unchanged", id)
		return nil, nil
	}

	vector, err := a.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	now := time.Now().UTC()
	payload := make(map[string]any, len(record.Payload))
	for k, v := range record.Payload {
		payload[k] = v
	}
	payload[payloadData] = text
	payload[payloadHash] = newHash
	payload[payloadUpdatedAt] = now.Format(time.RFC3339Nano)

	if err := a.store.Update(ctx, id, vector, payload); err != nil {
		return nil, fmt.Errorf("vector store update failed: %w", err)
	}

	a.appendHistory(ctx, &HistoryEntry{
		MemoryID:       id,
		PreviousMemory: previous,
		NewMemory:      text,
		Event:          EventUpdate,
		ActorID:        sc.actorID,
		CreatedAt:      now,
	})

	return &Result{ID: id, Memory: text, Event: EventUpdate, PreviousMemory: previous}, nil
}

func (a *applier) delete(ctx context.Context, id string, sc scope) (*Result, error) {
	record, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup of memory %s failed: %w", id, err)
	}
	previous, _ := record.Payload[payloadData].(string)

	if err := a.store.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("vector store delete failed: %w", err)
	}

	a.appendHistory(ctx, &HistoryEntry{
		MemoryID:       id,
		PreviousMemory: previous,
		Event:          EventDelete,
		ActorID:        sc.actorID,
		CreatedAt:      time.Now().UTC(),
	})

	return &Result{ID: id, Memory: previous, Event: EventDelete}, nil
}

// newPayload builds the stored payload for a new memory: text, hash,
// caller metadata, identity fields and timestamps. Identity fields win on
// key collisions with caller metadata.
func (a *applier) newPayload(text string, sc scope, now time.Time) map[string]any {
	payload := make(map[string]any, len(sc.metadata)+8)
	for k, v := range sc.metadata {
		payload[k] = v
	}
	payload[payloadData] = text
	payload[payloadHash] = contentHash(text)
	payload[payloadCreatedAt] = now.Format(time.RFC3339Nano)
	payload[payloadUpdatedAt] = now.Format(time.RFC3339Nano)
	if sc.userID != "" {
		payload[payloadUserID] = sc.userID
	}
	if sc.agentID != "" {
		payload[payloadAgentID] = sc.agentID
	}
	if sc.runID != "" {
		payload[payloadRunID] = sc.runID
	}
	if sc.actorID != "" {
		payload[payloadActorID] = sc.actorID
	}
	return payload
}

// appendHistory logs and swallows history failures: the vector store write
// already happened, and the audit trail must not fail the operation.
func (a *applier) appendHistory(ctx context.Context, entry *HistoryEntry) {
	entry.ID = uuid.New().String()
	if err := a.history.AddEntry(ctx, entry); err != nil {
		a.logger.Error("failed to append history for %s: %v", entry.MemoryID, err)
	}
}
