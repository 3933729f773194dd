package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/memoria/log"
)

// existingMemory is one stored memory surfaced as reconciliation context.
type existingMemory struct {
	ID   string
	Text string
}

// candidateRetriever finds, for each candidate fact, the existing memories
// that might conflict or relate, scoped to the caller's identity.
type candidateRetriever struct {
	embedder Embedder
	store    VectorStore
	topK     int
	logger   log.Logger
}

func newCandidateRetriever(embedder Embedder, store VectorStore, topK int, logger log.Logger) *candidateRetriever {
	return &candidateRetriever{embedder: embedder, store: store, topK: topK, logger: logger}
}

// Retrieve embeds each fact, runs one similarity search per fact, and
// returns the deduplicated union of retrieved memories. A memory retrieved
// for one fact is visible to the reconciliation step for all facts.
func (r *candidateRetriever) Retrieve(ctx context.Context, facts []string, filters map[string]any) ([]existingMemory, error) {
	if len(facts) == 0 {
		return nil, nil
	}

	var existing []existingMemory
	seen := make(map[string]bool)

	for _, fact := range facts {
		hits, err := r.searchFact(ctx, fact, filters)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			if seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true
			text, _ := hit.Payload[payloadData].(string)
			existing = append(existing, existingMemory{ID: hit.ID, Text: text})
		}
	}

	r.logger.Debug("retrieved %d existing memories for %d facts", len(existing), len(facts))
	return existing, nil
}

// RetrieveParallel is Retrieve with per-fact embedding and search fanned
// out across goroutines. The deduplicated union preserves fact order.
func (r *candidateRetriever) RetrieveParallel(ctx context.Context, facts []string, filters map[string]any) ([]existingMemory, error) {
	if len(facts) == 0 {
		return nil, nil
	}

	hitsPerFact := make([][]SearchHit, len(facts))
	errs := make([]error, len(facts))

	var wg sync.WaitGroup
	for i, fact := range facts {
		wg.Add(1)
		go func(i int, fact string) {
			defer wg.Done()
			hitsPerFact[i], errs[i] = r.searchFact(ctx, fact, filters)
		}(i, fact)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var existing []existingMemory
	seen := make(map[string]bool)
	for _, hits := range hitsPerFact {
		for _, hit := range hits {
			if seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true
			text, _ := hit.Payload[payloadData].(string)
			existing = append(existing, existingMemory{ID: hit.ID, Text: text})
		}
	}

	return existing, nil
}

func (r *candidateRetriever) searchFact(ctx context.Context, fact string, filters map[string]any) ([]SearchHit, error) {
	vector, err := r.embedder.Embed(ctx, fact)
	if err != nil {
		return nil, fmt.Errorf("failed to embed fact: %w", err)
	}
	hits, err := r.store.Search(ctx, vector, r.topK, filters)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	return hits, nil
}
