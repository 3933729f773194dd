package memory

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/smallnest/memoria/log"
)

// reconciler decides, in one LLM call per Add, how candidate facts change
// the stored memory set.
type reconciler struct {
	llm          LLM
	customPrompt string
	logger       log.Logger
}

func newReconciler(llm LLM, customPrompt string, logger log.Logger) *reconciler {
	return &reconciler{llm: llm, customPrompt: customPrompt, logger: logger}
}

// rawDecision is the wire shape of one decision in the LLM response.
type rawDecision struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Event     Event  `json:"event"`
	OldMemory string `json:"old_memory,omitempty"`
}

// Reconcile presents existing memories with temporary integer ids and the
// candidate facts to the LLM, then validates the returned decisions:
// UPDATE/DELETE must reference a known temporary id, which is mapped back
// to the real memory id. Unknown references are dropped, not fatal; NONE
// decisions are filtered out. A response that cannot be parsed at all
// aborts with ReconciliationError.
//
// When no existing memories were retrieved, every fact becomes an ADD
// without consulting the LLM.
func (r *reconciler) Reconcile(ctx context.Context, facts []string, existing []existingMemory) ([]Decision, error) {
	if len(facts) == 0 {
		return nil, nil
	}
	if len(existing) == 0 {
		decisions := make([]Decision, 0, len(facts))
		for _, fact := range facts {
			decisions = append(decisions, Decision{Event: EventAdd, Text: fact})
		}
		return decisions, nil
	}

	prompt, err := buildUpdateMemoryMessages(existing, facts, r.customPrompt)
	if err != nil {
		return nil, &ReconciliationError{Err: err}
	}

	raw, err := r.llm.Generate(ctx, prompt, FormatJSON)
	if err != nil {
		return nil, &ReconciliationError{Raw: raw, Err: err}
	}

	var parsed struct {
		Memory []rawDecision `json:"memory"`
	}
	cleaned := extractJSON(raw)
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		r.logger.Error("failed to parse reconciliation response: %v", err)
		return nil, &ReconciliationError{Raw: raw, Err: err}
	}

	return r.validate(parsed.Memory, existing), nil
}

// validate maps temporary ids back to real memory ids and drops decisions
// the applier could not act on. A single hallucinated reference must not
// block the rest of the batch.
func (r *reconciler) validate(raw []rawDecision, existing []existingMemory) []Decision {
	decisions := make([]Decision, 0, len(raw))
	for _, d := range raw {
		switch d.Event {
		case EventAdd:
			if d.Text == "" {
				r.logger.Warn("dropping ADD decision with empty text")
				continue
			}
			decisions = append(decisions, Decision{Event: EventAdd, Text: d.Text})
		case EventUpdate, EventDelete:
			idx, err := strconv.Atoi(d.ID)
			if err != nil || idx < 0 || idx >= len(existing) {
				r.logger.Warn("dropping %s decision referencing unknown memory id %q", d.Event, d.ID)
				continue
			}
			if d.Event == EventUpdate && d.Text == "" {
				r.logger.Warn("dropping UPDATE decision with empty text")
				continue
			}
			decisions = append(decisions, Decision{
				Event:     d.Event,
				ID:        existing[idx].ID,
				Text:      d.Text,
				OldMemory: existing[idx].Text,
			})
		case EventNone:
			// Informational only; no side effect.
		default:
			r.logger.Warn("dropping decision with unknown event %q", d.Event)
		}
	}
	return decisions
}
