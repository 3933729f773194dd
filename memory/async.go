package memory

import (
	"context"
)

// AsyncMemory runs the same pipeline as Memory but fans provider and store
// I/O out across goroutines: per-fact embedding and search run
// concurrently during candidate retrieval, and decisions are applied
// concurrently with result order preserved. Decision validation itself
// stays sequential and pure.
//
// AsyncMemory offers no cross-call ordering for the same identity; two
// concurrent Add calls may both update the same memory and the last writer
// wins, exactly as with Memory.
type AsyncMemory struct {
	*Memory
}

// NewAsync creates an AsyncMemory facade from a validated config.
func NewAsync(cfg Config) (*AsyncMemory, error) {
	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &AsyncMemory{Memory: m}, nil
}

// Add is Memory.Add with concurrent retrieval and application.
func (m *AsyncMemory) Add(ctx context.Context, messages []Message, opts ...Option) (*AddResult, error) {
	o := buildRequestOptions(opts)
	if err := validateAdd(&o, messages); err != nil {
		return nil, err
	}

	m.telemetry.CaptureEvent("memory.add", map[string]any{
		"messages": len(messages),
		"infer":    o.infer,
		"async":    true,
	})

	if o.memoryType == MemoryTypeProceduralMemory {
		return m.addProcedural(ctx, messages, o)
	}
	if !o.infer {
		return m.addRaw(ctx, messages, o)
	}
	return m.addInferred(ctx, messages, o, true)
}
