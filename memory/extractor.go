package memory

import (
	"context"
	"encoding/json"

	"github.com/smallnest/memoria/log"
)

// factExtractor turns a conversation into a flat list of candidate fact
// strings with a single LLM call.
type factExtractor struct {
	llm          LLM
	customPrompt string
	logger       log.Logger
}

func newFactExtractor(llm LLM, customPrompt string, logger log.Logger) *factExtractor {
	return &factExtractor{llm: llm, customPrompt: customPrompt, logger: logger}
}

// Extract calls the LLM once and parses a {"facts": [...]} response. The
// response is sanitized first so chatty local models (reasoning tags,
// markdown fences, surrounding prose) still parse.
func (e *factExtractor) Extract(ctx context.Context, messages []Message) ([]string, error) {
	prompt := buildFactExtractionMessages(messages, e.customPrompt)

	raw, err := e.llm.Generate(ctx, prompt, FormatJSON)
	if err != nil {
		return nil, &ExtractionError{Raw: raw, Err: err}
	}

	var parsed struct {
		Facts []string `json:"facts"`
	}
	cleaned := extractJSON(raw)
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		e.logger.Error("failed to parse fact extraction response: %v", err)
		return nil, &ExtractionError{Raw: raw, Err: err}
	}

	e.logger.Debug("extracted %d candidate facts", len(parsed.Facts))
	return parsed.Facts, nil
}
