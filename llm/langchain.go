package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/smallnest/memoria/memory"
)

// LangChainLLM adapts a langchaingo llms.Model to the memory.LLM port.
type LangChainLLM struct {
	model llms.Model
}

// NewLangChainLLM creates an adapter around an existing langchaingo model.
func NewLangChainLLM(model llms.Model) *LangChainLLM {
	return &LangChainLLM{model: model}
}

var _ memory.LLM = (*LangChainLLM)(nil)

// Generate calls the underlying model. FormatJSON enables the provider's
// JSON mode; callers still parse tolerantly since providers are not
// required to guarantee valid JSON.
func (l *LangChainLLM) Generate(ctx context.Context, messages []memory.Message, format memory.ResponseFormat) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(chatMessageType(m.Role), m.Content))
	}

	var opts []llms.CallOption
	if format == memory.FormatJSON {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := l.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func chatMessageType(role string) schema.ChatMessageType {
	switch role {
	case "system":
		return schema.ChatMessageTypeSystem
	case "assistant":
		return schema.ChatMessageTypeAI
	case "tool":
		// schema.ChatMessageTypeTool ("tool") was added in langchaingo
		// v0.1.8, which needs a newer Go toolchain than is available.
		return schema.ChatMessageType("tool")
	default:
		return schema.ChatMessageTypeHuman
	}
}

// LangChainEmbedder adapts a langchaingo embeddings.Embedder to the
// memory.Embedder port.
type LangChainEmbedder struct {
	embedder embeddings.Embedder
}

// NewLangChainEmbedder creates an adapter around an existing langchaingo
// embedder.
func NewLangChainEmbedder(embedder embeddings.Embedder) *LangChainEmbedder {
	return &LangChainEmbedder{embedder: embedder}
}

var _ memory.Embedder = (*LangChainEmbedder)(nil)

// Embed embeds a single text.
func (l *LangChainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := l.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	result := make([]float32, len(embedding))
	for i, val := range embedding {
		result[i] = float32(val)
	}
	return result, nil
}
