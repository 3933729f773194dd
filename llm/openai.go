package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smallnest/memoria/memory"
)

// OpenAIOptions configuration for the OpenAI API client.
type OpenAIOptions struct {
	APIKey string
	// BaseURL overrides the API endpoint, for OpenAI-compatible gateways.
	BaseURL string
	// Model is the chat model, default "gpt-4o-mini".
	Model string
	// EmbeddingModel defaults to text-embedding-3-small.
	EmbeddingModel openai.EmbeddingModel
	// Temperature for chat completions. Default 0, which suits
	// deterministic extraction and reconciliation.
	Temperature float32
}

func newClient(opts OpenAIOptions) *openai.Client {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	return openai.NewClientWithConfig(config)
}

// OpenAILLM implements memory.LLM on the OpenAI chat completions API.
type OpenAILLM struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAILLM creates a new OpenAI chat adapter.
func NewOpenAILLM(opts OpenAIOptions) *OpenAILLM {
	model := opts.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAILLM{
		client:      newClient(opts),
		model:       model,
		temperature: opts.Temperature,
	}
}

var _ memory.LLM = (*OpenAILLM)(nil)

// Generate calls the chat completions endpoint. FormatJSON requests the
// json_object response format.
func (l *OpenAILLM) Generate(ctx context.Context, messages []memory.Message, format memory.ResponseFormat) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       l.model,
		Messages:    chatMessages,
		Temperature: l.temperature,
	}
	if format == memory.FormatJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIEmbedder implements memory.Embedder on the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates a new OpenAI embeddings adapter.
func NewOpenAIEmbedder(opts OpenAIOptions) *OpenAIEmbedder {
	model := opts.EmbeddingModel
	if model == "" {
		model = openai.SmallEmbedding3
	}
	return &OpenAIEmbedder{client: newClient(opts), model: model}
}

var _ memory.Embedder = (*OpenAIEmbedder)(nil)

// Embed embeds a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}
