// Package llm provides memory.LLM and memory.Embedder adapters for
// concrete providers.
//
// LangChainLLM and LangChainEmbedder wrap any langchaingo llms.Model and
// embeddings.Embedder, covering OpenAI-compatible endpoints, Ollama,
// Anthropic and the rest of the langchaingo provider surface:
//
//	model, _ := openai.New(openai.WithModel("gpt-4o-mini"))
//	adapter := llm.NewLangChainLLM(model)
//
// OpenAILLM and OpenAIEmbedder talk to the OpenAI API directly via
// sashabaranov/go-openai, including custom base URLs for compatible
// gateways.
package llm // import "github.com/smallnest/memoria/llm"
