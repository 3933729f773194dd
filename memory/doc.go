// Package memory implements a long-term memory layer for LLM applications.
//
// Given conversational messages, the package extracts durable facts with an
// LLM, reconciles them against previously stored memories, and persists the
// outcome in a vector store together with a full audit history. Applications
// interact with a single facade:
//
//	mem, err := memory.New(memory.Config{
//		LLM:         llmAdapter,
//		Embedder:    embedderAdapter,
//		VectorStore: store.NewInMemoryVectorStore(),
//		History:     historyStore,
//	})
//	if err != nil {
//		return err
//	}
//
//	result, err := mem.Add(ctx,
//		[]memory.Message{{Role: "user", Content: "I love playing tennis"}},
//		memory.WithUserID("alice"),
//	)
//
// # Pipeline
//
// Add runs four stages:
//
//  1. Fact extraction: one LLM call turns the conversation into a flat list
//     of candidate fact strings.
//  2. Candidate retrieval: each fact is embedded and searched against the
//     vector store, scoped to the caller's identity (user/agent/run).
//  3. Reconciliation: a single LLM call decides, for all facts at once,
//     which existing memories to update or delete and which facts to add.
//     Decisions referencing unknown memory ids are dropped, not fatal.
//  4. Application: validated decisions are executed against the vector
//     store; every mutation appends an entry to the history store.
//
// Search, Get, GetAll, Update, Delete, DeleteAll, History and Reset provide
// direct access to stored memories outside the inference pipeline.
//
// # Ports
//
// The package depends only on four small interfaces: LLM, Embedder,
// VectorStore and HistoryStore. Adapters for langchaingo and the OpenAI API
// live in the llm package; vector store backends (in-memory, Redis,
// Postgres/pgvector) live in the store package; history backends (in-memory,
// SQLite) live in the history package.
//
// # Identity scoping
//
// Every memory row carries the identity fields it was stored under. All
// reads and writes are filtered by the identity supplied with the call;
// operations never touch rows of a different user, agent or run.
//
// # Concurrency
//
// Memory executes each call sequentially. AsyncMemory runs the same
// algorithm but fans out embedding, search and apply I/O across goroutines
// with bounded concurrency. Neither variant serializes concurrent Add calls
// for the same identity; the last writer wins, and callers that need strict
// ordering must serialize externally.
package memory // import "github.com/smallnest/memoria/memory"
