// Package store provides memory.VectorStore implementations.
//
// The in-memory store is the default for development and tests:
//
//	vs := store.NewInMemoryVectorStore()
//
// Redis and Postgres (pgvector) backed stores live in the store/redis and
// store/postgres subpackages. All implementations share the same
// semantics: equality filters over payload fields and cosine-similarity
// ranked search.
package store // import "github.com/smallnest/memoria/store"
