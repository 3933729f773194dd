// Package history provides memory.HistoryStore implementations: the
// append-only audit log of memory lifecycle events.
//
// The in-memory store suits tests and ephemeral deployments:
//
//	hs := history.NewInMemoryHistoryStore()
//
// The SQLite-backed store in history/sqlite is the durable default.
package history // import "github.com/smallnest/memoria/history"
