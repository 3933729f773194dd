// Package sqlite provides SQLite-backed storage for the memory history
// log: one append-only table of lifecycle events keyed by memory id.
//
//	hs, err := sqlite.NewSqliteHistoryStore(sqlite.SqliteOptions{
//		Path: "./history.db",
//	})
//	if err != nil {
//		return err
//	}
//	defer hs.Close()
package sqlite // import "github.com/smallnest/memoria/history/sqlite"
