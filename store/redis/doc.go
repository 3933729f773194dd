// Package redis provides a Redis-backed memory.VectorStore.
//
// Rows are stored as JSON values with a set per collection holding the
// row ids. Similarity ranking is computed client-side, so the store works
// against any plain Redis server, including miniredis in tests.
//
//	vs := redis.NewRedisVectorStore(redis.RedisOptions{
//		Addr: "localhost:6379",
//	})
//	defer vs.Close()
package redis // import "github.com/smallnest/memoria/store/redis"
