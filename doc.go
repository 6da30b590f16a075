// Package tagcache implements a cache layer over a remote key-value store
// (Redis) where entries carry dependency metadata and groups of entries are
// invalidated by tag, by priority threshold or all at once, without scanning
// the keyspace.
//
// Components:
//   - Backend: the store capability surface (strings with TTL, sets, sorted
//     sets, atomic batches). Redis and in-process implementations.
//   - Journal: tag and priority index kept inside the backend, mutated in
//     one atomic batch per key.
//   - Storage[V]: the entry store. Values are serialized by a Codec[V] and
//     verified lazily on every read.
//
// Keys:
//
//	<storage-ns>:<key>       - entries: <metadata JSON> 0x00 <payload>
//	<journal-ns>:<tag>:keys  - keys carrying tag
//	<journal-ns>:<key>:tags  - tags of key
//	<journal-ns>:priority    - key -> priority
//
// A read verifies, in order: sliding renewal or absolute expiration, the
// entry's callbacks, then every dependent item (its version must match the
// one seen at write and it must verify itself). A failed check removes the
// entry and the read reports a miss.
//
// Write pattern:
//
//	_ = store.Lock(ctx, k)         // optional, with a real Locker
//	v := load(k)
//	_ = store.Write(ctx, k, v, tagcache.Dependencies{
//		Tags:   []string{"users"},
//		Expire: time.Minute,
//	}) // unlocks k on success
package tagcache
