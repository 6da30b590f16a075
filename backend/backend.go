// Package backend defines the storage abstraction used by tagcache.
//
// A Backend is a remote (or in-process) key-value store that also offers
// sets, sorted sets and an atomic batch primitive. The journal keeps its
// tag and priority indices in sets and sorted sets; the entry store keeps
// payloads in plain string values.
//
// Implementations MUST be byte-for-byte transparent for string values: Get
// must return exactly the []byte previously passed to Set for the same key.
//
// Important: the keyspaces "<storage-ns>:" and "<journal-ns>:" are owned by
// tagcache. External code MUST NOT write values under these prefixes.
package backend

import (
	"context"
	"math"
	"time"
)

// Open ends for ZRangeByScore.
const (
	MinScore int64 = math.MinInt64
	MaxScore int64 = math.MaxInt64
)

// Backend is the capability surface tagcache needs from a store.
// Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// MGet returns one element per requested key, in order. Misses are nil.
	MGet(ctx context.Context, keys ...string) ([][]byte, error)

	// Set stores value. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes keys of any type. Missing keys are ignored; no keys is a no-op.
	Del(ctx context.Context, keys ...string) error

	// Expire resets the TTL of an existing key. Missing keys are ignored.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Keys lists every key (of any type) starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Flush drops every key in the store, across all namespaces.
	Flush(ctx context.Context) error

	// SMembers returns the members of a set; missing set => empty.
	SMembers(ctx context.Context, key string) ([]string, error)

	// ZRangeByScore returns members with min <= score <= max, ascending.
	// Use MinScore / MaxScore for open ends.
	ZRangeByScore(ctx context.Context, key string, min, max int64) ([]string, error)

	// Atomic queues the mutations recorded by fn and applies them as one
	// transaction (MULTI/EXEC). An empty batch is valid.
	Atomic(ctx context.Context, fn func(Batch)) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Batch records mutations inside Atomic. Calls with no members are dropped.
type Batch interface {
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
	ZAdd(key, member string, score int64)
	ZRem(key string, members ...string)
	Del(keys ...string)
}
