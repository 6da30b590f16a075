package tagcache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/tagcache/backend"
	"github.com/unkn0wn-root/tagcache/callback"
	c "github.com/unkn0wn-root/tagcache/codec"
	"github.com/unkn0wn-root/tagcache/journal"
)

// Dependencies describe when a written entry stops being valid.
// The zero value means "valid until overwritten or removed".
type Dependencies struct {
	// Tags group entries for Clean(Conditions{Tags: ...}). Needs a journal.
	Tags []string
	// Priority enables Clean(Conditions{Priority: &n}) for every entry <= n.
	// Needs a journal. Must lie within [MinPriority, MaxPriority].
	Priority *int64
	// Expire is the lifetime of the entry. 0 => none; negative => already
	// expired (the entry is stored and evicted on first read).
	Expire time.Duration
	// Sliding turns Expire into a window renewed by every successful read.
	Sliding bool
	// Items are caller keys this entry depends on. Rewriting, removing or
	// invalidating any of them invalidates this entry.
	Items []string
	// Callbacks are checked by the store's Validator on every read.
	Callbacks []callback.Callback
}

// Conditions select entries for Storage.Clean.
type Conditions = journal.Conditions

// Priority returns a pointer to n, for Dependencies.Priority and
// Conditions.Priority.
func Priority(n int64) *int64 { return &n }

// Item is one MultiRead result.
type Item[V any] struct {
	Key   string
	Value V
	Found bool
}

// Storage is the entry store: cached values with lazily verified
// dependencies. V is the caller's value type; serialization is handled by a
// pluggable Codec[V].
type Storage[V any] interface {
	// Read returns the value stored under key. A failed verification evicts
	// the entry and reports a miss; backend errors are returned as is.
	Read(ctx context.Context, key string) (v V, ok bool, err error)
	// MultiRead reads keys with one round-trip. The result has exactly one
	// Item per input key, in input order.
	MultiRead(ctx context.Context, keys []string) ([]Item[V], error)
	// Write replaces the entry under key.
	Write(ctx context.Context, key string, value V, deps Dependencies) error
	Remove(ctx context.Context, key string) error
	// Clean evicts entries matching c. c.All flushes the whole backing store.
	Clean(ctx context.Context, c Conditions) error

	Lock(ctx context.Context, key string) error
	Unlock(ctx context.Context, key string) error

	Close(ctx context.Context) error
}

// Journal is the tag/priority index the store delegates to.
// *journal.Journal implements it.
type Journal interface {
	Write(ctx context.Context, key string, e journal.Entry) error
	CleanEntry(ctx context.Context, keys ...string) error
	Clean(ctx context.Context, c journal.Conditions) (journal.Cleaned, error)
}

var _ Journal = (*journal.Journal)(nil)

const (
	// DefaultNamespace prefixes every entry key when Options.Namespace is empty.
	DefaultNamespace = "tagcache.Storage"
	// DefaultMaxDepth bounds dependent-item nesting when Options.MaxDepth is 0.
	DefaultMaxDepth = 16
)

// Priorities are kept as sorted-set scores (float64 in Redis); integers
// outside this range would be rounded.
const (
	MaxPriority int64 = 1 << 53
	MinPriority int64 = -MaxPriority
)

// Options tune the store. Only Backend and Codec are required; others have
// sensible defaults.
type Options[V any] struct {
	// Required
	Backend backend.Backend
	Codec   c.Codec[V]

	Journal   Journal            // nil => tags and priorities are rejected
	Validator callback.Validator // nil => callbacks are rejected
	Locker    Locker             // nil => NopLocker
	Logger    Logger             // nil => NopLogger
	Hooks     Hooks              // nil => NopHooks
	Namespace string             // "" => DefaultNamespace
	MaxDepth  int                // dependent-item nesting limit; 0 => DefaultMaxDepth
	Now       func() time.Time   // nil => time.Now
}

// New constructs a Storage. Backend and Codec are required; every other
// option falls back to its default.
func New[V any](opts Options[V]) (Storage[V], error) {
	s, err := newStorage[V](opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}
