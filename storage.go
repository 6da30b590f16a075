package tagcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/tagcache/backend"
	"github.com/unkn0wn-root/tagcache/callback"
	c "github.com/unkn0wn-root/tagcache/codec"
	"github.com/unkn0wn-root/tagcache/internal/keys"
	"github.com/unkn0wn-root/tagcache/internal/record"
	"github.com/unkn0wn-root/tagcache/journal"
)

type storage[V any] struct {
	ns        string
	be        backend.Backend
	codec     c.Codec[V]
	journal   Journal
	validator callback.Validator
	locker    Locker
	log       Logger
	hooks     Hooks
	maxDepth  int
	now       func() time.Time
}

func newStorage[V any](opts Options[V]) (*storage[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("tagcache: backend is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("tagcache: codec is required")
	}
	if opts.MaxDepth < 0 {
		return nil, fmt.Errorf("tagcache: max depth must not be negative")
	}

	s := &storage[V]{
		be:        opts.Backend,
		codec:     opts.Codec,
		journal:   opts.Journal,
		validator: opts.Validator,
		now:       opts.Now,
	}

	// defaults
	s.ns = coalesce(opts.Namespace, DefaultNamespace)
	s.maxDepth = coalesce(opts.MaxDepth, DefaultMaxDepth)
	s.locker = coalesce[Locker](opts.Locker, NopLocker{})
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *storage[V]) Close(ctx context.Context) error {
	return s.be.Close(ctx)
}

func (s *storage[V]) Read(ctx context.Context, key string) (V, bool, error) {
	var zero V
	sk := s.entryKey(key)
	raw, ok, err := s.be.Get(ctx, sk)
	if err != nil || !ok {
		return zero, false, err
	}
	return s.load(ctx, key, sk, raw)
}

func (s *storage[V]) MultiRead(ctx context.Context, keys []string) ([]Item[V], error) {
	out := make([]Item[V], len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	sks := make([]string, len(keys))
	for i, k := range keys {
		sks[i] = s.entryKey(k)
	}
	raws, err := s.be.MGet(ctx, sks...)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		out[i].Key = k
		if raws[i] == nil {
			continue
		}
		v, ok, err := s.load(ctx, k, sks[i], raws[i])
		if err != nil {
			return nil, err
		}
		out[i].Value, out[i].Found = v, ok
	}
	return out, nil
}

// load turns a stored record into a value, evicting it when it is corrupt,
// stale or undecodable.
func (s *storage[V]) load(ctx context.Context, key, sk string, raw []byte) (V, bool, error) {
	var zero V
	meta, payload, err := record.Decode(raw)
	if err != nil {
		s.evict(ctx, sk, ReasonCorrupt) // self-heal
		return zero, false, nil
	}
	valid, err := s.verify(ctx, key, meta, nil)
	if err != nil || !valid {
		return zero, false, err
	}
	v, err := s.codec.Decode(payload, meta.Codec)
	if err != nil {
		s.evict(ctx, sk, ReasonDecode) // self-heal
		return zero, false, nil
	}
	return v, true, nil
}

func (s *storage[V]) Write(ctx context.Context, key string, value V, deps Dependencies) error {
	if deps.Sliding && deps.Expire <= 0 {
		return fmt.Errorf("%w: sliding expiration needs a positive Expire", ErrInvalidDependencies)
	}
	if p := deps.Priority; p != nil && (*p < MinPriority || *p > MaxPriority) {
		return fmt.Errorf("%w: priority %d outside [%d, %d]", ErrInvalidDependencies, *p, MinPriority, MaxPriority)
	}
	indexed := len(deps.Tags) > 0 || deps.Priority != nil
	if indexed && s.journal == nil {
		return ErrJournalRequired
	}
	if len(deps.Callbacks) > 0 && s.validator == nil {
		return ErrValidatorRequired
	}

	now := s.now()
	meta := record.Meta{Time: record.NewVersion(now)}
	if deps.Expire != 0 {
		if deps.Sliding {
			meta.Delta = max(deps.Expire.Milliseconds(), 1) // sliding time
		} else {
			meta.Expire = now.Add(deps.Expire).UnixMilli() // absolute time
		}
	}
	if len(deps.Items) > 0 {
		meta.Items = make(map[string]*string, len(deps.Items))
		for _, item := range keys.Unique(deps.Items) {
			m, ok, err := s.readMeta(ctx, item)
			if err != nil {
				return fmt.Errorf("tagcache: read dependent %q: %w", item, err)
			}
			if ok {
				t := m.Time
				meta.Items[item] = &t
			} else {
				meta.Items[item] = nil // may be nil
			}
		}
	}
	meta.Callbacks = deps.Callbacks

	meta.Codec = c.Meta{}
	payload, err := s.codec.Encode(value, meta.Codec)
	if err != nil {
		return fmt.Errorf("tagcache: encode %q: %w", key, err)
	}
	if len(meta.Codec) == 0 {
		meta.Codec = nil
	}
	blob, err := record.Encode(meta, payload)
	if err != nil {
		return err
	}

	sk := s.entryKey(key)
	if indexed {
		err := s.journal.Write(ctx, sk, journal.Entry{Tags: deps.Tags, Priority: deps.Priority})
		if err != nil {
			return s.writeFailed(ctx, key, sk, err)
		}
	}

	var ttl time.Duration
	if deps.Expire > 0 {
		ttl = deps.Expire
	}
	if err := s.be.Set(ctx, sk, blob, ttl); err != nil {
		return s.writeFailed(ctx, key, sk, err)
	}
	return s.Unlock(ctx, key)
}

// writeFailed drops whatever is left of the entry and wraps the cause.
func (s *storage[V]) writeFailed(ctx context.Context, key, sk string, cause error) error {
	s.hooks.WriteFailed(sk, cause)
	s.log.Error("write failed; entry removed", Fields{"key": sk, "err": cause})
	return &WriteError{Key: key, Err: cause, RemoveErr: s.remove(ctx, sk)}
}

func (s *storage[V]) Remove(ctx context.Context, key string) error {
	return s.remove(ctx, s.entryKey(key))
}

func (s *storage[V]) remove(ctx context.Context, sk string) error {
	if err := s.be.Del(ctx, sk); err != nil {
		return fmt.Errorf("tagcache: delete %q: %w", sk, err)
	}
	if s.journal != nil {
		if err := s.journal.CleanEntry(ctx, sk); err != nil {
			s.hooks.JournalCleanFailed(sk, err)
			return err
		}
	}
	return nil
}

func (s *storage[V]) Clean(ctx context.Context, cond Conditions) error {
	if cond.All {
		if err := s.be.Flush(ctx); err != nil {
			return fmt.Errorf("tagcache: flush: %w", err)
		}
		s.log.Info("backing store flushed", nil)
		return nil
	}
	if s.journal == nil {
		s.log.Debug("clean ignored: no journal", Fields{"tags": len(cond.Tags)})
		return nil
	}

	res, jerr := s.journal.Clean(ctx, cond)
	if res.Everything || len(res.Keys) == 0 {
		return jerr
	}
	if err := s.be.Del(ctx, res.Keys...); err != nil {
		return errors.Join(jerr, fmt.Errorf("tagcache: delete cleaned entries: %w", err))
	}
	s.log.Debug("entries cleaned", Fields{"count": len(res.Keys)})
	return jerr
}

func (s *storage[V]) Lock(ctx context.Context, key string) error {
	return s.locker.Lock(ctx, key)
}

func (s *storage[V]) Unlock(ctx context.Context, key string) error {
	return s.locker.Unlock(ctx, key)
}

// readMeta returns the metadata of a caller key. Missing and corrupt
// records both report ok=false.
func (s *storage[V]) readMeta(ctx context.Context, key string) (record.Meta, bool, error) {
	raw, ok, err := s.be.Get(ctx, s.entryKey(key))
	if err != nil || !ok {
		return record.Meta{}, false, err
	}
	m, _, err := record.Decode(raw)
	if err != nil {
		return record.Meta{}, false, nil
	}
	return m, true, nil
}

func (s *storage[V]) entryKey(key string) string {
	return keys.Entry(s.ns, key)
}
