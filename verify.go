package tagcache

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/unkn0wn-root/tagcache/internal/record"
)

// verify checks an entry read under key. Failed checks evict the entry and
// report false. path holds the caller keys verified above this one.
//
// Order: sliding renewal or absolute expiration, callbacks, then dependent
// items (recursively).
func (s *storage[V]) verify(ctx context.Context, key string, meta record.Meta, path []string) (bool, error) {
	sk := s.entryKey(key)
	path = append(path[:len(path):len(path)], key)

	if meta.Sliding() {
		if err := s.be.Expire(ctx, sk, msDuration(meta.Delta)); err != nil {
			s.hooks.SlidingRefreshFailed(sk, err)
			s.log.Warn("sliding refresh failed", Fields{"key": sk, "err": err})
		}
	} else if meta.Expired(s.now()) {
		s.evict(ctx, sk, ReasonExpired)
		return false, nil
	}

	if len(meta.Callbacks) > 0 {
		if s.validator == nil {
			return false, ErrValidatorRequired // cannot judge; keep the entry
		}
		ok, err := s.validator.Validate(ctx, meta.Callbacks)
		if err != nil {
			return false, err
		}
		if !ok {
			s.evict(ctx, sk, ReasonCallback)
			return false, nil
		}
	}

	for _, item := range slices.Sorted(maps.Keys(meta.Items)) {
		if slices.Contains(path, item) {
			s.evict(ctx, sk, ReasonCycle)
			return false, nil
		}
		if len(path) >= s.maxDepth {
			s.evict(ctx, sk, ReasonDepth)
			return false, nil
		}

		dep, ok, err := s.readMeta(ctx, item)
		if err != nil {
			return false, err
		}
		if !sameVersion(meta.Items[item], dep, ok) {
			s.evict(ctx, sk, ReasonDependency)
			return false, nil
		}
		if !ok {
			continue // absent at write, still absent
		}
		valid, err := s.verify(ctx, item, dep, path)
		if err != nil {
			return false, err
		}
		if !valid {
			s.evict(ctx, sk, ReasonDependency)
			return false, nil
		}
	}

	return true, nil
}

// sameVersion compares the marker recorded at write with the dependent's
// current state.
func sameVersion(recorded *string, current record.Meta, exists bool) bool {
	if recorded == nil || !exists {
		return recorded == nil && !exists
	}
	return *recorded == current.Time
}

func (s *storage[V]) evict(ctx context.Context, sk, reason string) {
	s.hooks.Evicted(sk, reason)
	s.log.Debug("entry evicted", Fields{"key": sk, "reason": reason})
	if err := s.remove(ctx, sk); err != nil {
		s.log.Warn("evict failed", Fields{"key": sk, "err": err})
	}
}

func msDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
