// Package memory is an in-process backend.Backend.
//
// It mirrors the Redis semantics tagcache relies on (string values with TTL,
// sets, sorted sets, all-or-nothing batches) so a single process can run the
// full store and journal without a server. Expired values are dropped lazily
// on access.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/tagcache/backend"
)

type value struct {
	b   []byte
	exp time.Time // zero => no TTL
}

type Options struct {
	Now func() time.Time // nil => time.Now
}

type Memory struct {
	mu    sync.Mutex
	now   func() time.Time
	vals  map[string]value
	sets  map[string]map[string]struct{}
	zsets map[string]map[string]int64
}

var _ backend.Backend = (*Memory)(nil)

func New(opts Options) *Memory {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:   now,
		vals:  make(map[string]value),
		sets:  make(map[string]map[string]struct{}),
		zsets: make(map[string]map[string]int64),
	}
}

// live returns the value for key, dropping it when its TTL has passed.
// Caller holds mu.
func (m *Memory) live(key string) (value, bool) {
	v, ok := m.vals[key]
	if !ok {
		return value{}, false
	}
	if !v.exp.IsZero() && !m.now().Before(v.exp) {
		delete(m.vals, key)
		return value{}, false
	}
	return v, true
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v.b...), true, nil
}

func (m *Memory) MGet(_ context.Context, keys ...string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, k := range keys {
		if v, ok := m.live(k); ok {
			out[i] = append([]byte(nil), v.b...)
		}
	}
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, b []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	cp := append([]byte(nil), b...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delLocked(key)
	m.vals[key] = value{b: cp, exp: exp}
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delLocked(keys...)
	return nil
}

func (m *Memory) delLocked(keys ...string) {
	for _, k := range keys {
		delete(m.vals, k)
		delete(m.sets, k)
		delete(m.zsets, k)
	}
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.live(key)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		delete(m.vals, key) // same as redis: non-positive TTL deletes
		return nil
	}
	v.exp = m.now().Add(ttl)
	m.vals[key] = v
	return nil
}

// TTL reports the remaining lifetime of a value; ok=false when the key is
// missing or has no expiry.
func (m *Memory) TTL(key string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.live(key)
	if !ok || v.exp.IsZero() {
		return 0, false
	}
	return v.exp.Sub(m.now()), true
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.vals {
		if _, ok := m.live(k); ok && strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	for k := range m.sets {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	for k := range m.zsets {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals = make(map[string]value)
	m.sets = make(map[string]map[string]struct{})
	m.zsets = make(map[string]map[string]int64)
	return nil
}

func (m *Memory) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.sets[key]
	out := make([]string, 0, len(set))
	for member := range set {
		out = append(out, member)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) ZRangeByScore(_ context.Context, key string, min, max int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type scored struct {
		member string
		score  int64
	}
	var hits []scored
	for member, score := range m.zsets[key] {
		if score >= min && score <= max {
			hits = append(hits, scored{member, score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].member < hits[j].member
	})
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.member
	}
	return out, nil
}

// Atomic records the batch first and applies it under a single lock, so no
// reader observes a partial batch.
func (m *Memory) Atomic(_ context.Context, fn func(backend.Batch)) error {
	b := &batch{}
	fn(b)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range b.ops {
		op(m)
	}
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

type batch struct {
	ops []func(*Memory)
}

func (b *batch) SAdd(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.ops = append(b.ops, func(m *Memory) {
		set, ok := m.sets[key]
		if !ok {
			set = make(map[string]struct{}, len(members))
			m.sets[key] = set
		}
		for _, member := range members {
			set[member] = struct{}{}
		}
	})
}

func (b *batch) SRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.ops = append(b.ops, func(m *Memory) {
		set := m.sets[key]
		for _, member := range members {
			delete(set, member)
		}
		if len(set) == 0 {
			delete(m.sets, key)
		}
	})
}

func (b *batch) ZAdd(key, member string, score int64) {
	b.ops = append(b.ops, func(m *Memory) {
		z, ok := m.zsets[key]
		if !ok {
			z = make(map[string]int64)
			m.zsets[key] = z
		}
		z[member] = score
	})
}

func (b *batch) ZRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.ops = append(b.ops, func(m *Memory) {
		z := m.zsets[key]
		for _, member := range members {
			delete(z, member)
		}
		if len(z) == 0 {
			delete(m.zsets, key)
		}
	})
}

func (b *batch) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	b.ops = append(b.ops, func(m *Memory) { m.delLocked(keys...) })
}
