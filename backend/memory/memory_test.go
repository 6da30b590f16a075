package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/unkn0wn-root/tagcache/backend"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTest() (*Memory, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	return New(Options{Now: c.Now}), c
}

func TestSetGetTTL(t *testing.T) {
	ctx := context.Background()
	m, clk := newTest()

	if err := m.Set(ctx, "k", []byte("v"), time.Second); err != nil {
		t.Fatal(err)
	}
	if b, ok, _ := m.Get(ctx, "k"); !ok || string(b) != "v" {
		t.Fatalf("Get before expiry: ok=%v b=%q", ok, b)
	}
	if ttl, ok := m.TTL("k"); !ok || ttl != time.Second {
		t.Fatalf("TTL = %v %v", ttl, ok)
	}
	clk.Advance(time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("value should be expired")
	}
}

func TestExpireRefreshes(t *testing.T) {
	ctx := context.Background()
	m, clk := newTest()

	_ = m.Set(ctx, "k", []byte("v"), 2*time.Second)
	clk.Advance(1500 * time.Millisecond)
	if err := m.Expire(ctx, "k", 2*time.Second); err != nil {
		t.Fatal(err)
	}
	clk.Advance(1500 * time.Millisecond)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatalf("refreshed value expired early")
	}
	if err := m.Expire(ctx, "missing", time.Second); err != nil {
		t.Fatalf("Expire on missing key: %v", err)
	}
	_ = m.Expire(ctx, "k", 0)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatalf("non-positive Expire must delete")
	}
}

func TestSetCopiesInput(t *testing.T) {
	ctx := context.Background()
	m, _ := newTest()
	in := []byte("abc")
	_ = m.Set(ctx, "k", in, 0)
	in[0] = 'X'
	if b, _, _ := m.Get(ctx, "k"); string(b) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", b)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m, _ := newTest()
	_ = m.Set(ctx, "k", []byte("hello"), 0)

	b, _, _ := m.Get(ctx, "k")
	b[0] = 'J'
	many, _ := m.MGet(ctx, "k")
	many[0][1] = 'E'

	if got, _, _ := m.Get(ctx, "k"); string(got) != "hello" {
		t.Fatalf("read result aliased stored value: %q", got)
	}
}

func TestMGetAligned(t *testing.T) {
	ctx := context.Background()
	m, _ := newTest()
	_ = m.Set(ctx, "a", []byte("1"), 0)
	_ = m.Set(ctx, "c", []byte("3"), 0)

	got, err := m.MGet(ctx, "a", "b", "c", "a")
	if err != nil {
		t.Fatal(err)
	}
	want := [][]byte{[]byte("1"), nil, []byte("3"), []byte("1")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MGet (-want +got):\n%s", diff)
	}
}

func TestAtomicSetsAndSortedSets(t *testing.T) {
	ctx := context.Background()
	m, _ := newTest()

	err := m.Atomic(ctx, func(b backend.Batch) {
		b.SAdd("s", "x", "y")
		b.SAdd("s") // dropped
		b.ZAdd("z", "low", -5)
		b.ZAdd("z", "mid", 5)
		b.ZAdd("z", "high", 50)
	})
	if err != nil {
		t.Fatal(err)
	}
	members, _ := m.SMembers(ctx, "s")
	if diff := cmp.Diff([]string{"x", "y"}, members); diff != "" {
		t.Fatalf("SMembers (-want +got):\n%s", diff)
	}
	got, _ := m.ZRangeByScore(ctx, "z", backend.MinScore, 5)
	if diff := cmp.Diff([]string{"low", "mid"}, got); diff != "" {
		t.Fatalf("ZRangeByScore (-want +got):\n%s", diff)
	}

	_ = m.Atomic(ctx, func(b backend.Batch) {
		b.SRem("s", "x", "y")
		b.ZRem("z", "low", "mid", "high")
	})
	if keys, _ := m.Keys(ctx, ""); len(keys) != 0 {
		t.Fatalf("emptied sets should disappear, keys=%v", keys)
	}
}

func TestKeysByPrefixAndFlush(t *testing.T) {
	ctx := context.Background()
	m, clk := newTest()

	_ = m.Set(ctx, "ns:a", []byte("1"), 0)
	_ = m.Set(ctx, "ns:gone", []byte("1"), time.Millisecond)
	_ = m.Set(ctx, "other:b", []byte("1"), 0)
	_ = m.Atomic(ctx, func(b backend.Batch) {
		b.SAdd("ns:s", "m")
		b.ZAdd("ns:z", "m", 1)
	})
	clk.Advance(time.Second)

	keys, err := m.Keys(ctx, "ns:")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ns:a", "ns:s", "ns:z"}, keys); diff != "" {
		t.Fatalf("Keys (-want +got):\n%s", diff)
	}

	if err := m.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if keys, _ := m.Keys(ctx, ""); len(keys) != 0 {
		t.Fatalf("Flush left keys: %v", keys)
	}
}

func TestDelRemovesAnyType(t *testing.T) {
	ctx := context.Background()
	m, _ := newTest()
	_ = m.Set(ctx, "v", []byte("1"), 0)
	_ = m.Atomic(ctx, func(b backend.Batch) { b.SAdd("s", "m"); b.ZAdd("z", "m", 1) })

	if err := m.Del(ctx, "v", "s", "z", "missing"); err != nil {
		t.Fatal(err)
	}
	if err := m.Del(ctx); err != nil {
		t.Fatalf("Del with no keys: %v", err)
	}
	if keys, _ := m.Keys(ctx, ""); len(keys) != 0 {
		t.Fatalf("Del left keys: %v", keys)
	}
}
