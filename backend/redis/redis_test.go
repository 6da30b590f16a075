package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/unkn0wn-root/tagcache/backend"
)

func newTestBackend(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	r, err := New(Config{Client: rdb, CloseClient: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r, mr
}

func TestNewRejectsNilClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestGetMissAndHit(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestBackend(t)

	if b, ok, err := r.Get(ctx, "k"); err != nil || ok || b != nil {
		t.Fatalf("miss expected, got ok=%v err=%v b=%q", ok, err, b)
	}
	if err := r.Set(ctx, "k", []byte("v\x00bin"), 0); err != nil {
		t.Fatal(err)
	}
	if b, ok, err := r.Get(ctx, "k"); err != nil || !ok || string(b) != "v\x00bin" {
		t.Fatalf("hit expected, got ok=%v err=%v b=%q", ok, err, b)
	}
}

func TestSetTTLAndExpire(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestBackend(t)

	_ = r.Set(ctx, "k", []byte("v"), 10*time.Second)
	if ttl := mr.TTL("k"); ttl != 10*time.Second {
		t.Fatalf("TTL after Set = %v", ttl)
	}
	mr.FastForward(8 * time.Second)
	if err := r.Expire(ctx, "k", 10*time.Second); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(8 * time.Second)
	if !mr.Exists("k") {
		t.Fatalf("refreshed key expired early")
	}
	mr.FastForward(3 * time.Second)
	if mr.Exists("k") {
		t.Fatalf("key should have expired")
	}
}

func TestMGetAligned(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestBackend(t)
	_ = r.Set(ctx, "a", []byte("1"), 0)

	got, err := r.MGet(ctx, "a", "missing", "a")
	if err != nil {
		t.Fatal(err)
	}
	want := [][]byte{[]byte("1"), nil, []byte("1")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MGet (-want +got):\n%s", diff)
	}
	if got, err := r.MGet(ctx); err != nil || len(got) != 0 {
		t.Fatalf("MGet with no keys: %v %v", got, err)
	}
}

func TestAtomicBatch(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestBackend(t)

	err := r.Atomic(ctx, func(b backend.Batch) {
		b.SAdd("s", "x", "y")
		b.SAdd("s") // no members: skipped instead of a server error
		b.ZAdd("z", "a", 1)
		b.ZAdd("z", "b", 7)
		b.Del()
	})
	if err != nil {
		t.Fatalf("Atomic: %v", err)
	}
	members, _ := r.SMembers(ctx, "s")
	if len(members) != 2 {
		t.Fatalf("SMembers = %v", members)
	}
	got, err := r.ZRangeByScore(ctx, "z", backend.MinScore, 5)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Fatalf("ZRangeByScore (-want +got):\n%s", diff)
	}
	all, _ := r.ZRangeByScore(ctx, "z", backend.MinScore, backend.MaxScore)
	if len(all) != 2 {
		t.Fatalf("open range = %v", all)
	}

	if err := r.Atomic(ctx, func(backend.Batch) {}); err != nil {
		t.Fatalf("empty Atomic: %v", err)
	}
}

func TestKeysByPrefixAndFlush(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestBackend(t)

	_ = r.Set(ctx, "ns:a", []byte("1"), 0)
	_ = r.Set(ctx, "nsx:a", []byte("1"), 0)
	_ = r.Atomic(ctx, func(b backend.Batch) { b.SAdd("ns:s", "m") })

	keys, err := r.Keys(ctx, "ns:")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ns:a", "ns:s"}, keys, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("Keys (-want +got):\n%s", diff)
	}

	if err := r.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if keys, _ := r.Keys(ctx, ""); len(keys) != 0 {
		t.Fatalf("Flush left %v", keys)
	}
}

func TestDelNoKeys(t *testing.T) {
	r, _ := newTestBackend(t)
	if err := r.Del(context.Background()); err != nil {
		t.Fatalf("Del with no keys: %v", err)
	}
}

func TestEscapeGlob(t *testing.T) {
	cases := map[string]string{
		"plain":  "plain",
		"a*b":    `a\*b`,
		`x[y]?\`: `x\[y\]\?\\`,
	}
	for in, want := range cases {
		if got := escapeGlob(in); got != want {
			t.Fatalf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}
