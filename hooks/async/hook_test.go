package asynchook

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/unkn0wn-root/tagcache"
)

type recorder struct {
	tagcache.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (r *recorder) add(s string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *recorder) Evicted(k, reason string)               { r.add("evicted " + k + " " + reason) }
func (r *recorder) WriteFailed(k string, err error)        { r.add("write " + k + " " + err.Error()) }
func (r *recorder) JournalCleanFailed(k string, err error) { r.add("journal " + k) }

func TestForwardsAllEventsBeforeClose(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 2, 16)
	h.Evicted("k1", tagcache.ReasonExpired)
	h.WriteFailed("k2", errors.New("boom"))
	h.JournalCleanFailed("k3", errors.New("x"))
	h.SlidingRefreshFailed("k4", errors.New("y")) // NopHooks on the recorder
	h.Close()

	sort.Strings(rec.events)
	want := []string{"evicted k1 expired", "journal k3", "write k2 boom"}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
	if h.Dropped() != 0 {
		t.Fatalf("nothing should be dropped, got %d", h.Dropped())
	}
}

func TestDropsWhenQueueFull(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	h := New(rec, 1, 1)

	// worker blocks on the first event; the queue holds one more
	for i := 0; i < 10; i++ {
		h.Evicted("k", tagcache.ReasonCorrupt)
	}
	close(rec.block)
	h.Close()

	if got := len(rec.events) + int(h.Dropped()); got != 10 {
		t.Fatalf("delivered+dropped = %d, want 10", got)
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
}

func TestAfterCloseIsDropped(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 0, 0)
	h.Close()
	h.Close() // idempotent
	h.Evicted("k", tagcache.ReasonDecode)
	if len(rec.events) != 0 || h.Dropped() != 1 {
		t.Fatalf("events=%v dropped=%d", rec.events, h.Dropped())
	}
}
