package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBuf() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return l, &buf
}

func TestRedactsKeysByDefault(t *testing.T) {
	l, buf := newBuf()
	h := New(l, Options{})
	h.WriteFailed("tagcache.Storage:secret", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("raw key leaked: %s", out)
	}
	if !strings.Contains(out, "tagcache.write_failed") || !strings.Contains(out, "err=boom") {
		t.Fatalf("unexpected record: %s", out)
	}
}

func TestCustomRedactor(t *testing.T) {
	l, buf := newBuf()
	h := New(l, Options{Redact: func(k string) string { return "R(" + k + ")" }})
	h.Evicted("k", "cycle")
	if !strings.Contains(buf.String(), "key=R(k)") || !strings.Contains(buf.String(), "reason=cycle") {
		t.Fatalf("unexpected record: %s", buf.String())
	}
}

func TestEvictedSampling(t *testing.T) {
	l, buf := newBuf()
	h := New(l, Options{EvictedEvery: 3})
	for i := 0; i < 9; i++ {
		h.Evicted("k", "expired")
	}
	if n := strings.Count(buf.String(), "tagcache.evicted"); n != 3 {
		t.Fatalf("logged %d evictions, want 3", n)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.Evicted("k", "x")
	h.SlidingRefreshFailed("k", errors.New("x"))
	h.WriteFailed("k", errors.New("x"))
	h.JournalCleanFailed("k", errors.New("x"))
}
