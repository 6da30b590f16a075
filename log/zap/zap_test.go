package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/tagcache/log"
)

func TestFieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Warn("evict failed", log.Fields{"key": "s:k", "err": errors.New("boom")})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "tagcache" || e.Level != zapcore.WarnLevel || e.Message != "evict failed" {
		t.Fatalf("unexpected entry: %+v", e.Entry)
	}
	ctx := e.ContextMap()
	if ctx["key"] != "s:k" || ctx["err"] != "boom" {
		t.Fatalf("unexpected fields: %v", ctx)
	}
}

func TestNilFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	New(zap.New(core)).Debug("x", nil)
	if logs.Len() != 1 || len(logs.All()[0].Context) != 0 {
		t.Fatalf("expected one entry without fields")
	}
}
