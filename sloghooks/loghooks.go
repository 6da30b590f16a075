package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/tagcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	EvictedEvery uint64
	SlidingEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	evictedCtr atomic.Uint64
	slidingCtr atomic.Uint64
}

var _ tagcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Evicted(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.EvictedEvery, &h.evictedCtr) {
		return
	}
	h.l.Debug("tagcache.evicted",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) SlidingRefreshFailed(storageKey string, err error) {
	if h.l == nil || !sample(h.opts.SlidingEvery, &h.slidingCtr) {
		return
	}
	h.l.Warn("tagcache.sliding_refresh_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) WriteFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("tagcache.write_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) JournalCleanFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("tagcache.journal_clean_failed",
		"key", h.redact(storageKey),
		"err", err)
}
