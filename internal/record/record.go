// Package record is the stored form of a cache entry:
//
//	<metadata JSON> 0x00 <payload>
//
// The metadata is compact JSON produced with escaping of control bytes, so
// the first NUL byte always ends it.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"

	"github.com/unkn0wn-root/tagcache/callback"
	"github.com/unkn0wn-root/tagcache/codec"
	"github.com/unkn0wn-root/tagcache/internal/keys"
)

var ErrCorrupt = errors.New("tagcache: corrupt entry")

// Meta is the metadata half of a record.
type Meta struct {
	// Time is the version marker compared by dependents.
	Time string `json:"time"`
	// Expire is an absolute deadline in unix milliseconds.
	Expire int64 `json:"expire,omitempty"`
	// Delta is the sliding window in milliseconds.
	Delta int64 `json:"delta,omitempty"`
	// Items maps dependent caller keys to their Time at write (nil if absent).
	Items     map[string]*string  `json:"di,omitempty"`
	Callbacks []callback.Callback `json:"callbacks,omitempty"`
	Codec     codec.Meta          `json:"codec,omitempty"`
}

var seq atomic.Uint64

// NewVersion returns a version marker for a write at now. Markers differ
// between writes in one process even when now does not move.
func NewVersion(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 10) + "." + strconv.FormatUint(seq.Add(1), 10)
}

// Sliding reports whether the entry renews its TTL on every verification.
func (m *Meta) Sliding() bool { return m.Delta > 0 }

// Expired reports whether an absolute deadline has passed at now.
func (m *Meta) Expired(now time.Time) bool {
	return m.Expire != 0 && m.Expire < now.UnixMilli()
}

func Encode(m Meta, payload []byte) ([]byte, error) {
	if m.Expire != 0 && m.Delta != 0 {
		return nil, fmt.Errorf("record: expire and delta are exclusive")
	}
	head, err := sonic.ConfigStd.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("record: encode meta: %w", err)
	}
	out := make([]byte, 0, len(head)+1+len(payload))
	out = append(out, head...)
	out = append(out, keys.Separator...)
	out = append(out, payload...)
	return out, nil
}

func Decode(b []byte) (Meta, []byte, error) {
	var m Meta
	i := bytes.IndexByte(b, keys.Separator[0])
	if i <= 0 {
		return m, nil, ErrCorrupt
	}
	if err := sonic.ConfigStd.Unmarshal(b[:i], &m); err != nil {
		return m, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if m.Time == "" {
		return m, nil, ErrCorrupt
	}
	return m, b[i+1:], nil
}
