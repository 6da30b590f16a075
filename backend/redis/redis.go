package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/tagcache/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

const scanCount = 1000

// Redis implements backend.Backend on a go-redis client.
//
// Atomic batches map to MULTI/EXEC. On Redis Cluster every key of one batch
// must hash to the same slot; give the storage and journal namespaces a
// common hash tag (e.g. "{app}.Storage" and "{app}.Journal") when clustering.
type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ backend.Backend = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (r *Redis) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
		case string:
			out[i] = []byte(vv)
		case []byte:
			out[i] = vv
		default:
			return nil, fmt.Errorf("redis mget: unexpected reply %T at %q", v, keys[i])
		}
	}
	return out, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 0 // no expiry
	}
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.rdb.PExpire(ctx, key, ttl).Err()
}

// Keys walks the keyspace with SCAN rather than KEYS so a large database
// is not blocked. On a cluster client every master is scanned.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	match := escapeGlob(prefix) + "*"

	if cc, ok := r.rdb.(*goredis.ClusterClient); ok {
		var (
			out []string
			mu  sync.Mutex
		)
		err := cc.ForEachMaster(ctx, func(ctx context.Context, c *goredis.Client) error {
			keys, err := scan(ctx, c, match)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, keys...)
			mu.Unlock()
			return nil
		})
		return out, err
	}
	return scan(ctx, r.rdb, match)
}

func scan(ctx context.Context, c goredis.Cmdable, match string) ([]string, error) {
	var out []string
	it := c.Scan(ctx, 0, match, scanCount).Iterator()
	for it.Next(ctx) {
		out = append(out, it.Val())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Redis) Flush(ctx context.Context) error {
	if cc, ok := r.rdb.(*goredis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, c *goredis.Client) error {
			return c.FlushDB(ctx).Err()
		})
	}
	return r.rdb.FlushDB(ctx).Err()
}

func (r *Redis) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.rdb.SMembers(ctx, key).Result()
}

func (r *Redis) ZRangeByScore(ctx context.Context, key string, min, max int64) ([]string, error) {
	return r.rdb.ZRangeByScore(ctx, key, &goredis.ZRangeBy{
		Min: scoreBound(min),
		Max: scoreBound(max),
	}).Result()
}

// Atomic runs fn against a MULTI/EXEC pipeline.
func (r *Redis) Atomic(ctx context.Context, fn func(backend.Batch)) error {
	_, err := r.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		fn(&batch{ctx: ctx, p: p})
		return nil
	})
	return err
}

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (r *Redis) Close(context.Context) error {
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type batch struct {
	ctx context.Context
	p   goredis.Pipeliner
}

func (b *batch) SAdd(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.p.SAdd(b.ctx, key, toArgs(members)...)
}

func (b *batch) SRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.p.SRem(b.ctx, key, toArgs(members)...)
}

// ZAdd stores score as a float64; callers keep it within ±2^53.
func (b *batch) ZAdd(key, member string, score int64) {
	b.p.ZAdd(b.ctx, key, goredis.Z{Score: float64(score), Member: member})
}

func (b *batch) ZRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	b.p.ZRem(b.ctx, key, toArgs(members)...)
}

func (b *batch) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	b.p.Del(b.ctx, keys...)
}

func toArgs(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func scoreBound(v int64) string {
	switch v {
	case backend.MinScore:
		return "-inf"
	case backend.MaxScore:
		return "+inf"
	default:
		return strconv.FormatInt(v, 10)
	}
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
