package config

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/unkn0wn-root/tagcache/codec"
)

// Render turns a payload in the configured format into JSON for display.
// raw payloads are returned unchanged.
func (c *Config) Render(payload []byte) ([]byte, error) {
	var (
		v   any
		err error
	)
	switch c.Codec.Format {
	case "raw", "json":
		return payload, nil
	case "msgpack":
		v, err = codec.Msgpack[any]{}.Decode(payload, nil)
	case "cbor":
		var cc codec.CBOR[any]
		if cc, err = codec.NewCBOR[any](false); err == nil {
			v, err = cc.Decode(payload, nil)
		}
	default:
		return nil, fmt.Errorf("config: unknown codec format %q", c.Codec.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("config: decode %s payload: %w", c.Codec.Format, err)
	}
	return sonic.ConfigStd.Marshal(jsonable(v))
}

// jsonable rewrites maps with non-string keys, as produced by CBOR, so they
// can be marshaled as JSON objects.
func jsonable(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = jsonable(e)
		}
		return out
	case map[string]any:
		for k, e := range t {
			t[k] = jsonable(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = jsonable(e)
		}
		return t
	default:
		return v
	}
}
