package codec

import "github.com/bytedance/sonic"

// JSON is the plain structural codec. It uses sonic's encoding/json
// compatible configuration, so `json` struct tags behave as usual.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V, _ Meta) ([]byte, error) { return sonic.ConfigStd.Marshal(v) }
func (JSON[V]) Decode(b []byte, _ Meta) (V, error) {
	var v V
	err := sonic.ConfigStd.Unmarshal(b, &v)
	return v, err
}
