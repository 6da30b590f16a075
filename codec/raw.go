package codec

// Bytes is an identity codec for []byte values.
type Bytes struct{}

var _ Codec[[]byte] = Bytes{}

func (Bytes) Encode(b []byte, _ Meta) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte, _ Meta) ([]byte, error) { return b, nil }

// String stores Go strings as their bytes. No UTF-8 validation.
type String struct{}

var _ Codec[string] = String{}

func (String) Encode(s string, _ Meta) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte, _ Meta) (string, error) { return string(b), nil }
