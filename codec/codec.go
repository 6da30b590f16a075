// Package codec holds the payload strategies tagcache uses to turn values
// into stored bytes and back.
//
// A codec sees the entry metadata annotations (Meta) on both sides. Encode
// may record how the payload was produced (e.g. which compression was
// applied); Decode receives the same annotations read back from the store.
package codec

// Meta is the flat annotation map a codec persists next to the payload.
type Meta map[string]string

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(v V, meta Meta) ([]byte, error)
	Decode(b []byte, meta Meta) (V, error)
}
