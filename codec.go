package typical

import "encoding/json"

// Codec provides content-type aware wire decoding for Deserialize and
// encoding for callers that want marshaled output. Protocols decode []byte
// and string input through their codec before running the compiled
// deserializer; the codec's content type participates in the resolver cache
// key, so the same type under different codecs yields distinct Protocols.
type Codec interface {
	// ContentType returns the MIME type for this codec (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}

// jsonCodec is the default wire codec. The codec/json subpackage exposes the
// same behavior as a typical.Codec for explicit selection.
type jsonCodec struct{}

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// defaultCodec returns the codec used when none is configured.
func defaultCodec() Codec { return jsonCodec{} }
