// Package json provides the JSON wire codec. It is the default: Resolve
// uses JSON when no codec option is given, so importing this package is only
// necessary for explicit selection alongside other codecs.
package json

import (
	"encoding/json"

	"github.com/seandstewart/typical"
)

type codec struct{}

// New returns a JSON codec.
func New() typical.Codec {
	return codec{}
}

func (codec) ContentType() string {
	return "application/json"
}

func (codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
