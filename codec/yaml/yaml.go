// Package yaml provides a YAML wire codec backed by gopkg.in/yaml.v3.
package yaml

import (
	"github.com/seandstewart/typical"
	"gopkg.in/yaml.v3"
)

type codec struct{}

// New returns a YAML codec.
func New() typical.Codec {
	return codec{}
}

func (codec) ContentType() string {
	return "application/yaml"
}

func (codec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
