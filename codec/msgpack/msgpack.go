// Package msgpack provides a MessagePack wire codec backed by
// vmihailenco/msgpack.
package msgpack

import (
	"github.com/seandstewart/typical"
	"github.com/vmihailenco/msgpack/v5"
)

type codec struct{}

// New returns a MessagePack codec.
func New() typical.Codec {
	return codec{}
}

func (codec) ContentType() string {
	return "application/msgpack"
}

func (codec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
