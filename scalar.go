package typical

import (
	"fmt"
	"reflect"
	"sync"
)

// ScalarValue is the two-method contract for extended leaf value types.
// Types satisfying it (on a pointer receiver for DecodePrimitive) register
// as opaque scalars: the compiler constructs them from a primitive and
// reduces them back to one, treating everything in between as a black box.
type ScalarValue interface {
	// DecodePrimitive populates the receiver from a JSON-safe primitive.
	DecodePrimitive(raw any) error

	// EncodePrimitive reduces the value to a JSON-safe primitive.
	EncodePrimitive() (any, error)
}

// scalarCodec is a registered encode/decode pair for a leaf type.
type scalarCodec struct {
	decode func(raw any) (any, error)
	encode func(v any) (any, error)
}

var (
	scalarMu  sync.RWMutex
	scalars   = make(map[reflect.Type]scalarCodec)
	scalarIfc = reflect.TypeOf((*ScalarValue)(nil)).Elem()
)

// RegisterScalar registers an extended leaf type by explicit encode/decode
// functions. decode receives a JSON-safe primitive and returns a value
// assignable to rt; encode performs the reverse. Registration must happen
// before the first resolution of any type using rt.
func RegisterScalar(rt reflect.Type, decode func(raw any) (any, error), encode func(v any) (any, error)) {
	scalarMu.Lock()
	defer scalarMu.Unlock()
	scalars[rt] = scalarCodec{decode: decode, encode: encode}
}

// lookupScalar returns the codec for a registered or contract-implementing
// leaf type, and whether the type is an extended scalar at all.
func lookupScalar(rt reflect.Type) (scalarCodec, bool) {
	scalarMu.RLock()
	c, ok := scalars[rt]
	scalarMu.RUnlock()
	if ok {
		return c, true
	}
	if reflect.PointerTo(rt).Implements(scalarIfc) {
		return scalarCodec{
			decode: func(raw any) (any, error) {
				pv := reflect.New(rt)
				if err := pv.Interface().(ScalarValue).DecodePrimitive(raw); err != nil {
					return nil, err
				}
				return pv.Elem().Interface(), nil
			},
			encode: func(v any) (any, error) {
				pv := reflect.New(rt)
				pv.Elem().Set(reflect.ValueOf(v))
				return pv.Interface().(ScalarValue).EncodePrimitive()
			},
		}, true
	}
	return scalarCodec{}, false
}

// enum registry: named Go types declared as closed member sets.

var (
	enumMu    sync.RWMutex
	enumTypes = make(map[reflect.Type]*EnumType)
)

// RegisterEnum registers an enum declaration so that its backing Go type is
// classified as an Enum wherever it appears. Returns an error if the type
// was already registered with a different member set.
func RegisterEnum(e *EnumType) error {
	enumMu.Lock()
	defer enumMu.Unlock()
	if prev, ok := enumTypes[e.typ]; ok && prev != e {
		if fmt.Sprintf("%v", prev.members) != fmt.Sprintf("%v", e.members) {
			return &ResolutionError{
				Symbol: e.typ.String(),
				Reason: "enum registered twice with conflicting members",
			}
		}
	}
	enumTypes[e.typ] = e
	return nil
}

// lookupEnum returns the enum declaration for rt, if registered.
func lookupEnum(rt reflect.Type) (*EnumType, bool) {
	enumMu.RLock()
	defer enumMu.RUnlock()
	e, ok := enumTypes[rt]
	return e, ok
}
