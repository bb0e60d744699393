package typical

// Override interfaces allow types to bypass compiled protocol routines.
// When a type implements one of these interfaces, the protocol compiler
// calls the interface method instead of the generated routine for that node.
//
// This serves two purposes:
// 1. Custom logic: coercions that cannot be derived from the type's shape
// 2. Performance: hand-written paths for hot types
//
// Extended leaf value types use the ScalarValue contract in scalar.go
// instead; these interfaces are for composite types that own their whole
// wire representation.

// Deserializable bypasses the compiled deserializer for a type.
// DeserializeFrom is called on a fresh pointer receiver with the raw input
// after wire decoding; the populated value becomes the result.
type Deserializable interface {
	DeserializeFrom(raw any) error
}

// Serializable bypasses the compiled serializer for a type.
// SerializeInto must return a JSON-safe primitive: mapping, sequence,
// string, number, bool, or nil.
type Serializable interface {
	SerializeInto() (any, error)
}
