// Package typical resolves Go types into cached serde protocols: compiled
// bundles of deserialization, serialization, and validation built once per
// (type, configuration) pair.
//
// Resolve a protocol and put it to work:
//
//	proto, err := typical.Resolve(User{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	v, err := proto.Deserialize([]byte(`{"name":"ada","age":36}`))
//
// Resolution walks the type with reflection exactly once, producing an
// Annotation tree, a parallel Constraint tree compiled from `constraint`
// struct tags, and closure-based deserialize/serialize routines. Every
// subsequent operation runs without touching reflection metadata again.
//
// Shapes Go cannot spell in its type system are declared with descriptor
// tokens: UnionOf for choice types, LiteralOf for closed value sets, EnumOf
// for named member sets, DeferredOf for forward references, and StrictOf to
// scope strict-mode policies to one resolution. Unions whose members share a
// `literal`-tagged field dispatch on it in constant time; otherwise members
// are tried in declaration order.
//
// By default input is coerced: "1" deserializes into an int field, numbers
// into strings, RFC 3339 text into time.Time. Strict mode, enabled per type
// with StrictOf or process-wide with StrictMode, validates the raw input
// against the target shape instead of bending it.
package typical
