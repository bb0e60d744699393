package typical

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Kind identifies the shape of an Annotation node. The set is closed:
// everything downstream of the normalizer switches exhaustively over it.
type Kind uint8

const (
	// KindInvalid is the zero value and never appears in a resolved tree.
	KindInvalid Kind = iota

	// KindScalar is a leaf value: builtins, time.Time, uuid.UUID, and
	// registered extended scalars.
	KindScalar

	// KindOptional wraps a nullable inner annotation (pointer types).
	KindOptional

	// KindCollection is an ordered sequence with a single element shape.
	KindCollection

	// KindMapping is a keyed container with homogeneous key/value shapes.
	KindMapping

	// KindStruct is a composite with a fixed, ordered, named field set.
	KindStruct

	// KindEnum is a closed set of named member values.
	KindEnum

	// KindUnion is a choice of two or more member shapes.
	KindUnion

	// KindLiteral is a closed set of allowed primitive values.
	KindLiteral

	// KindRecursive is a non-owning back-reference to an in-progress
	// ancestor, patched once that ancestor finishes building.
	KindRecursive
)

var kindNames = map[Kind]string{
	KindInvalid:    "invalid",
	KindScalar:     "scalar",
	KindOptional:   "optional",
	KindCollection: "collection",
	KindMapping:    "mapping",
	KindStruct:     "struct",
	KindEnum:       "enum",
	KindUnion:      "union",
	KindLiteral:    "literal",
	KindRecursive:  "recursive",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Annotation is a normalized, language-independent description of one type
// occurrence. Annotations are built once per distinct type during resolution
// and are immutable thereafter; Recursive nodes hold a reference that is
// patched in place when the referenced ancestor completes.
type Annotation struct {
	Kind Kind
	// Type is the concrete Go type the node describes. Nil for descriptor
	// shapes (unions, literals) that have no single Go representation.
	Type reflect.Type
	// Name is a stable display name used in errors and schema output.
	Name string

	// Inner is the wrapped annotation for Optional nodes.
	Inner *Annotation
	// Elem is the element annotation for Collection nodes.
	Elem *Annotation
	// Key and Value are the entry annotations for Mapping nodes.
	Key   *Annotation
	Value *Annotation
	// Fields is the ordered field set for Struct nodes.
	Fields []Field
	// Members is the name/value member set for Enum nodes.
	Members []EnumMember
	// Variants holds Union members in declaration order.
	Variants []*Annotation
	// Discriminator is non-nil for tagged unions.
	Discriminator *Discriminator
	// Values holds the allowed values for Literal nodes.
	Values []any

	// Ref is the patched target of a Recursive node. It points into the
	// same annotation graph and is never owned by this node.
	Ref *Annotation
	// proto carries the stub Protocol for cross-resolution recursion, when
	// a deferred reference lands on a key still under construction.
	proto *Protocol
	// ready is non-nil when proto is being built by another goroutine; it
	// closes when that build completes. References within one resolution
	// chain leave it nil, since the chain patches the stub before returning.
	ready <-chan struct{}
}

// Field is one ordered (name, annotation, default) triple of a Struct.
type Field struct {
	// Name is the Go field name.
	Name string
	// Alias is the wire name after tag renames; defaults to Name.
	Alias string
	// Index is the reflect access path into the struct.
	Index []int
	// Type is the normalized field annotation.
	Type *Annotation
	// Default is the baked default value, already coerced to the field's
	// Go type. Consulted when input omits the field.
	Default    any
	HasDefault bool
	// Literal is the fixed value declared via the `literal` tag, used for
	// union discriminator detection. Nil when absent.
	Literal any
	// constraintSpec is the raw `constraint` tag text, compiled later.
	constraintSpec string
	// Excluded marks fields renamed to "-", skipped on both directions.
	Excluded bool
}

// EnumMember is a single name/value pair of an Enum.
type EnumMember struct {
	Name  string
	Value any
}

// Discriminator records O(1) dispatch metadata for a tagged union: the
// shared field's wire name and the literal-value → variant index table.
type Discriminator struct {
	Field   string
	Mapping map[any]int
}

// describe renders a short human description of the annotation for errors.
func (a *Annotation) describe() string {
	if a == nil {
		return "<nil>"
	}
	switch a.Kind {
	case KindScalar, KindStruct, KindEnum:
		if a.Name != "" {
			return a.Name
		}
		if a.Type != nil {
			return a.Type.String()
		}
		return a.Kind.String()
	case KindOptional:
		return "optional " + a.Inner.describe()
	case KindCollection:
		return "collection of " + a.Elem.describe()
	case KindMapping:
		return "mapping of " + a.Key.describe() + " to " + a.Value.describe()
	case KindUnion:
		parts := make([]string, len(a.Variants))
		for i, v := range a.Variants {
			parts[i] = v.describe()
		}
		return "union[" + strings.Join(parts, "|") + "]"
	case KindLiteral:
		return fmt.Sprintf("literal%v", a.Values)
	case KindRecursive:
		if a.Ref != nil {
			return a.Ref.Name
		}
		if a.proto != nil {
			return a.proto.typeName
		}
		return "recursive"
	default:
		return a.Kind.String()
	}
}

// Descriptor tokens. Go cannot spell unions, literal sets, enums, or strict
// wrappers in its type system, so these values stand in for type references
// wherever the resolver accepts a token.

// UnionType describes a union of two or more member tokens, tried in
// declaration order unless a discriminator is detected.
type UnionType struct {
	members []any
}

// UnionOf declares a union over the given member tokens. Member order is
// significant for generic dispatch: first declared, first tried.
func UnionOf(members ...any) *UnionType {
	return &UnionType{members: members}
}

// LiteralType describes a closed set of allowed primitive values.
type LiteralType struct {
	values []any
}

// LiteralOf declares a literal set. A nil member collapses the set into
// Optional(Literal(rest)).
func LiteralOf(values ...any) *LiteralType {
	return &LiteralType{values: values}
}

// EnumType describes a closed set of named member values backed by a
// concrete Go type.
type EnumType struct {
	name    string
	typ     reflect.Type
	members []EnumMember
}

// EnumOf declares an enum over a named Go type. Members are ordered by name
// for determinism.
func EnumOf[T comparable](name string, members map[string]T) *EnumType {
	ms := make([]EnumMember, 0, len(members))
	for n, v := range members {
		ms = append(ms, EnumMember{Name: n, Value: v})
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
	return &EnumType{name: name, typ: reflect.TypeFor[T](), members: ms}
}

// StrictType wraps another token, forcing strict-mode policies for the
// protocol compiled from it.
type StrictType struct {
	inner any
}

// StrictOf wraps a token in strict mode: primitives validate their raw input
// instead of coercing it, user-defined types validate before parsing.
func StrictOf(token any) *StrictType {
	return &StrictType{inner: token}
}

// DeferredType is a forward reference by name, resolved against the declared
// namespace when the annotation is built.
type DeferredType struct {
	name string
}

// DeferredOf declares a forward reference to a type registered under name.
func DeferredOf(name string) *DeferredType {
	return &DeferredType{name: name}
}

// tokenID renders a canonical identity string for descriptor tokens so that
// equivalent descriptors share a cache key. Plain reflect.Type tokens use
// the type itself for identity and return "".
func tokenID(token any) string {
	switch t := token.(type) {
	case *UnionType:
		parts := make([]string, len(t.members))
		for i, m := range t.members {
			parts[i] = memberID(m)
		}
		return "union(" + strings.Join(parts, "|") + ")"
	case *LiteralType:
		parts := make([]string, len(t.values))
		for i, v := range t.values {
			parts[i] = fmt.Sprintf("%T:%v", v, v)
		}
		return "literal(" + strings.Join(parts, "|") + ")"
	case *EnumType:
		return "enum(" + t.name + ")"
	case *StrictType:
		return "strict(" + memberID(t.inner) + ")"
	case *DeferredType:
		return "deferred(" + t.name + ")"
	default:
		return ""
	}
}

func memberID(token any) string {
	if token == nil {
		return "null"
	}
	if id := tokenID(token); id != "" {
		return id
	}
	if rt, ok := token.(reflect.Type); ok {
		return rt.String()
	}
	return reflect.TypeOf(token).String()
}

// tokenType returns the reflect.Type identity component of a token, nil for
// descriptor tokens.
func tokenType(token any) reflect.Type {
	if rt, ok := token.(reflect.Type); ok {
		return rt
	}
	switch token.(type) {
	case *UnionType, *LiteralType, *EnumType, *StrictType, *DeferredType:
		return nil
	}
	return reflect.TypeOf(token)
}
