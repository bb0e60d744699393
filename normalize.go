package typical

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/sentinel"
)

func init() {
	// Register serde tags with sentinel
	sentinel.Tag("typical")
	sentinel.Tag("literal")
	sentinel.Tag("constraint")
	sentinel.Tag("default")
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	uuidType   = reflect.TypeOf(uuid.UUID{})
	anyType    = reflect.TypeOf((*any)(nil)).Elem()
	stringType = reflect.TypeOf("")
)

// normalizer turns type tokens into canonical Annotation trees. One
// normalizer serves one resolution: the in-progress set keys cycle breaking
// by type identity within that build.
type normalizer struct {
	opts       *resolveOptions
	inProgress map[reflect.Type]*Annotation
	// resolveRef resolves a forward reference by name against the declared
	// namespace, returning the (possibly still building) Protocol for it and
	// a readiness channel when a foreign build is in flight.
	resolveRef func(name, enclosing string) (*Protocol, <-chan struct{}, error)
}

func newNormalizer(opts *resolveOptions, resolveRef func(name, enclosing string) (*Protocol, <-chan struct{}, error)) *normalizer {
	return &normalizer{
		opts:       opts,
		inProgress: make(map[reflect.Type]*Annotation),
		resolveRef: resolveRef,
	}
}

// normalize classifies a type token into an Annotation.
func (n *normalizer) normalize(token any, enclosing string) (*Annotation, error) {
	switch t := token.(type) {
	case nil:
		return nil, &ResolutionError{Symbol: "<nil>", Enclosing: enclosing, Reason: "nil type token"}
	case *StrictType:
		// Strictness is a resolution-level policy, handled by the resolver;
		// the annotation of a strict token is the annotation of its inner.
		return n.normalize(t.inner, enclosing)
	case *DeferredType:
		return n.normalizeDeferred(t, enclosing)
	case *UnionType:
		return n.normalizeUnion(t, enclosing)
	case *LiteralType:
		return n.normalizeLiteral(t, enclosing)
	case *EnumType:
		return enumAnnotation(t), nil
	case reflect.Type:
		return n.normalizeType(t, enclosing)
	default:
		return n.normalizeType(reflect.TypeOf(token), enclosing)
	}
}

// normalizeType classifies a concrete Go type.
func (n *normalizer) normalizeType(rt reflect.Type, enclosing string) (*Annotation, error) {
	if a, ok := n.inProgress[rt]; ok {
		return &Annotation{Kind: KindRecursive, Type: rt, Name: a.Name, Ref: a}, nil
	}
	if e, ok := lookupEnum(rt); ok {
		return enumAnnotation(e), nil
	}
	if _, ok := lookupScalar(rt); ok {
		return &Annotation{Kind: KindScalar, Type: rt, Name: rt.String()}, nil
	}
	switch rt {
	case timeType, uuidType:
		return &Annotation{Kind: KindScalar, Type: rt, Name: rt.String()}, nil
	}

	switch rt.Kind() {
	case reflect.Pointer:
		inner, err := n.normalizeType(rt.Elem(), enclosing)
		if err != nil {
			return nil, err
		}
		return &Annotation{Kind: KindOptional, Type: rt, Name: "*" + inner.Name, Inner: inner}, nil

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return &Annotation{Kind: KindScalar, Type: rt, Name: rt.String()}, nil

	case reflect.Slice, reflect.Array:
		if rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.Uint8 {
			// []byte is scalar bytes, not a collection.
			return &Annotation{Kind: KindScalar, Type: rt, Name: "bytes"}, nil
		}
		elem, err := n.normalizeType(rt.Elem(), enclosing)
		if err != nil {
			return nil, err
		}
		return &Annotation{Kind: KindCollection, Type: rt, Name: rt.String(), Elem: elem}, nil

	case reflect.Map:
		key, err := n.normalizeType(rt.Key(), enclosing)
		if err != nil {
			return nil, err
		}
		val, err := n.normalizeType(rt.Elem(), enclosing)
		if err != nil {
			return nil, err
		}
		return &Annotation{Kind: KindMapping, Type: rt, Name: rt.String(), Key: key, Value: val}, nil

	case reflect.Struct:
		return n.normalizeStruct(rt)

	case reflect.Interface:
		if rt.NumMethod() == 0 {
			return &Annotation{Kind: KindScalar, Type: anyType, Name: "any"}, nil
		}
		return nil, &ResolutionError{
			Symbol:    rt.String(),
			Enclosing: enclosing,
			Reason:    "interface types resolve only as declared unions",
		}

	default:
		return nil, &ResolutionError{
			Symbol:    rt.String(),
			Enclosing: enclosing,
			Reason:    "unsupported type kind " + rt.Kind().String(),
		}
	}
}

// normalizeStruct builds a Struct annotation with ordered field triples.
// The node enters the in-progress set before fields are walked so that
// self-references surface as Recursive placeholders instead of looping.
func (n *normalizer) normalizeStruct(rt reflect.Type) (*Annotation, error) {
	name := rt.Name()
	if name == "" {
		name = rt.String()
	}
	a := &Annotation{Kind: KindStruct, Type: rt, Name: name}
	n.inProgress[rt] = a
	defer delete(n.inProgress, rt)

	meta := structMetadata(rt)
	fields := make([]Field, 0, len(meta))
	for _, fm := range meta {
		f := Field{
			Name:  fm.Name,
			Alias: fm.Name,
			Index: fm.Index,
		}
		if alias, ok := fm.Tags["typical"]; ok {
			if alias == "-" {
				f.Excluded = true
			} else if alias != "" {
				f.Alias = alias
			}
		}
		fa, err := n.normalize(fm.Type, name)
		if err != nil {
			return nil, err
		}
		f.Type = fa
		if lit, ok := fm.Tags["literal"]; ok {
			v, err := parseTaggedValue(fm.Type, lit)
			if err != nil {
				return nil, &ResolutionError{
					Symbol:    fm.Name,
					Enclosing: name,
					Reason:    "invalid literal tag " + strconv.Quote(lit),
				}
			}
			f.Literal = v
			f.Default = v
			f.HasDefault = true
		}
		if def, ok := fm.Tags["default"]; ok {
			v, err := parseTaggedValue(fm.Type, def)
			if err != nil {
				return nil, &ResolutionError{
					Symbol:    fm.Name,
					Enclosing: name,
					Reason:    "invalid default tag " + strconv.Quote(def),
				}
			}
			f.Default = v
			f.HasDefault = true
		}
		// The settings provider is consulted once, here, at build time. Its
		// value is baked into the compiled protocol, not read per call.
		if n.opts != nil && n.opts.defaults != nil {
			if v, ok := n.opts.defaults.Default(fm.Name, f.Alias); ok {
				f.Default = v
				f.HasDefault = true
			}
		}
		if spec, ok := fm.Tags["constraint"]; ok {
			f.constraintSpec = spec
		}
		fields = append(fields, f)
	}
	a.Fields = fields
	return a, nil
}

// normalizeUnion classifies a union token, detecting a discriminator when
// every member is a struct carrying a shared literal-valued field.
func (n *normalizer) normalizeUnion(t *UnionType, enclosing string) (*Annotation, error) {
	members := make([]any, 0, len(t.members))
	nullable := false
	for _, m := range t.members {
		if m == nil {
			nullable = true
			continue
		}
		members = append(members, m)
	}
	if len(members) < 2 {
		return nil, &ResolutionError{
			Symbol:    tokenID(t),
			Enclosing: enclosing,
			Reason:    "a union requires at least two non-nil members",
		}
	}
	variants := make([]*Annotation, len(members))
	for i, m := range members {
		va, err := n.normalize(m, enclosing)
		if err != nil {
			return nil, err
		}
		variants[i] = va
	}
	a := &Annotation{
		Kind:          KindUnion,
		Name:          tokenID(t),
		Variants:      variants,
		Discriminator: detectDiscriminator(variants),
	}
	if nullable {
		return &Annotation{Kind: KindOptional, Name: "optional " + a.Name, Inner: a}, nil
	}
	return a, nil
}

// normalizeLiteral classifies a literal-set token. A nil member collapses
// the set into Optional(Literal(rest)).
func (n *normalizer) normalizeLiteral(t *LiteralType, enclosing string) (*Annotation, error) {
	values := make([]any, 0, len(t.values))
	nullable := false
	for _, v := range t.values {
		if v == nil {
			nullable = true
			continue
		}
		switch v.(type) {
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			values = append(values, v)
		default:
			return nil, &ResolutionError{
				Symbol:    tokenID(t),
				Enclosing: enclosing,
				Reason:    "literal members must be primitives",
			}
		}
	}
	if len(values) == 0 {
		return nil, &ResolutionError{
			Symbol:    tokenID(t),
			Enclosing: enclosing,
			Reason:    "a literal requires at least one non-nil value",
		}
	}
	a := &Annotation{Kind: KindLiteral, Name: tokenID(t), Values: values}
	if nullable {
		return &Annotation{Kind: KindOptional, Name: "optional " + a.Name, Inner: a}, nil
	}
	return a, nil
}

// normalizeDeferred resolves a forward reference against the declared
// namespace. The referenced type's protocol may still be under construction;
// the annotation then carries its stub, deferring dispatch to call time.
func (n *normalizer) normalizeDeferred(t *DeferredType, enclosing string) (*Annotation, error) {
	if n.resolveRef == nil {
		return nil, &ResolutionError{Symbol: t.name, Enclosing: enclosing, Reason: "no namespace available"}
	}
	p, ready, err := n.resolveRef(t.name, enclosing)
	if err != nil {
		return nil, err
	}
	return &Annotation{Kind: KindRecursive, Name: t.name, proto: p, ready: ready}, nil
}

// enumAnnotation renders an enum declaration as an Annotation.
func enumAnnotation(e *EnumType) *Annotation {
	return &Annotation{Kind: KindEnum, Type: e.typ, Name: e.name, Members: e.members}
}

// detectDiscriminator scans union members for a field carrying a unique
// fixed value across all members. Every member must be a struct and every
// member's value must be distinct; otherwise the union stays generic and
// members are tried in declaration order.
func detectDiscriminator(variants []*Annotation) *Discriminator {
	for _, v := range variants {
		if v.Kind != KindStruct {
			return nil
		}
	}
	// Candidate fields come from the first member, in declaration order.
	for _, cand := range variants[0].Fields {
		if cand.Literal == nil {
			continue
		}
		mapping := make(map[any]int, len(variants))
		ok := true
		for i, v := range variants {
			var lit any
			for _, f := range v.Fields {
				if f.Alias == cand.Alias && f.Literal != nil {
					lit = f.Literal
					break
				}
			}
			if lit == nil {
				ok = false
				break
			}
			key := canonKey(lit)
			if _, dup := mapping[key]; dup {
				ok = false
				break
			}
			mapping[key] = i
		}
		if ok {
			return &Discriminator{Field: cand.Alias, Mapping: mapping}
		}
	}
	return nil
}

// fieldMeta is the slice of struct field facts the normalizer consumes.
type fieldMeta struct {
	Name  string
	Index []int
	Type  reflect.Type
	Tags  map[string]string
}

// structMetadata reads field metadata for rt, preferring sentinel's scanned
// registry and falling back to a direct reflect walk for types sentinel has
// not seen.
func structMetadata(rt reflect.Type) []fieldMeta {
	if spec, ok := sentinel.Lookup(rt.String()); ok {
		out := make([]fieldMeta, 0, len(spec.Fields))
		for _, f := range spec.Fields {
			out = append(out, fieldMeta{
				Name:  f.Name,
				Index: f.Index,
				Type:  f.ReflectType,
				Tags:  f.Tags,
			})
		}
		return out
	}
	out := make([]fieldMeta, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		out = append(out, fieldMeta{
			Name:  sf.Name,
			Index: sf.Index,
			Type:  sf.Type,
			Tags:  parseSerdeTags(sf.Tag),
		})
	}
	return out
}

// parseSerdeTags extracts the serde tags from a struct tag.
func parseSerdeTags(tag reflect.StructTag) map[string]string {
	tags := make(map[string]string)
	for _, name := range []string{"typical", "literal", "constraint", "default"} {
		if val, ok := tag.Lookup(name); ok {
			tags[name] = val
		}
	}
	return tags
}

// parseTaggedValue parses a tag's string payload into a value typed for the
// field it annotates.
func parseTaggedValue(rt reflect.Type, raw string) (any, error) {
	switch rt.Kind() {
	case reflect.String:
		if rt == stringType {
			return raw, nil
		}
		return reflect.ValueOf(raw).Convert(rt).Interface(), nil
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(i).Convert(rt).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(u).Convert(rt).Interface(), nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(f).Convert(rt).Interface(), nil
	case reflect.Pointer:
		v, err := parseTaggedValue(rt.Elem(), raw)
		if err != nil {
			return nil, err
		}
		pv := reflect.New(rt.Elem())
		pv.Elem().Set(reflect.ValueOf(v))
		return pv.Interface(), nil
	default:
		return raw, nil
	}
}

// canonKey reduces a primitive to a canonical comparable form so that
// numerically equal discriminator values compare equal regardless of the
// concrete Go number type the wire decode produced.
func canonKey(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f)
		}
		return f
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	default:
		if !rv.IsValid() || !rv.Type().Comparable() {
			return fmt.Sprint(v)
		}
		return v
	}
}
