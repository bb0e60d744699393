package typical

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// coercer turns raw input into a typed value, accumulating the dotted path
// for error context.
type coercer func(raw any, path string) (any, error)

// serializer reduces a typed value to a JSON-safe primitive.
type serializer func(v any) (any, error)

// Protocol is a compiled, cached bundle of deserialize/serialize/validate
// operations for one (type, flags) pair. Protocols are created exactly once
// per key, shared, read-only, and live for the process lifetime; invoking
// any operation is O(1) in the number of resolved types.
type Protocol struct {
	annotation *Annotation
	constraint *Constraint
	flags      SerdeFlags
	codec      Codec
	strict     bool
	typeName   string

	de  coercer
	ser serializer
}

// Annotation returns the normalized type description the protocol was
// compiled from.
func (p *Protocol) Annotation() *Annotation { return p.annotation }

// Constraint returns the compiled constraint tree. Read-only: external
// consumers such as schema renderers must not mutate it.
func (p *Protocol) Constraint() *Constraint { return p.constraint }

// Flags returns the SerdeFlags the protocol was built with.
func (p *Protocol) Flags() SerdeFlags { return p.flags }

// TypeName returns the display name of the resolved type.
func (p *Protocol) TypeName() string { return p.typeName }

// Deserialize coerces raw input into a typed value. Accepted shapes: wire
// bytes for the protocol's codec, already-typed native values, plain
// mappings and sequences, and arbitrary foreign objects read field-by-field.
func (p *Protocol) Deserialize(raw any) (any, error) {
	start := time.Now()
	out, err := p.deserialize(raw)
	emitDeserializeComplete(context.Background(), p.typeName, p.codec.ContentType(), time.Since(start), err)
	return out, err
}

func (p *Protocol) deserialize(raw any) (any, error) {
	if p.de == nil {
		return nil, &DeserializeError{Expected: p.typeName, Value: raw, Path: "", Causes: nil}
	}
	if decoded, ok, err := p.decodeWire(raw); err != nil {
		return nil, err
	} else if ok {
		raw = decoded
	}
	return p.de(raw, "")
}

// decodeWire detects wire-encoded input. []byte and json.RawMessage always
// decode through the codec; a string decodes only when the target shape is
// composite, so string-shaped targets take the value verbatim.
func (p *Protocol) decodeWire(raw any) (any, bool, error) {
	var data []byte
	switch r := raw.(type) {
	case json.RawMessage:
		data = r
	case []byte:
		if p.annotation.Kind == KindScalar && p.annotation.Name == "bytes" {
			return nil, false, nil
		}
		data = r
	case string:
		if !p.wireShaped() {
			return nil, false, nil
		}
		data = []byte(r)
	default:
		return nil, false, nil
	}
	var decoded any
	if err := p.codec.Unmarshal(data, &decoded); err != nil {
		if _, ok := raw.(string); ok && p.unionShaped() {
			// A bare string at a union root may itself be a member value;
			// ordered dispatch decides.
			return nil, false, nil
		}
		return nil, false, &DeserializeError{Expected: p.typeName, Value: raw}
	}
	return decoded, true, nil
}

// unionShaped reports whether the root annotation is a union, possibly
// wrapped in Optional.
func (p *Protocol) unionShaped() bool {
	a := p.annotation
	for a != nil && a.Kind == KindOptional {
		a = a.Inner
	}
	return a != nil && a.Kind == KindUnion
}

// wireShaped reports whether the root annotation describes a composite that
// can only arrive as an encoded document when given as a string.
func (p *Protocol) wireShaped() bool {
	a := p.annotation
	for a != nil && a.Kind == KindOptional {
		a = a.Inner
	}
	if a == nil {
		return false
	}
	switch a.Kind {
	case KindStruct, KindMapping, KindCollection, KindUnion:
		return true
	}
	return false
}

// Serialize reduces a typed value to a JSON-safe primitive: mapping,
// sequence, string, number, bool, or nil.
func (p *Protocol) Serialize(v any) (any, error) {
	start := time.Now()
	out, err := p.ser(v)
	emitSerializeComplete(context.Background(), p.typeName, time.Since(start), err)
	return out, err
}

// Marshal serializes a typed value and encodes it with the protocol's codec.
func (p *Protocol) Marshal(v any) ([]byte, error) {
	out, err := p.Serialize(v)
	if err != nil {
		return nil, err
	}
	return p.codec.Marshal(out)
}

// Unmarshal decodes wire bytes with the protocol's codec and deserializes
// the result into a typed value.
func (p *Protocol) Unmarshal(data []byte) (any, error) {
	return p.Deserialize(data)
}

// Validate checks a value against the compiled constraint tree, returning
// the value unchanged on success.
func (p *Protocol) Validate(v any) (any, error) {
	start := time.Now()
	err := p.constraint.Check(v)
	emitValidateComplete(context.Background(), p.typeName, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// node is one compiled (deserialize, serialize) pair. Parents hold child
// nodes by pointer and invoke through them at call time, so a node acts as
// its own stub: recursive references observe the pointer now and the
// routines once the owning compile completes.
type node struct {
	de  coercer
	ser serializer
}

// protoCompiler emits composable operations bottom-up over an
// (Annotation, Constraint) pair. Compilation is pure given the pair and the
// flags, which is what makes protocol caching sound.
type protoCompiler struct {
	flags  SerdeFlags
	codec  Codec
	strict bool
	memo   map[*Annotation]*node
	// bakes run after the full tree compiles: default values coerce through
	// their field's finished deserializer exactly once, at build time.
	bakes []func() error
}

func newProtoCompiler(flags SerdeFlags, codec Codec, strict bool) *protoCompiler {
	return &protoCompiler{
		flags:  flags,
		codec:  codec,
		strict: strict,
		memo:   make(map[*Annotation]*node),
	}
}

func (cp *protoCompiler) compile(a *Annotation, c *Constraint) (*node, error) {
	if n, ok := cp.memo[a]; ok {
		return n, nil
	}
	n := &node{}
	cp.memo[a] = n

	var err error
	switch a.Kind {
	case KindScalar:
		err = cp.compileScalar(a, c, n)
	case KindOptional:
		err = cp.compileOptional(a, c, n)
	case KindCollection:
		err = cp.compileCollection(a, c, n)
	case KindMapping:
		err = cp.compileMapping(a, c, n)
	case KindStruct:
		err = cp.compileStruct(a, c, n)
	case KindEnum:
		err = cp.compileEnum(a, c, n)
	case KindLiteral:
		err = cp.compileLiteral(a, c, n)
	case KindUnion:
		err = cp.compileUnion(a, c, n)
	case KindRecursive:
		err = cp.compileRecursive(a, c, n)
	default:
		err = &ResolutionError{Symbol: a.describe(), Reason: "cannot compile " + a.Kind.String()}
	}
	if err != nil {
		return nil, err
	}
	n.de = cp.wrapPolicy(a, c, n.de)
	return n, nil
}

// wrapPolicy applies the strict-mode policy for a node. Policies change
// ordering, not topology:
//
//   - validate-by-parse: coercion itself is the validation (default)
//   - parse-then-validate: coerce, then run the compiled constraint
//   - validate-only: check raw input, return it unchanged (strict primitives)
//   - validate-then-parse: check raw input, coerce on success (strict
//     user-defined types)
func (cp *protoCompiler) wrapPolicy(a *Annotation, c *Constraint, base coercer) coercer {
	if c == nil || a.Kind == KindRecursive {
		return base
	}
	if cp.strict {
		switch a.Kind {
		case KindScalar, KindLiteral, KindEnum:
			// Validate-only: the input must already be the value; it passes
			// through untouched, transforms included.
			return func(raw any, path string) (any, error) {
				if err := c.check(raw, path); err != nil {
					return nil, err
				}
				return raw, nil
			}
		default:
			return func(raw any, path string) (any, error) {
				probe := raw
				if d, ok, err := decodeForCheck(cp.codec, raw); err == nil && ok {
					probe = d
					raw = d
				}
				if err := c.check(probe, path); err != nil {
					return nil, err
				}
				return base(raw, path)
			}
		}
	}
	if c.Declared {
		return func(raw any, path string) (any, error) {
			out, err := base(raw, path)
			if err != nil {
				return nil, err
			}
			if err := c.check(out, path); err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	return base
}

// decodeForCheck decodes wire bytes so strict validation sees the document,
// not the encoding.
func decodeForCheck(codec Codec, raw any) (any, bool, error) {
	var data []byte
	switch r := raw.(type) {
	case []byte:
		data = r
	case json.RawMessage:
		data = r
	case string:
		data = []byte(r)
	default:
		return nil, false, nil
	}
	var decoded any
	if err := codec.Unmarshal(data, &decoded); err != nil {
		return nil, false, err
	}
	return decoded, true, nil
}

func (cp *protoCompiler) compileScalar(a *Annotation, c *Constraint, n *node) error {
	rt := a.Type
	desc := a.describe()
	// Parse-time text transforms run before any validation wrapper, so
	// declared predicates see the transformed value.
	strip, curtail := false, 0
	if c != nil && c.Text != nil {
		strip = c.Text.Strip
		if c.Text.Curtail != nil {
			curtail = *c.Text.Curtail
		}
	}
	n.de = func(raw any, path string) (any, error) {
		out, err := coerceScalar(rt, raw, desc)
		if err != nil {
			return nil, relocate(err, path)
		}
		if s, ok := out.(string); ok && (strip || curtail > 0) {
			if strip {
				s = strings.TrimSpace(s)
			}
			if curtail > 0 && len(s) > curtail {
				s = s[:curtail]
			}
			out = convertTo(rt, s)
		}
		return out, nil
	}
	n.ser = func(v any) (any, error) {
		return serializeScalar(rt, v)
	}
	return nil
}

func (cp *protoCompiler) compileOptional(a *Annotation, c *Constraint, n *node) error {
	var innerC *Constraint
	if c != nil {
		innerC = c.Inner
	}
	inner, err := cp.compile(a.Inner, innerC)
	if err != nil {
		return err
	}
	rt := a.Type
	n.de = func(raw any, path string) (any, error) {
		if isNullish(raw) {
			return nil, nil
		}
		out, err := inner.de(raw, path)
		if err != nil {
			return nil, err
		}
		if rt != nil && rt.Kind() == reflect.Pointer {
			pv := reflect.New(rt.Elem())
			pv.Elem().Set(reflect.ValueOf(out))
			return pv.Interface(), nil
		}
		return out, nil
	}
	n.ser = func(v any) (any, error) {
		if isNullish(v) {
			return nil, nil
		}
		return inner.ser(deref(v))
	}
	return nil
}

func (cp *protoCompiler) compileCollection(a *Annotation, c *Constraint, n *node) error {
	var itemC *Constraint
	if c != nil {
		itemC = c.Item
	}
	elem, err := cp.compile(a.Elem, itemC)
	if err != nil {
		return err
	}
	rt := a.Type
	desc := a.describe()
	n.de = func(raw any, path string) (any, error) {
		rv := reflect.ValueOf(raw)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, newDeserializeError(desc, raw).at(path)
		}
		length := rv.Len()
		var out reflect.Value
		switch rt.Kind() {
		case reflect.Slice:
			out = reflect.MakeSlice(rt, length, length)
		case reflect.Array:
			if length != rt.Len() {
				return nil, newDeserializeError(desc, raw).at(path)
			}
			out = reflect.New(rt).Elem()
		}
		for i := 0; i < length; i++ {
			ev, err := elem.de(rv.Index(i).Interface(), joinPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			if ev != nil {
				out.Index(i).Set(reflect.ValueOf(ev))
			}
		}
		return out.Interface(), nil
	}
	n.ser = func(v any) (any, error) {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, fmt.Errorf("%w: %s: not a sequence: %T", ErrSerialize, desc, v)
		}
		out := make([]any, rv.Len())
		for i := range out {
			sv, err := elem.ser(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	}
	return nil
}

func (cp *protoCompiler) compileMapping(a *Annotation, c *Constraint, n *node) error {
	var keyC, valC *Constraint
	if c != nil {
		keyC, valC = c.Key, c.Value
	}
	key, err := cp.compile(a.Key, keyC)
	if err != nil {
		return err
	}
	val, err := cp.compile(a.Value, valC)
	if err != nil {
		return err
	}
	rt := a.Type
	desc := a.describe()
	n.de = func(raw any, path string) (any, error) {
		rv := reflect.ValueOf(raw)
		if !rv.IsValid() || rv.Kind() != reflect.Map {
			return nil, newDeserializeError(desc, raw).at(path)
		}
		out := reflect.MakeMapWithSize(rt, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			kPath := joinPath(path, fmt.Sprint(iter.Key().Interface()))
			kv, err := key.de(iter.Key().Interface(), kPath)
			if err != nil {
				return nil, err
			}
			vv, err := val.de(iter.Value().Interface(), kPath)
			if err != nil {
				return nil, err
			}
			mv := reflect.Zero(rt.Elem())
			if vv != nil {
				mv = reflect.ValueOf(vv)
			}
			out.SetMapIndex(reflect.ValueOf(kv), mv)
		}
		return out.Interface(), nil
	}
	n.ser = func(v any) (any, error) {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Kind() != reflect.Map {
			return nil, fmt.Errorf("%w: %s: not a mapping: %T", ErrSerialize, desc, v)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			kv, err := key.ser(iter.Key().Interface())
			if err != nil {
				return nil, err
			}
			ks, ok := kv.(string)
			if !ok {
				ks = fmt.Sprint(kv)
			}
			vv, err := val.ser(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[ks] = vv
		}
		return out, nil
	}
	return nil
}

// fieldPlan is the compiled per-field execution plan of a struct node.
type fieldPlan struct {
	name     string
	wire     string
	index    []int
	node     *node
	literal  any
	def      any
	hasDef   bool
	optional bool
	desc     string
}

func (cp *protoCompiler) compileStruct(a *Annotation, c *Constraint, n *node) error {
	rt := a.Type
	desc := a.describe()

	fieldCons := make(map[string]*Constraint, len(a.Fields))
	if c != nil {
		for _, fc := range c.Fields {
			fieldCons[fc.Name] = fc.C
		}
	}

	plans := make([]*fieldPlan, 0, len(a.Fields))
	for i := range a.Fields {
		f := &a.Fields[i]
		if f.Excluded || cp.flags.excluded(f.Name) {
			continue
		}
		fc := fieldCons[f.Name]
		child, err := cp.compile(f.Type, fc)
		if err != nil {
			return err
		}
		plan := &fieldPlan{
			name:     f.Name,
			wire:     cp.flags.wireName(f.Name, f.Alias),
			index:    f.Index,
			node:     child,
			literal:  f.Literal,
			optional: f.Type.Kind == KindOptional,
			desc:     f.Type.describe(),
		}
		if f.HasDefault {
			raw := f.Default
			plan.hasDef = true
			// Bake after the tree finishes so defaults on recursive fields
			// still coerce through a completed deserializer.
			cp.bakes = append(cp.bakes, func() error {
				v, err := child.de(raw, plan.wire)
				if err != nil {
					return err
				}
				plan.def = v
				return nil
			})
		}
		plans = append(plans, plan)
	}

	fold := cp.flags.CaseInsensitive
	codec := cp.codec

	overrideDe := rt != nil && reflect.PointerTo(rt).Implements(deserializableType)
	overrideSer := rt != nil && (rt.Implements(serializableType) || reflect.PointerTo(rt).Implements(serializableType))

	n.de = func(raw any, path string) (any, error) {
		// Pass-through for already-typed input.
		if raw != nil {
			if reflect.TypeOf(raw) == rt {
				return raw, nil
			}
			if reflect.TypeOf(raw) == reflect.PointerTo(rt) {
				rv := reflect.ValueOf(raw)
				if rv.IsNil() {
					return nil, newDeserializeError(desc, raw).at(path)
				}
				return rv.Elem().Interface(), nil
			}
		}
		// Wire payloads decode first.
		switch r := raw.(type) {
		case []byte:
			var decoded any
			if err := codec.Unmarshal(r, &decoded); err != nil {
				return nil, newDeserializeError(desc, raw).at(path)
			}
			raw = decoded
		case json.RawMessage:
			var decoded any
			if err := codec.Unmarshal(r, &decoded); err != nil {
				return nil, newDeserializeError(desc, raw).at(path)
			}
			raw = decoded
		case string:
			var decoded any
			if err := codec.Unmarshal([]byte(r), &decoded); err != nil {
				return nil, newDeserializeError(desc, raw).at(path)
			}
			raw = decoded
		}
		if overrideDe {
			pv := reflect.New(rt)
			if err := pv.Interface().(Deserializable).DeserializeFrom(raw); err != nil {
				return nil, relocate(&DeserializeError{Expected: desc, Value: raw, Causes: []error{err}}, path)
			}
			return pv.Elem().Interface(), nil
		}
		entries, ok := rawEntries(raw)
		if !ok {
			return nil, newDeserializeError(desc, raw).at(path)
		}
		out := reflect.New(rt).Elem()
		for _, plan := range plans {
			fr, found := lookupEntry(entries, plan.wire, plan.name, fold)
			if !found {
				if plan.hasDef {
					if plan.def != nil {
						assign(out.FieldByIndex(plan.index), plan.def)
					}
					continue
				}
				if plan.optional {
					continue
				}
				return nil, (&DeserializeError{Expected: plan.desc, Value: raw, Path: plan.wire}).at(path)
			}
			fv, err := plan.node.de(fr, joinPath(path, plan.wire))
			if err != nil {
				return nil, err
			}
			if plan.literal != nil && canonKey(fv) != canonKey(plan.literal) {
				return nil, (&DeserializeError{Expected: fmt.Sprintf("literal %v", plan.literal), Value: fr, Path: plan.wire}).at(path)
			}
			if fv != nil {
				assign(out.FieldByIndex(plan.index), fv)
			}
		}
		return out.Interface(), nil
	}

	omit := cp.flags
	n.ser = func(v any) (any, error) {
		if overrideSer {
			if s, ok := v.(Serializable); ok {
				return s.SerializeInto()
			}
			pv := reflect.New(rt)
			pv.Elem().Set(reflect.ValueOf(v))
			if s, ok := pv.Interface().(Serializable); ok {
				return s.SerializeInto()
			}
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil, nil
			}
			rv = rv.Elem()
		}
		if !rv.IsValid() || rv.Type() != rt {
			return nil, fmt.Errorf("%w: %s: not a struct value: %T", ErrSerialize, desc, v)
		}
		out := make(map[string]any, len(plans))
		for _, plan := range plans {
			sv, err := plan.node.ser(rv.FieldByIndex(plan.index).Interface())
			if err != nil {
				return nil, err
			}
			if omit.omitted(sv) {
				continue
			}
			out[plan.wire] = sv
		}
		return out, nil
	}
	return nil
}

func (cp *protoCompiler) compileEnum(a *Annotation, _ *Constraint, n *node) error {
	rt := a.Type
	desc := a.describe()
	byValue := make(map[any]any, len(a.Members))
	byName := make(map[string]any, len(a.Members))
	for _, m := range a.Members {
		byValue[canonKey(m.Value)] = m.Value
		byName[m.Name] = m.Value
	}
	n.de = func(raw any, path string) (any, error) {
		// Lookup by value first, then by member name.
		if v, ok := byValue[canonKey(raw)]; ok {
			return convertTo(rt, v), nil
		}
		if s, ok := raw.(string); ok {
			if v, ok := byName[s]; ok {
				return convertTo(rt, v), nil
			}
		}
		return nil, newDeserializeError(desc, raw).at(path)
	}
	n.ser = func(v any) (any, error) {
		// Enums downgrade to their held value.
		return primitiveOf(v), nil
	}
	return nil
}

func (cp *protoCompiler) compileLiteral(a *Annotation, _ *Constraint, n *node) error {
	desc := a.describe()
	allowed := make(map[any]struct{}, len(a.Values))
	for _, v := range a.Values {
		allowed[canonKey(v)] = struct{}{}
	}
	n.de = func(raw any, path string) (any, error) {
		// Membership check only: the value passes through unchanged.
		if _, ok := allowed[canonKey(raw)]; !ok {
			return nil, newDeserializeError(desc, raw).at(path)
		}
		return raw, nil
	}
	n.ser = func(v any) (any, error) {
		return primitiveOf(v), nil
	}
	return nil
}

func (cp *protoCompiler) compileRecursive(a *Annotation, c *Constraint, n *node) error {
	if a.Ref != nil {
		var refC *Constraint
		if c != nil {
			refC = c.Ref
		}
		ref, err := cp.compile(a.Ref, refC)
		if err != nil {
			return err
		}
		// Deferral to the patched target happens at call time, never at
		// build time: ref's routines are filled when the ancestor compile
		// completes.
		n.de = func(raw any, path string) (any, error) {
			return ref.de(raw, path)
		}
		n.ser = func(v any) (any, error) {
			return ref.ser(v)
		}
		return nil
	}
	proto := a.proto
	ready := a.ready
	name := a.Name
	// ready is non-nil when the referenced build is in flight on another
	// goroutine; receiving orders this read after the builder's patch.
	n.de = func(raw any, path string) (any, error) {
		if ready != nil {
			<-ready
		}
		if proto == nil || proto.de == nil {
			return nil, relocate(newDeserializeError(name, raw), path)
		}
		return proto.de(raw, path)
	}
	n.ser = func(v any) (any, error) {
		if ready != nil {
			<-ready
		}
		if proto == nil || proto.ser == nil {
			return nil, fmt.Errorf("%w: %s not yet resolved", ErrSerialize, name)
		}
		return proto.ser(v)
	}
	return nil
}

var (
	deserializableType = reflect.TypeOf((*Deserializable)(nil)).Elem()
	serializableType   = reflect.TypeOf((*Serializable)(nil)).Elem()
)

// rawEntries projects raw input into a wire-name → value view. Mappings use
// their keys; foreign objects are read by attribute pull over their exported
// fields.
func rawEntries(raw any) (map[string]any, bool) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return out, true
	case reflect.Struct:
		rt := rv.Type()
		out := make(map[string]any, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			out[sf.Name] = rv.Field(i).Interface()
		}
		return out, true
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, false
		}
		return rawEntries(rv.Elem().Interface())
	}
	return nil, false
}

// lookupEntry finds a field's raw value by wire name, then Go name, then a
// case-insensitive fold when enabled.
func lookupEntry(entries map[string]any, wire, name string, fold bool) (any, bool) {
	if v, ok := entries[wire]; ok {
		return v, true
	}
	if v, ok := entries[name]; ok {
		return v, true
	}
	if fold {
		for k, v := range entries {
			if strings.EqualFold(k, wire) || strings.EqualFold(k, name) {
				return v, true
			}
		}
	}
	return nil, false
}

// assign sets a struct field, converting named types as needed.
func assign(fv reflect.Value, v any) {
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return
	}
	if rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
	}
}

// convertTo converts v to rt, tolerating a nil target type.
func convertTo(rt reflect.Type, v any) any {
	if rt == nil || v == nil {
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == rt {
		return v
	}
	if rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt).Interface()
	}
	return v
}

// coerceScalar runs the ordered coercion battery for a leaf scalar:
// pass-through, numeric/bool/bytes/string conversion, date/time parsing,
// uuid parsing, and registered extended-scalar decoding.
func coerceScalar(rt reflect.Type, raw any, desc string) (any, error) {
	if rt == nil || rt == anyType {
		return raw, nil
	}
	if raw != nil && reflect.TypeOf(raw) == rt {
		return raw, nil
	}
	switch rt {
	case timeType:
		return coerceTime(raw, desc)
	case uuidType:
		return coerceUUID(raw, desc)
	}
	if sc, ok := lookupScalar(rt); ok {
		out, err := sc.decode(raw)
		if err != nil {
			return nil, &DeserializeError{Expected: desc, Value: raw, Causes: []error{err}}
		}
		return out, nil
	}

	switch rt.Kind() {
	case reflect.String:
		return coerceString(rt, raw, desc)
	case reflect.Bool:
		return coerceBool(rt, raw, desc)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return coerceInt(rt, raw, desc)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return coerceUint(rt, raw, desc)
	case reflect.Float32, reflect.Float64:
		return coerceFloat(rt, raw, desc)
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return coerceBytes(rt, raw, desc)
		}
	}
	// A named type whose underlying shape matches still converts.
	if raw != nil && reflect.TypeOf(raw).ConvertibleTo(rt) {
		return reflect.ValueOf(raw).Convert(rt).Interface(), nil
	}
	return nil, newDeserializeError(desc, raw)
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02", "15:04:05"}

func coerceTime(raw any, desc string) (any, error) {
	switch r := raw.(type) {
	case time.Time:
		return r, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, r); err == nil {
				return t, nil
			}
		}
	default:
		if f, ok := asNumber(raw); ok {
			sec := int64(f)
			nsec := int64((f - float64(sec)) * float64(time.Second))
			return time.Unix(sec, nsec).UTC(), nil
		}
	}
	return nil, newDeserializeError(desc, raw)
}

func coerceUUID(raw any, desc string) (any, error) {
	switch r := raw.(type) {
	case uuid.UUID:
		return r, nil
	case string:
		u, err := uuid.Parse(r)
		if err != nil {
			return nil, &DeserializeError{Expected: desc, Value: raw, Causes: []error{err}}
		}
		return u, nil
	case []byte:
		if len(r) == 16 {
			u, err := uuid.FromBytes(r)
			if err == nil {
				return u, nil
			}
		}
		u, err := uuid.ParseBytes(r)
		if err != nil {
			return nil, &DeserializeError{Expected: desc, Value: raw, Causes: []error{err}}
		}
		return u, nil
	}
	return nil, newDeserializeError(desc, raw)
}

func coerceString(rt reflect.Type, raw any, desc string) (any, error) {
	switch r := raw.(type) {
	case string:
		return convertTo(rt, r), nil
	case []byte:
		return convertTo(rt, string(r)), nil
	case json.Number:
		return convertTo(rt, r.String()), nil
	case bool:
		return convertTo(rt, strconv.FormatBool(r)), nil
	case fmt.Stringer:
		return convertTo(rt, r.String()), nil
	}
	if f, ok := asNumber(raw); ok {
		if f == float64(int64(f)) {
			return convertTo(rt, strconv.FormatInt(int64(f), 10)), nil
		}
		return convertTo(rt, strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	if raw != nil && reflect.TypeOf(raw).Kind() == reflect.String {
		return convertTo(rt, reflect.ValueOf(raw).String()), nil
	}
	return nil, newDeserializeError(desc, raw)
}

func coerceBool(rt reflect.Type, raw any, desc string) (any, error) {
	switch r := raw.(type) {
	case bool:
		return convertTo(rt, r), nil
	case string:
		b, err := strconv.ParseBool(strings.ToLower(r))
		if err != nil {
			return nil, newDeserializeError(desc, raw)
		}
		return convertTo(rt, b), nil
	}
	if f, ok := asNumber(raw); ok {
		switch f {
		case 0:
			return convertTo(rt, false), nil
		case 1:
			return convertTo(rt, true), nil
		}
	}
	return nil, newDeserializeError(desc, raw)
}

func coerceInt(rt reflect.Type, raw any, desc string) (any, error) {
	switch r := raw.(type) {
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(r), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(r), 64)
			if ferr != nil || f != float64(int64(f)) {
				return nil, newDeserializeError(desc, raw)
			}
			i = int64(f)
		}
		return convertTo(rt, i), nil
	case json.Number:
		i, err := r.Int64()
		if err != nil {
			return nil, newDeserializeError(desc, raw)
		}
		return convertTo(rt, i), nil
	case bool:
		return nil, newDeserializeError(desc, raw)
	}
	if f, ok := asNumber(raw); ok {
		if f != float64(int64(f)) {
			return nil, newDeserializeError(desc, raw)
		}
		return convertTo(rt, int64(f)), nil
	}
	return nil, newDeserializeError(desc, raw)
}

func coerceUint(rt reflect.Type, raw any, desc string) (any, error) {
	v, err := coerceInt(reflect.TypeOf(int64(0)), raw, desc)
	if err != nil {
		return nil, err
	}
	i := v.(int64)
	if i < 0 {
		return nil, newDeserializeError(desc, raw)
	}
	return convertTo(rt, uint64(i)), nil
}

func coerceFloat(rt reflect.Type, raw any, desc string) (any, error) {
	switch r := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			return nil, newDeserializeError(desc, raw)
		}
		return convertTo(rt, f), nil
	case json.Number:
		f, err := r.Float64()
		if err != nil {
			return nil, newDeserializeError(desc, raw)
		}
		return convertTo(rt, f), nil
	case bool:
		return nil, newDeserializeError(desc, raw)
	}
	if f, ok := asNumber(raw); ok {
		return convertTo(rt, f), nil
	}
	return nil, newDeserializeError(desc, raw)
}

func coerceBytes(rt reflect.Type, raw any, desc string) (any, error) {
	switch r := raw.(type) {
	case []byte:
		return convertTo(rt, r), nil
	case string:
		if b, err := base64.StdEncoding.DecodeString(r); err == nil {
			return convertTo(rt, b), nil
		}
		return convertTo(rt, []byte(r)), nil
	}
	return nil, newDeserializeError(desc, raw)
}

// serializeScalar reduces a leaf value to its JSON-safe primitive form.
func serializeScalar(rt reflect.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if rt != nil {
		switch rt {
		case timeType:
			if t, ok := v.(time.Time); ok {
				return t.Format(time.RFC3339Nano), nil
			}
		case uuidType:
			if u, ok := v.(uuid.UUID); ok {
				return u.String(), nil
			}
		case anyType:
			return v, nil
		}
		if sc, ok := lookupScalar(rt); ok {
			out, err := sc.encode(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrSerialize, rt.String(), err)
			}
			return out, nil
		}
		if rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.Uint8 {
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Slice {
				return base64.StdEncoding.EncodeToString(rv.Bytes()), nil
			}
		}
	}
	return primitiveOf(v), nil
}

// primitiveOf widens a value to its JSON-safe base representation,
// downgrading named types to their underlying kind.
func primitiveOf(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return v
	}
}
