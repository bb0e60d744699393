package typical

import (
	"fmt"
	"reflect"
)

// compileUnion emits dispatch for a union node. Tagged unions route on the
// shared discriminator field in O(1); generic unions try variants in
// declaration order and aggregate every variant's failure.
func (cp *protoCompiler) compileUnion(a *Annotation, c *Constraint, n *node) error {
	variants := make([]*node, len(a.Variants))
	for i, v := range a.Variants {
		var vc *Constraint
		if c != nil && i < len(c.Variants) {
			vc = c.Variants[i]
		}
		child, err := cp.compile(v, vc)
		if err != nil {
			return err
		}
		variants[i] = child
	}
	desc := a.describe()

	if d := a.Discriminator; d != nil {
		n.de = cp.taggedDeserializer(a, d, variants, desc)
	} else {
		n.de = genericDeserializer(a, variants, desc)
	}
	n.ser = unionSerializer(a, variants, desc)
	return nil
}

func (cp *protoCompiler) taggedDeserializer(a *Annotation, d *Discriminator, variants []*node, desc string) coercer {
	anns := a.Variants
	field := d.Field
	mapping := d.Mapping
	return func(raw any, path string) (any, error) {
		// Already-typed input routes on its runtime type directly.
		if idx, ok := variantForValue(anns, raw); ok {
			return variants[idx].de(raw, path)
		}
		entries, ok := rawEntries(raw)
		if !ok {
			return nil, newDeserializeError(desc, raw).at(path)
		}
		tag, ok := entries[field]
		if !ok {
			return nil, (&DeserializeError{
				Expected: fmt.Sprintf("%s with discriminator %q", desc, field),
				Value:    raw,
			}).at(path)
		}
		idx, ok := mapping[canonKey(tag)]
		if !ok {
			return nil, (&DeserializeError{
				Expected: desc,
				Value:    tag,
				Path:     field,
			}).at(path)
		}
		return variants[idx].de(raw, path)
	}
}

func genericDeserializer(a *Annotation, variants []*node, desc string) coercer {
	return func(raw any, path string) (any, error) {
		// Declaration order is the contract: first member to accept wins,
		// even when a later member matches the input type exactly.
		causes := make([]error, 0, len(variants))
		for _, v := range variants {
			out, err := v.de(raw, path)
			if err == nil {
				return out, nil
			}
			causes = append(causes, err)
		}
		return nil, (&DeserializeError{Expected: desc, Value: raw, Causes: causes}).at(path)
	}
}

func unionSerializer(a *Annotation, variants []*node, desc string) serializer {
	anns := a.Variants
	return func(v any) (any, error) {
		if isNullish(v) {
			for _, va := range anns {
				if va.Kind == KindOptional {
					return nil, nil
				}
			}
		}
		if idx, ok := variantForValue(anns, v); ok {
			return variants[idx].ser(v)
		}
		// No runtime-type match: fall back to ordered attempts.
		for _, vn := range variants {
			if out, err := vn.ser(v); err == nil {
				return out, nil
			}
		}
		return nil, fmt.Errorf("%w: no %s variant matches %T", ErrSerialize, desc, v)
	}
}

// variantForValue matches a runtime value against union member types,
// unwrapping Optional members and pointers.
func variantForValue(variants []*Annotation, v any) (int, bool) {
	rt := reflect.TypeOf(v)
	if rt == nil {
		return 0, false
	}
	for i, va := range variants {
		target := va
		if target.Kind == KindOptional && target.Inner != nil {
			target = target.Inner
		}
		if target.Type == nil {
			continue
		}
		if rt == target.Type || rt == reflect.PointerTo(target.Type) {
			return i, true
		}
	}
	return 0, false
}
