package typical

import (
	"reflect"
	"strings"
)

// Translate structurally maps a source struct value onto a target struct
// type. Fields pair by wire name; target fields with no matching source
// value fall back to their defaults, and a required field with neither is a
// TranslationError. target is a type token for a struct shape.
func Translate(src any, target any, opts ...Option) (any, error) {
	srcProto, err := Resolve(reflect.TypeOf(deref(src)), opts...)
	if err != nil {
		return nil, err
	}
	dstProto, err := Resolve(target, opts...)
	if err != nil {
		return nil, err
	}
	if srcProto.annotation.Kind != KindStruct {
		return nil, &ResolutionError{
			Symbol: srcProto.typeName,
			Reason: "translation requires a struct source",
		}
	}
	dstAnn := dstProto.annotation
	if dstAnn.Kind != KindStruct {
		return nil, &ResolutionError{
			Symbol: dstProto.typeName,
			Reason: "translation requires a struct target",
		}
	}

	doc, err := srcProto.ser(deref(src))
	if err != nil {
		return nil, err
	}
	entries, ok := doc.(map[string]any)
	if !ok {
		return nil, &TranslationError{Field: "*", Target: dstProto.typeName}
	}

	// Re-key source entries onto the target's wire names. Matching is by
	// wire name first, then Go name, then a case-insensitive fold.
	out := make(map[string]any, len(entries))
	for i := range dstAnn.Fields {
		f := &dstAnn.Fields[i]
		if f.Excluded {
			continue
		}
		wire := dstProto.flags.wireName(f.Name, f.Alias)
		if v, ok := lookupTranslated(entries, wire, f.Name); ok {
			out[wire] = v
			continue
		}
		if f.HasDefault || f.Type.Kind == KindOptional {
			continue
		}
		return nil, &TranslationError{Field: wire, Target: dstProto.typeName}
	}
	return dstProto.deserialize(out)
}

// lookupTranslated finds a source value for a target field, folding case as
// a last resort since source and target conventions rarely agree.
func lookupTranslated(entries map[string]any, wire, name string) (any, bool) {
	if v, ok := entries[wire]; ok {
		return v, true
	}
	if v, ok := entries[name]; ok {
		return v, true
	}
	norm := func(s string) string {
		return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(s))
	}
	want := norm(wire)
	for k, v := range entries {
		if norm(k) == want {
			return v, true
		}
	}
	return nil, false
}
