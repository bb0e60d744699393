package typical

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Constraint is a compiled validation-predicate tree mirroring the shape of
// an Annotation. Constraints are immutable once compiled; the schema package
// reads them without mutation. Recursive nodes follow the same stub-then-
// patch discipline as Annotations, guaranteeing termination on cycles.
type Constraint struct {
	Kind Kind
	// Desc is the node description used in violations and schema output.
	Desc string
	Type reflect.Type

	// Declared reports whether any explicit predicate was declared on this
	// node or its subtree, as opposed to the implicit shape check every
	// node carries.
	Declared bool

	Numeric *NumericConstraint
	Text    *TextConstraint
	Array   *ArrayConstraint
	Entries *MappingConstraint

	// Fields composes child field constraints for Struct nodes.
	Fields []FieldConstraint
	// Values is the membership set for Enum and Literal nodes.
	Values []any
	// Variants holds member constraints for Union nodes.
	Variants []*Constraint

	Inner *Constraint // Optional
	Item  *Constraint // Collection element
	Key   *Constraint // Mapping key
	Value *Constraint // Mapping value
	Ref   *Constraint // Recursive target, patched in place
}

// NumericConstraint holds bounds for numeric scalars. Declaring both GT and
// GE, or both LT and LE, is rejected at compile time.
type NumericConstraint struct {
	GT, GE, LT, LE *float64
	Mul            *float64
	MaxDigits      *int
	DecimalPlaces  *int
}

// TextConstraint holds predicates and parse-time transforms for strings.
type TextConstraint struct {
	MinLength *int
	MaxLength *int
	// Curtail truncates input to the given length during parse.
	Curtail *int
	// Strip trims surrounding whitespace during parse.
	Strip   bool
	Pattern *regexp.Regexp
}

// ArrayConstraint holds size and uniqueness predicates for collections.
type ArrayConstraint struct {
	MinItems *int
	MaxItems *int
	Unique   bool
}

// MappingConstraint holds key predicates for mappings. Total forbids keys
// outside the declared set; declaring RequiredKeys without Total is a
// compile-time syntax error.
type MappingConstraint struct {
	MinItems     *int
	MaxItems     *int
	RequiredKeys []string
	KeyPattern   *regexp.Regexp
	// PerKey applies a sub-constraint to specific keys.
	PerKey map[string]*Constraint
	// Dependencies requires the listed keys whenever the map key is present.
	Dependencies map[string][]string
	Total        bool
}

// FieldConstraint is one struct field's compiled constraint.
type FieldConstraint struct {
	Name     string
	Alias    string
	Index    []int
	Required bool
	C        *Constraint
}

// compileConstraints builds the Constraint tree parallel to an Annotation
// tree. rootSpec is an optional constraint declaration applied to the root
// node, in the same syntax as the `constraint` struct tag.
func compileConstraints(a *Annotation, rootSpec string) (*Constraint, error) {
	cc := &constraintCompiler{memo: make(map[*Annotation]*Constraint)}
	return cc.compile(a, rootSpec, a.describe())
}

type constraintCompiler struct {
	memo map[*Annotation]*Constraint
}

func (cc *constraintCompiler) compile(a *Annotation, spec, where string) (*Constraint, error) {
	if a == nil {
		return nil, nil
	}
	if c, ok := cc.memo[a]; ok {
		return c, nil
	}
	c := &Constraint{Kind: a.Kind, Desc: a.describe(), Type: a.Type}
	cc.memo[a] = c

	decl, err := parseConstraintSpec(spec, where)
	if err != nil {
		return nil, err
	}

	switch a.Kind {
	case KindScalar:
		if err := cc.compileScalar(a, c, decl, spec, where); err != nil {
			return nil, err
		}

	case KindOptional:
		inner, err := cc.compile(a.Inner, spec, where)
		if err != nil {
			return nil, err
		}
		c.Inner = inner
		c.Declared = inner.Declared

	case KindCollection:
		if err := cc.compileArray(c, decl, spec, where); err != nil {
			return nil, err
		}
		item, err := cc.compile(a.Elem, "", where)
		if err != nil {
			return nil, err
		}
		c.Item = item
		c.Declared = c.Declared || item.Declared

	case KindMapping:
		if err := cc.compileMapping(c, decl, spec, where); err != nil {
			return nil, err
		}
		key, err := cc.compile(a.Key, "", where)
		if err != nil {
			return nil, err
		}
		val, err := cc.compile(a.Value, "", where)
		if err != nil {
			return nil, err
		}
		c.Key, c.Value = key, val
		c.Declared = c.Declared || val.Declared

	case KindStruct:
		if len(decl) > 0 {
			return nil, &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "struct constraints compose from field tags"}
		}
		for _, f := range a.Fields {
			if f.Excluded {
				continue
			}
			fc, err := cc.compile(f.Type, f.constraintSpec, c.Desc+"."+f.Name)
			if err != nil {
				return nil, err
			}
			required := !f.HasDefault && f.Type.Kind != KindOptional
			c.Fields = append(c.Fields, FieldConstraint{
				Name:     f.Name,
				Alias:    f.Alias,
				Index:    f.Index,
				Required: required,
				C:        fc,
			})
			c.Declared = c.Declared || fc.Declared || f.constraintSpec != ""
		}

	case KindEnum:
		for _, m := range a.Members {
			c.Values = append(c.Values, m.Value)
		}
		c.Declared = true

	case KindLiteral:
		c.Values = append(c.Values, a.Values...)
		c.Declared = true

	case KindUnion:
		for _, v := range a.Variants {
			vc, err := cc.compile(v, "", where)
			if err != nil {
				return nil, err
			}
			c.Variants = append(c.Variants, vc)
			c.Declared = c.Declared || vc.Declared
		}

	case KindRecursive:
		if a.Ref != nil {
			ref, err := cc.compile(a.Ref, "", where)
			if err != nil {
				return nil, err
			}
			c.Ref = ref
		}
		// Deferred cross-resolution references validate through their own
		// protocol; no local constraint applies.
	}

	return c, nil
}

func (cc *constraintCompiler) compileScalar(a *Annotation, c *Constraint, decl map[string]string, spec, where string) error {
	if len(decl) == 0 {
		return nil
	}
	kind := reflect.Invalid
	if a.Type != nil {
		kind = a.Type.Kind()
	}
	switch {
	case isNumericKind(kind):
		n := &NumericConstraint{}
		for k, v := range decl {
			switch k {
			case "gt", "ge", "lt", "le", "mul":
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "non-numeric bound " + k}
				}
				switch k {
				case "gt":
					n.GT = &f
				case "ge":
					n.GE = &f
				case "lt":
					n.LT = &f
				case "le":
					n.LE = &f
				case "mul":
					n.Mul = &f
				}
			case "maxdigits", "decimalplaces":
				i, err := strconv.Atoi(v)
				if err != nil {
					return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "non-integer " + k}
				}
				if k == "maxdigits" {
					n.MaxDigits = &i
				} else {
					n.DecimalPlaces = &i
				}
			default:
				return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "unknown numeric predicate " + k}
			}
		}
		if n.GT != nil && n.GE != nil {
			return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "gt and ge are mutually exclusive"}
		}
		if n.LT != nil && n.LE != nil {
			return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "lt and le are mutually exclusive"}
		}
		c.Numeric = n
		c.Declared = true
	case kind == reflect.String:
		t := &TextConstraint{}
		for k, v := range decl {
			switch k {
			case "minlen", "maxlen", "curtail":
				i, err := strconv.Atoi(v)
				if err != nil {
					return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "non-integer " + k}
				}
				switch k {
				case "minlen":
					t.MinLength = &i
				case "maxlen":
					t.MaxLength = &i
				case "curtail":
					t.Curtail = &i
				}
			case "strip":
				t.Strip = true
			case "pattern":
				re, err := regexp.Compile(v)
				if err != nil {
					return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "invalid pattern: " + err.Error()}
				}
				t.Pattern = re
			default:
				return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "unknown text predicate " + k}
			}
		}
		c.Text = t
		c.Declared = true
	default:
		return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "constraints are not supported on " + c.Desc}
	}
	return nil
}

func (cc *constraintCompiler) compileArray(c *Constraint, decl map[string]string, spec, where string) error {
	if len(decl) == 0 {
		return nil
	}
	ac := &ArrayConstraint{}
	for k, v := range decl {
		switch k {
		case "minitems", "maxitems":
			i, err := strconv.Atoi(v)
			if err != nil {
				return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "non-integer " + k}
			}
			if k == "minitems" {
				ac.MinItems = &i
			} else {
				ac.MaxItems = &i
			}
		case "unique":
			ac.Unique = true
		default:
			return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "unknown array predicate " + k}
		}
	}
	c.Array = ac
	c.Declared = true
	return nil
}

func (cc *constraintCompiler) compileMapping(c *Constraint, decl map[string]string, spec, where string) error {
	if len(decl) == 0 {
		return nil
	}
	mc := &MappingConstraint{}
	for k, v := range decl {
		switch k {
		case "minitems", "maxitems":
			i, err := strconv.Atoi(v)
			if err != nil {
				return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "non-integer " + k}
			}
			if k == "minitems" {
				mc.MinItems = &i
			} else {
				mc.MaxItems = &i
			}
		case "total":
			mc.Total = true
		case "required":
			mc.RequiredKeys = strings.Split(v, "|")
		case "keypattern":
			re, err := regexp.Compile(v)
			if err != nil {
				return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "invalid keypattern: " + err.Error()}
			}
			mc.KeyPattern = re
		case "requires":
			// requires=key>dep1|dep2
			key, deps, ok := strings.Cut(v, ">")
			if !ok {
				return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "requires needs key>deps form"}
			}
			if mc.Dependencies == nil {
				mc.Dependencies = make(map[string][]string)
			}
			mc.Dependencies[key] = strings.Split(deps, "|")
		default:
			return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "unknown mapping predicate " + k}
		}
	}
	if len(mc.RequiredKeys) > 0 && !mc.Total {
		return &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "required keys demand a total mapping"}
	}
	c.Entries = mc
	c.Declared = true
	return nil
}

// parseConstraintSpec tokenizes a constraint declaration: comma-separated
// key=value pairs and bare flags.
func parseConstraintSpec(spec, where string) (map[string]string, error) {
	decl := make(map[string]string)
	if spec == "" {
		return decl, nil
	}
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		k, v, _ := strings.Cut(tok, "=")
		if _, dup := decl[k]; dup {
			return nil, &ConstraintSyntaxError{Field: where, Spec: spec, Reason: "duplicate predicate " + k}
		}
		decl[k] = v
	}
	return decl, nil
}

// Check evaluates v against the compiled constraint tree. It returns nil on
// success or a ConstraintValueError carrying the dotted path to the first
// violation. v may be a typed Go value or a raw JSON-safe primitive.
func (c *Constraint) Check(v any) error {
	if err := c.check(v, ""); err != nil {
		return err
	}
	return nil
}

func (c *Constraint) check(v any, path string) *ConstraintValueError {
	if c == nil {
		return nil
	}
	switch c.Kind {
	case KindScalar:
		return c.checkScalar(v, path)
	case KindOptional:
		if isNullish(v) {
			return nil
		}
		return c.Inner.check(deref(v), path)
	case KindCollection:
		return c.checkCollection(v, path)
	case KindMapping:
		return c.checkMapping(v, path)
	case KindStruct:
		return c.checkStruct(v, path)
	case KindEnum, KindLiteral:
		key := canonKey(v)
		for _, allowed := range c.Values {
			if canonKey(allowed) == key {
				return nil
			}
		}
		return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "membership", Value: v}
	case KindUnion:
		for _, vc := range c.Variants {
			if vc.check(v, path) == nil {
				return nil
			}
		}
		return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "anyOf", Value: v}
	case KindRecursive:
		if c.Ref != nil {
			return c.Ref.check(v, path)
		}
		return nil
	}
	return nil
}

func (c *Constraint) checkScalar(v any, path string) *ConstraintValueError {
	kind := reflect.Invalid
	if c.Type != nil {
		kind = c.Type.Kind()
	}
	switch {
	case isNumericKind(kind):
		f, ok := asNumber(v)
		if !ok {
			return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "type=number", Value: v}
		}
		if isIntegerKind(kind) && f != float64(int64(f)) {
			return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "type=integer", Value: v}
		}
		return c.Numeric.check(f, c.Desc, path, v)
	case kind == reflect.String:
		s, ok := v.(string)
		if !ok {
			return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "type=string", Value: v}
		}
		return c.Text.check(s, c.Desc, path)
	case kind == reflect.Bool:
		if _, ok := v.(bool); !ok {
			return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "type=boolean", Value: v}
		}
		return nil
	default:
		// Opaque scalars (time, uuid, bytes, extended types, any): accept a
		// value already of the target type or its string wire form.
		if c.Type == nil || c.Type == anyType {
			return nil
		}
		if v != nil && reflect.TypeOf(v) == c.Type {
			return nil
		}
		if _, ok := v.(string); ok {
			return nil
		}
		return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "type=" + c.Desc, Value: v}
	}
}

func (n *NumericConstraint) check(f float64, desc, path string, orig any) *ConstraintValueError {
	if n == nil {
		return nil
	}
	fail := func(pred string) *ConstraintValueError {
		return &ConstraintValueError{Path: path, Node: desc, Predicate: pred, Value: orig}
	}
	if n.GT != nil && !(f > *n.GT) {
		return fail(fmt.Sprintf("gt=%v", *n.GT))
	}
	if n.GE != nil && !(f >= *n.GE) {
		return fail(fmt.Sprintf("ge=%v", *n.GE))
	}
	if n.LT != nil && !(f < *n.LT) {
		return fail(fmt.Sprintf("lt=%v", *n.LT))
	}
	if n.LE != nil && !(f <= *n.LE) {
		return fail(fmt.Sprintf("le=%v", *n.LE))
	}
	if n.Mul != nil {
		q := f / *n.Mul
		if q != float64(int64(q)) {
			return fail(fmt.Sprintf("mul=%v", *n.Mul))
		}
	}
	if n.MaxDigits != nil || n.DecimalPlaces != nil {
		digits, places := countDigits(f)
		if n.MaxDigits != nil && digits > *n.MaxDigits {
			return fail(fmt.Sprintf("maxdigits=%d", *n.MaxDigits))
		}
		if n.DecimalPlaces != nil && places > *n.DecimalPlaces {
			return fail(fmt.Sprintf("decimalplaces=%d", *n.DecimalPlaces))
		}
	}
	return nil
}

func (t *TextConstraint) check(s, desc, path string) *ConstraintValueError {
	if t == nil {
		return nil
	}
	fail := func(pred string) *ConstraintValueError {
		return &ConstraintValueError{Path: path, Node: desc, Predicate: pred, Value: s}
	}
	if t.MinLength != nil && len(s) < *t.MinLength {
		return fail(fmt.Sprintf("minlen=%d", *t.MinLength))
	}
	if t.MaxLength != nil && len(s) > *t.MaxLength {
		return fail(fmt.Sprintf("maxlen=%d", *t.MaxLength))
	}
	if t.Pattern != nil && !t.Pattern.MatchString(s) {
		return fail("pattern=" + t.Pattern.String())
	}
	return nil
}

func (c *Constraint) checkCollection(v any, path string) *ConstraintValueError {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "type=array", Value: v}
	}
	n := rv.Len()
	if c.Array != nil {
		if c.Array.MinItems != nil && n < *c.Array.MinItems {
			return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: fmt.Sprintf("minitems=%d", *c.Array.MinItems), Value: v}
		}
		if c.Array.MaxItems != nil && n > *c.Array.MaxItems {
			return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: fmt.Sprintf("maxitems=%d", *c.Array.MaxItems), Value: v}
		}
		if c.Array.Unique {
			seen := make(map[any]struct{}, n)
			for i := 0; i < n; i++ {
				k := canonKey(rv.Index(i).Interface())
				if _, dup := seen[k]; dup {
					return &ConstraintValueError{Path: joinPath(path, strconv.Itoa(i)), Node: c.Desc, Predicate: "unique", Value: rv.Index(i).Interface()}
				}
				seen[k] = struct{}{}
			}
		}
	}
	if c.Item != nil && c.Item.Declared {
		for i := 0; i < n; i++ {
			if err := c.Item.check(rv.Index(i).Interface(), joinPath(path, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Constraint) checkMapping(v any, path string) *ConstraintValueError {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "type=object", Value: v}
	}
	keys := make(map[string]reflect.Value, rv.Len())
	for _, kv := range rv.MapKeys() {
		keys[fmt.Sprint(kv.Interface())] = rv.MapIndex(kv)
	}
	mc := c.Entries
	if mc != nil {
		if mc.MinItems != nil && len(keys) < *mc.MinItems {
			return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: fmt.Sprintf("minitems=%d", *mc.MinItems), Value: v}
		}
		if mc.MaxItems != nil && len(keys) > *mc.MaxItems {
			return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: fmt.Sprintf("maxitems=%d", *mc.MaxItems), Value: v}
		}
		for _, req := range mc.RequiredKeys {
			if _, ok := keys[req]; !ok {
				return &ConstraintValueError{Path: joinPath(path, req), Node: c.Desc, Predicate: "required", Value: v}
			}
		}
		if mc.Total {
			declared := make(map[string]struct{}, len(mc.RequiredKeys)+len(mc.PerKey))
			for _, k := range mc.RequiredKeys {
				declared[k] = struct{}{}
			}
			for k := range mc.PerKey {
				declared[k] = struct{}{}
			}
			for k := range keys {
				if _, ok := declared[k]; !ok {
					return &ConstraintValueError{Path: joinPath(path, k), Node: c.Desc, Predicate: "total", Value: v}
				}
			}
		}
		if mc.KeyPattern != nil {
			for k := range keys {
				if !mc.KeyPattern.MatchString(k) {
					return &ConstraintValueError{Path: joinPath(path, k), Node: c.Desc, Predicate: "keypattern=" + mc.KeyPattern.String(), Value: k}
				}
			}
		}
		for k, deps := range mc.Dependencies {
			if _, ok := keys[k]; !ok {
				continue
			}
			for _, dep := range deps {
				if _, ok := keys[dep]; !ok {
					return &ConstraintValueError{Path: joinPath(path, dep), Node: c.Desc, Predicate: "requires=" + k + ">" + dep, Value: v}
				}
			}
		}
		for k, pc := range mc.PerKey {
			if mv, ok := keys[k]; ok {
				if err := pc.check(mv.Interface(), joinPath(path, k)); err != nil {
					return err
				}
			}
		}
	}
	if c.Value != nil && c.Value.Declared {
		for k, mv := range keys {
			if err := c.Value.check(mv.Interface(), joinPath(path, k)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Constraint) checkStruct(v any, path string) *ConstraintValueError {
	// A typed value of the struct's own Go type checks field-by-field via
	// reflection; a raw mapping checks by wire name.
	if c.Type != nil && v != nil && reflect.TypeOf(v) == c.Type {
		rv := reflect.ValueOf(v)
		for _, fc := range c.Fields {
			fv := rv.FieldByIndex(fc.Index)
			if err := fc.C.check(fv.Interface(), joinPath(path, fc.Name)); err != nil {
				return err
			}
		}
		return nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return &ConstraintValueError{Path: path, Node: c.Desc, Predicate: "type=object", Value: v}
	}
	entries := make(map[string]any, rv.Len())
	for _, kv := range rv.MapKeys() {
		entries[fmt.Sprint(kv.Interface())] = rv.MapIndex(kv).Interface()
	}
	for _, fc := range c.Fields {
		raw, ok := entries[fc.Alias]
		if !ok {
			raw, ok = entries[fc.Name]
		}
		if !ok {
			if fc.Required {
				return &ConstraintValueError{Path: joinPath(path, fc.Alias), Node: c.Desc, Predicate: "required", Value: v}
			}
			continue
		}
		if err := fc.C.check(raw, joinPath(path, fc.Alias)); err != nil {
			return err
		}
	}
	return nil
}

// countDigits reports total significant digits and decimal places of f.
func countDigits(f float64) (digits, places int) {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	whole = strings.TrimLeft(whole, "0")
	return len(whole) + len(frac), len(frac)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// asNumber widens any Go numeric value to float64.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	// Named numeric types reach here.
	rv := reflect.ValueOf(v)
	if rv.IsValid() && isNumericKind(rv.Kind()) {
		if isIntegerKind(rv.Kind()) {
			if rv.CanInt() {
				return float64(rv.Int()), true
			}
			return float64(rv.Uint()), true
		}
		return rv.Float(), true
	}
	return 0, false
}

// isNullish reports whether v is absent: nil, a nil pointer, or a nil
// interface/map/slice.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// deref unwraps one pointer level, leaving non-pointers untouched.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}
