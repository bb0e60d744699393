package typical

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrResolution indicates a type reference could not be resolved.
	ErrResolution = errors.New("resolution failed")

	// ErrConstraintSyntax indicates a constraint declaration is conflicting or malformed.
	ErrConstraintSyntax = errors.New("invalid constraint")

	// ErrConstraintValue indicates a value failed a compiled constraint.
	ErrConstraintValue = errors.New("constraint violated")

	// ErrDeserialize indicates input could not be coerced to the expected shape.
	ErrDeserialize = errors.New("deserialize failed")

	// ErrSerialize indicates a value could not be reduced to a JSON-safe primitive.
	ErrSerialize = errors.New("serialize failed")

	// ErrTranslation indicates a required target field had no source value and no default.
	ErrTranslation = errors.New("translation failed")
)

// ResolutionError reports an unresolvable or ambiguous type reference.
// It names the missing symbol and, when known, the enclosing type that
// referenced it.
type ResolutionError struct {
	Symbol    string // Unresolved symbol or type description
	Enclosing string // Type whose resolution required the symbol, if any
	Reason    string // Human-readable cause
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(ErrResolution.Error())
	if e.Symbol != "" {
		fmt.Fprintf(&b, ": %q", e.Symbol)
	}
	if e.Enclosing != "" {
		fmt.Fprintf(&b, " (referenced by %s)", e.Enclosing)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() error {
	return ErrResolution
}

// ConstraintSyntaxError reports a conflicting or malformed constraint
// declaration. It is raised while compiling a constraint tree, before any
// value is processed.
type ConstraintSyntaxError struct {
	Field  string // Field or node the constraint was declared on
	Spec   string // Offending declaration text
	Reason string // Why the declaration is invalid
}

func (e *ConstraintSyntaxError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s on %s: %s (%q)", ErrConstraintSyntax.Error(), e.Field, e.Reason, e.Spec)
	}
	return fmt.Sprintf("%s: %s (%q)", ErrConstraintSyntax.Error(), e.Reason, e.Spec)
}

func (e *ConstraintSyntaxError) Unwrap() error {
	return ErrConstraintSyntax
}

// ConstraintValueError reports a value that failed a compiled constraint at
// validate time. Path is a dotted locator (field name / index / key)
// accumulated as the violation unwinds.
type ConstraintValueError struct {
	Path      string // Dotted path to the offending value; empty at the root
	Node      string // Description of the constrained node, e.g. "integer", "User"
	Predicate string // The violated predicate, e.g. "ge=0"
	Value     any    // The offending value
}

func (e *ConstraintValueError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "value"
	}
	return fmt.Sprintf("%s: %s %v does not satisfy %s (%s)",
		ErrConstraintValue.Error(), loc, e.Value, e.Predicate, e.Node)
}

func (e *ConstraintValueError) Unwrap() error {
	return ErrConstraintValue
}

// at returns a copy of the violation relocated under path. Used by composite
// checks to accumulate the dotted path while unwinding.
func (e *ConstraintValueError) at(path string) *ConstraintValueError {
	c := *e
	c.Path = joinPath(path, e.Path)
	return &c
}

// DeserializeError reports input that could not be coerced into the expected
// shape. In struct, collection, and union contexts the Path carries the
// accumulated location. Generic-union dispatch failures aggregate every
// member's failure in Causes.
type DeserializeError struct {
	Path     string  // Dotted path to the offending value; empty at the root
	Expected string  // Description of the expected node
	Value    any     // The offending raw value
	Causes   []error // Per-member failures for generic-union dispatch
}

func (e *DeserializeError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "value"
	}
	if len(e.Causes) > 0 {
		parts := make([]string, len(e.Causes))
		for i, c := range e.Causes {
			parts[i] = c.Error()
		}
		return fmt.Sprintf("%s: %s: no union member accepted %v: [%s]",
			ErrDeserialize.Error(), loc, e.Value, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("%s: %s: cannot coerce %v (%T) to %s",
		ErrDeserialize.Error(), loc, e.Value, e.Value, e.Expected)
}

func (e *DeserializeError) Unwrap() error {
	return ErrDeserialize
}

// at returns a copy of the error relocated under path.
func (e *DeserializeError) at(path string) *DeserializeError {
	c := *e
	c.Path = joinPath(path, e.Path)
	return &c
}

// TranslationError reports a required target field with no source value and
// no declared default.
type TranslationError struct {
	Field  string // Target field that could not be populated
	Target string // Target type name
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("%s: required field %s of %s has no source value and no default",
		ErrTranslation.Error(), e.Field, e.Target)
}

func (e *TranslationError) Unwrap() error {
	return ErrTranslation
}

// joinPath joins two dotted path segments, tolerating empty segments.
func joinPath(outer, inner string) string {
	switch {
	case outer == "":
		return inner
	case inner == "":
		return outer
	default:
		return outer + "." + inner
	}
}

// newDeserializeError builds a DeserializeError for a leaf coercion failure.
func newDeserializeError(expected string, value any) *DeserializeError {
	return &DeserializeError{Expected: expected, Value: value}
}

// relocate rewrites the path of known error types under path. Unknown errors
// pass through unchanged so wrapped causes keep their original context.
func relocate(err error, path string) error {
	if path == "" || err == nil {
		return err
	}
	var de *DeserializeError
	if errors.As(err, &de) {
		return de.at(path)
	}
	var cve *ConstraintValueError
	if errors.As(err, &cve) {
		return cve.at(path)
	}
	return err
}
