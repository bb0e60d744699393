package typical

import (
	"errors"
	"strings"
	"testing"
)

func TestSentinelUnwrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"resolution", &ResolutionError{Symbol: "x"}, ErrResolution},
		{"constraint syntax", &ConstraintSyntaxError{Field: "f", Spec: "gt=0,ge=0"}, ErrConstraintSyntax},
		{"constraint value", &ConstraintValueError{Predicate: "ge=0"}, ErrConstraintValue},
		{"deserialize", &DeserializeError{Expected: "int"}, ErrDeserialize},
		{"translation", &TranslationError{Field: "f", Target: "T"}, ErrTranslation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tt.err)
			}
		})
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct{ outer, inner, want string }{
		{"", "", ""},
		{"a", "", "a"},
		{"", "b", "b"},
		{"a", "b", "a.b"},
		{"a.b", "c", "a.b.c"},
	}
	for _, tt := range tests {
		if got := joinPath(tt.outer, tt.inner); got != tt.want {
			t.Errorf("joinPath(%q, %q) = %q, want %q", tt.outer, tt.inner, got, tt.want)
		}
	}
}

func TestRelocate(t *testing.T) {
	de := newDeserializeError("int", "x")
	moved := relocate(de, "items.2")
	var got *DeserializeError
	if !errors.As(moved, &got) {
		t.Fatalf("relocate changed the type: %T", moved)
	}
	if got.Path != "items.2" {
		t.Errorf("path = %q, want items.2", got.Path)
	}
	if de.Path != "" {
		t.Error("relocate must not mutate the original")
	}

	cve := &ConstraintValueError{Path: "age", Predicate: "ge=0"}
	moved = relocate(cve, "user")
	var gotCVE *ConstraintValueError
	if !errors.As(moved, &gotCVE) {
		t.Fatalf("relocate changed the type: %T", moved)
	}
	if gotCVE.Path != "user.age" {
		t.Errorf("path = %q, want user.age", gotCVE.Path)
	}

	plain := errors.New("opaque")
	if relocate(plain, "p") != plain {
		t.Error("unknown errors must pass through untouched")
	}
}

func TestDeserializeErrorMessage(t *testing.T) {
	err := &DeserializeError{Path: "age", Expected: "int", Value: "x"}
	msg := err.Error()
	for _, want := range []string{"age", "int", "x"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}

	agg := &DeserializeError{
		Expected: "union[int|bool]",
		Value:    "x",
		Causes:   []error{newDeserializeError("int", "x"), newDeserializeError("bool", "x")},
	}
	if !strings.Contains(agg.Error(), "no union member") {
		t.Errorf("aggregate message = %q", agg.Error())
	}
}
