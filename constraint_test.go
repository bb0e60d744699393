package typical

import (
	"errors"
	"reflect"
	"testing"
)

func mustAnnotate(t *testing.T, token any) *Annotation {
	t.Helper()
	a, err := newNormalizer(nil, nil).normalize(token, "")
	if err != nil {
		t.Fatalf("normalize %T: %v", token, err)
	}
	return a
}

func TestConstraintSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		token any
		spec  string
	}{
		{"gt and ge conflict", reflect.TypeFor[int](), "gt=0,ge=0"},
		{"lt and le conflict", reflect.TypeFor[float64](), "lt=10,le=10"},
		{"unknown numeric predicate", reflect.TypeFor[int](), "length=3"},
		{"unknown text predicate", reflect.TypeFor[string](), "gt=1"},
		{"duplicate predicate", reflect.TypeFor[int](), "gt=0,gt=1"},
		{"non-numeric bound", reflect.TypeFor[int](), "gt=abc"},
		{"bad pattern", reflect.TypeFor[string](), "pattern=["},
		{"required without total", reflect.TypeFor[map[string]int](), "required=a|b"},
		{"unknown array predicate", reflect.TypeFor[[]int](), "pattern=x"},
		{"constraint on bool", reflect.TypeFor[bool](), "gt=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustAnnotate(t, tt.token)
			if _, err := compileConstraints(a, tt.spec); !errors.Is(err, ErrConstraintSyntax) {
				t.Errorf("error = %v, want ErrConstraintSyntax", err)
			}
		})
	}
}

func TestConstraintStructSpecRejected(t *testing.T) {
	a := mustAnnotate(t, reflect.TypeFor[ntAddress]())
	if _, err := compileConstraints(a, "minlen=1"); !errors.Is(err, ErrConstraintSyntax) {
		t.Errorf("error = %v, want ErrConstraintSyntax", err)
	}
}

func TestConstraintBadFieldTagFailsCompile(t *testing.T) {
	type holder struct {
		N int `constraint:"gt=0,ge=0"`
	}
	a := mustAnnotate(t, reflect.TypeFor[holder]())
	if _, err := compileConstraints(a, ""); !errors.Is(err, ErrConstraintSyntax) {
		t.Errorf("error = %v, want ErrConstraintSyntax", err)
	}
}

func TestNumericCheck(t *testing.T) {
	a := mustAnnotate(t, reflect.TypeFor[int]())
	c, err := compileConstraints(a, "ge=0,lt=100,mul=5")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, ok := range []any{0, 5, 95, int64(10), float64(15)} {
		if err := c.Check(ok); err != nil {
			t.Errorf("Check(%v) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []any{-5, 100, 7, "ten", 2.5} {
		if err := c.Check(bad); !errors.Is(err, ErrConstraintValue) {
			t.Errorf("Check(%v) = %v, want ErrConstraintValue", bad, err)
		}
	}
}

func TestNumericDigits(t *testing.T) {
	a := mustAnnotate(t, reflect.TypeFor[float64]())
	c, err := compileConstraints(a, "maxdigits=5,decimalplaces=2")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := c.Check(123.45); err != nil {
		t.Errorf("Check(123.45) = %v, want nil", err)
	}
	if err := c.Check(1234.56); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("Check(1234.56) = %v, want maxdigits violation", err)
	}
	if err := c.Check(1.234); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("Check(1.234) = %v, want decimalplaces violation", err)
	}
}

func TestTextCheck(t *testing.T) {
	a := mustAnnotate(t, reflect.TypeFor[string]())
	c, err := compileConstraints(a, "minlen=2,maxlen=5,pattern=^[a-z]+$")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := c.Check("abc"); err != nil {
		t.Errorf("Check(abc) = %v, want nil", err)
	}
	for _, bad := range []any{"a", "toolong", "ABC", 42} {
		if err := c.Check(bad); !errors.Is(err, ErrConstraintValue) {
			t.Errorf("Check(%v) = %v, want ErrConstraintValue", bad, err)
		}
	}
}

func TestArrayCheck(t *testing.T) {
	a := mustAnnotate(t, reflect.TypeFor[[]int]())
	c, err := compileConstraints(a, "minitems=1,maxitems=3,unique")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := c.Check([]int{1, 2, 3}); err != nil {
		t.Errorf("Check = %v, want nil", err)
	}
	if err := c.Check([]int{}); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("empty = %v, want minitems violation", err)
	}
	if err := c.Check([]int{1, 2, 3, 4}); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("oversized = %v, want maxitems violation", err)
	}
	err = c.Check([]int{1, 2, 1})
	var cve *ConstraintValueError
	if !errors.As(err, &cve) {
		t.Fatalf("duplicate = %v, want ConstraintValueError", err)
	}
	if cve.Path != "2" {
		t.Errorf("duplicate path = %q, want %q", cve.Path, "2")
	}
}

func TestMappingCheck(t *testing.T) {
	a := mustAnnotate(t, reflect.TypeFor[map[string]int]())
	c, err := compileConstraints(a, "total,required=host|port,requires=host>port")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := c.Check(map[string]int{"host": 1, "port": 2}); err != nil {
		t.Errorf("Check = %v, want nil", err)
	}
	if err := c.Check(map[string]int{"host": 1}); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("missing required = %v, want violation", err)
	}
	if err := c.Check(map[string]int{"host": 1, "port": 2, "extra": 3}); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("undeclared key under total = %v, want violation", err)
	}
}

func TestMappingKeyPattern(t *testing.T) {
	a := mustAnnotate(t, reflect.TypeFor[map[string]int]())
	c, err := compileConstraints(a, "keypattern=^[a-z]+$")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := c.Check(map[string]int{"ok": 1}); err != nil {
		t.Errorf("Check = %v, want nil", err)
	}
	if err := c.Check(map[string]int{"NOT-OK": 1}); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("bad key = %v, want violation", err)
	}
}

func TestStructCheckTypedAndRaw(t *testing.T) {
	type account struct {
		Name string `typical:"name" constraint:"minlen=1"`
		Age  int    `typical:"age" constraint:"ge=0"`
	}
	a := mustAnnotate(t, reflect.TypeFor[account]())
	c, err := compileConstraints(a, "")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if err := c.Check(account{Name: "ada", Age: 36}); err != nil {
		t.Errorf("typed Check = %v, want nil", err)
	}
	if err := c.Check(account{Name: "", Age: 36}); !errors.Is(err, ErrConstraintValue) {
		t.Errorf("typed violation = %v, want ErrConstraintValue", err)
	}

	if err := c.Check(map[string]any{"name": "ada", "age": 36}); err != nil {
		t.Errorf("raw Check = %v, want nil", err)
	}
	err = c.Check(map[string]any{"name": "ada"})
	var cve *ConstraintValueError
	if !errors.As(err, &cve) {
		t.Fatalf("missing required = %v, want ConstraintValueError", err)
	}
	if cve.Path != "age" || cve.Predicate != "required" {
		t.Errorf("violation = (%q, %q), want (age, required)", cve.Path, cve.Predicate)
	}
}

func TestCheckPathAccumulation(t *testing.T) {
	type item struct {
		Qty int `typical:"qty" constraint:"gt=0"`
	}
	type order struct {
		Items []item `typical:"items"`
	}
	a := mustAnnotate(t, reflect.TypeFor[order]())
	c, err := compileConstraints(a, "")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	err = c.Check(order{Items: []item{{Qty: 1}, {Qty: 0}}})
	var cve *ConstraintValueError
	if !errors.As(err, &cve) {
		t.Fatalf("Check = %v, want ConstraintValueError", err)
	}
	if cve.Path != "Items.1.Qty" {
		t.Errorf("path = %q, want %q", cve.Path, "Items.1.Qty")
	}
}

func TestConstraintRecursiveTerminates(t *testing.T) {
	a := mustAnnotate(t, reflect.TypeFor[ntNode]())
	c, err := compileConstraints(a, "")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	n := &ntNode{Value: 1, Next: &ntNode{Value: 2}}
	if err := c.Check(*n); err != nil {
		t.Errorf("Check = %v, want nil", err)
	}
}
