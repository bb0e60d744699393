package typical

import (
	"errors"
	"reflect"
	"testing"
)

type utCard struct {
	Method string `typical:"method" literal:"card"`
	Number string `typical:"number"`
}

type utWire struct {
	Method string `typical:"method" literal:"wire"`
	IBAN   string `typical:"iban"`
}

func TestTaggedUnionDispatch(t *testing.T) {
	p := mustResolve(t, UnionOf(utCard{}, utWire{}))
	if p.Annotation().Discriminator == nil {
		t.Fatal("expected a tagged union")
	}

	v, err := p.Deserialize([]byte(`{"method":"wire","iban":"DE89"}`))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	w, ok := v.(utWire)
	if !ok {
		t.Fatalf("got %T, want utWire", v)
	}
	if w.IBAN != "DE89" {
		t.Errorf("iban = %q", w.IBAN)
	}

	v, err = p.Deserialize(map[string]any{"method": "card", "number": "4111"})
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if _, ok := v.(utCard); !ok {
		t.Fatalf("got %T, want utCard", v)
	}
}

func TestTaggedUnionErrors(t *testing.T) {
	p := mustResolve(t, UnionOf(utCard{}, utWire{}))

	if _, err := p.Deserialize(map[string]any{"number": "4111"}); !errors.Is(err, ErrDeserialize) {
		t.Errorf("missing discriminator = %v, want ErrDeserialize", err)
	}
	if _, err := p.Deserialize(map[string]any{"method": "cash"}); !errors.Is(err, ErrDeserialize) {
		t.Errorf("unknown discriminator value = %v, want ErrDeserialize", err)
	}
	if _, err := p.Deserialize(42); !errors.Is(err, ErrDeserialize) {
		t.Errorf("non-object = %v, want ErrDeserialize", err)
	}
}

func TestTaggedUnionTypedInput(t *testing.T) {
	p := mustResolve(t, UnionOf(utCard{}, utWire{}))
	v, err := p.Deserialize(utCard{Method: "card", Number: "4111"})
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if v.(utCard).Number != "4111" {
		t.Errorf("typed input = %+v", v)
	}
}

func TestGenericUnionDeclarationOrder(t *testing.T) {
	intFirst := mustResolve(t, UnionOf(reflect.TypeFor[int](), reflect.TypeFor[string]()))
	v, err := intFirst.Deserialize("1")
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if v != 1 {
		t.Errorf("int-first union = %v (%T), want 1", v, v)
	}

	stringFirst := mustResolve(t, UnionOf(reflect.TypeFor[string](), reflect.TypeFor[int]()))
	v, err = stringFirst.Deserialize("1")
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if v != "1" {
		t.Errorf("string-first union = %v (%T), want \"1\"", v, v)
	}
}

func TestGenericUnionBareString(t *testing.T) {
	// A string that is not a wire document falls through to member
	// dispatch instead of failing the codec decode.
	p := mustResolve(t, UnionOf(reflect.TypeFor[string](), reflect.TypeFor[int]()))
	v, err := p.Deserialize("hello")
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if v != "hello" {
		t.Errorf("got %v (%T), want %q", v, v, "hello")
	}
}

func TestGenericUnionAggregatesFailures(t *testing.T) {
	p := mustResolve(t, UnionOf(reflect.TypeFor[int](), reflect.TypeFor[bool]()))
	_, err := p.Deserialize("neither")
	var de *DeserializeError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want DeserializeError", err)
	}
	if len(de.Causes) != 2 {
		t.Errorf("causes = %d, want one per member", len(de.Causes))
	}
}

func TestUnionSerialize(t *testing.T) {
	p := mustResolve(t, UnionOf(utCard{}, utWire{}))
	out, err := p.Serialize(utWire{Method: "wire", IBAN: "DE89"})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	m := out.(map[string]any)
	if m["method"] != "wire" || m["iban"] != "DE89" {
		t.Errorf("serialize = %v", m)
	}

	if _, err := p.Serialize(42); !errors.Is(err, ErrSerialize) {
		t.Errorf("foreign value = %v, want ErrSerialize", err)
	}
}

func TestNullableUnionProtocol(t *testing.T) {
	p := mustResolve(t, UnionOf(nil, utCard{}, utWire{}))
	v, err := p.Deserialize(nil)
	if err != nil {
		t.Fatalf("deserialize nil: %v", err)
	}
	if v != nil {
		t.Errorf("nil input = %v, want nil", v)
	}

	v, err = p.Deserialize(map[string]any{"method": "card", "number": "4111"})
	if err != nil {
		t.Fatalf("deserialize member: %v", err)
	}
	if _, ok := v.(utCard); !ok {
		t.Errorf("got %T, want utCard", v)
	}
}
