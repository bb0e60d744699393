package ext_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/seandstewart/typical"
	"github.com/seandstewart/typical/ext"
)

func TestEmail(t *testing.T) {
	var e ext.Email
	if err := e.DecodePrimitive("Ada Lovelace <ada@example.com>"); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(e) != "ada@example.com" {
		t.Errorf("email = %q, want the bare address", e)
	}

	if err := e.DecodePrimitive("not-an-address"); err == nil {
		t.Error("malformed address accepted")
	}
	if err := e.DecodePrimitive(42); err == nil {
		t.Error("non-string accepted")
	}

	out, err := ext.Email("ada@example.com").EncodePrimitive()
	if err != nil || out != "ada@example.com" {
		t.Errorf("encode = (%v, %v)", out, err)
	}
}

func TestURL(t *testing.T) {
	var u ext.URL
	if err := u.DecodePrimitive("https://example.com/x?q=1"); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := u.DecodePrimitive("/relative/path"); err == nil {
		t.Error("relative URL accepted")
	}
	if err := u.DecodePrimitive("://"); err == nil {
		t.Error("malformed URL accepted")
	}
}

func TestSecretRedaction(t *testing.T) {
	s := ext.Secret("hunter2")
	if got := fmt.Sprintf("%v %s %#v", s, s, s); strings.Contains(got, "hunter2") {
		t.Errorf("formatted output leaked the secret: %q", got)
	}
	if s.Reveal() != "hunter2" {
		t.Errorf("Reveal = %q", s.Reveal())
	}
	out, err := s.EncodePrimitive()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if enc, _ := out.(string); strings.Contains(enc, "hunter2") {
		t.Errorf("encode leaked the secret: %q", enc)
	}
}

func TestExtTypesResolveAsScalars(t *testing.T) {
	type signup struct {
		Email   ext.Email  `typical:"email"`
		Website ext.URL    `typical:"website"`
		Token   ext.Secret `typical:"token"`
	}
	p, err := typical.Resolve(signup{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	v, err := p.Deserialize([]byte(`{
		"email": "ada@example.com",
		"website": "https://example.com",
		"token": "hunter2"
	}`))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	got := v.(signup)
	if got.Email != "ada@example.com" || got.Token.Reveal() != "hunter2" {
		t.Errorf("deserialize = %+v", got)
	}

	if _, err := p.Deserialize([]byte(`{"email":"nope","website":"https://x.dev","token":"t"}`)); !errors.Is(err, typical.ErrDeserialize) {
		t.Errorf("bad email = %v, want ErrDeserialize", err)
	}

	out, err := p.Serialize(got)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	m := out.(map[string]any)
	if tok, _ := m["token"].(string); strings.Contains(tok, "hunter2") {
		t.Errorf("serialized token leaked the secret: %q", m["token"])
	}
	if m["email"] != "ada@example.com" {
		t.Errorf("serialized email = %v", m["email"])
	}

	// ext types classify as scalars, not structs.
	if kind := typicalKind(t, reflect.TypeFor[ext.Email]()); kind != typical.KindScalar {
		t.Errorf("ext.Email kind = %v, want scalar", kind)
	}
}

func typicalKind(t *testing.T, token any) typical.Kind {
	t.Helper()
	p, err := typical.Resolve(token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return p.Annotation().Kind
}
