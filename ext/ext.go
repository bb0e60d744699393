// Package ext provides extended leaf value types: strings with a validated
// interior. Each type satisfies typical.ScalarValue, so protocols construct
// them from a primitive on the way in and reduce them back on the way out.
package ext

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
)

// Email is an RFC 5322 address. Deserializing a malformed address fails.
type Email string

// DecodePrimitive populates the address from a string primitive.
func (e *Email) DecodePrimitive(raw any) error {
	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("email: expected string, got %T", raw)
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	*e = Email(addr.Address)
	return nil
}

// EncodePrimitive reduces the address to its string form.
func (e Email) EncodePrimitive() (any, error) {
	return string(e), nil
}

// Address returns the parsed form, or nil for the zero value.
func (e Email) Address() *mail.Address {
	if e == "" {
		return nil
	}
	addr, err := mail.ParseAddress(string(e))
	if err != nil {
		return nil
	}
	return addr
}

// URL is an absolute URL. Deserializing a relative or malformed URL fails.
type URL string

// DecodePrimitive populates the URL from a string primitive.
func (u *URL) DecodePrimitive(raw any) error {
	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("url: expected string, got %T", raw)
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if !parsed.IsAbs() {
		return errors.New("url: not absolute")
	}
	*u = URL(parsed.String())
	return nil
}

// EncodePrimitive reduces the URL to its string form.
func (u URL) EncodePrimitive() (any, error) {
	return string(u), nil
}

// Secret is a string that redacts itself everywhere it leaves the program:
// formatted output and serialization both emit the redacted form, so a
// serialize round trip loses the value. Reveal is the only way out.
type Secret string

// DecodePrimitive populates the secret from a string primitive.
func (s *Secret) DecodePrimitive(raw any) error {
	v, ok := raw.(string)
	if !ok {
		return fmt.Errorf("secret: expected string, got %T", raw)
	}
	*s = Secret(v)
	return nil
}

// EncodePrimitive reduces the secret to its redacted form. The real value
// never reaches the wire.
func (s Secret) EncodePrimitive() (any, error) {
	return s.String(), nil
}

// Reveal returns the real value.
func (s Secret) Reveal() string {
	return string(s)
}

func (s Secret) String() string {
	return "******"
}

// GoString prevents %#v from leaking the value.
func (s Secret) GoString() string {
	return `ext.Secret("******")`
}
