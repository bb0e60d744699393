// Package testing provides shared fixtures for exercising protocols:
// representative struct shapes, a recursive type, tagged union members, and
// a registered enum.
package testing

import (
	stdtesting "testing"
	"time"

	"github.com/google/uuid"
	"github.com/seandstewart/typical"
)

// User is the canonical kitchen-sink fixture: renames, constraints,
// defaults, optionals, and an excluded field.
type User struct {
	ID        uuid.UUID `typical:"id"`
	Name      string    `typical:"name" constraint:"minlen=1,maxlen=64,strip"`
	Email     string    `typical:"email"`
	Age       int       `typical:"age" constraint:"ge=0,lt=150"`
	Plan      string    `typical:"plan" default:"free"`
	Nickname  *string   `typical:"nickname"`
	CreatedAt time.Time `typical:"created_at"`
	password  string    //nolint:unused // verifies unexported fields are skipped
}

// Profile pairs with User for translation tests: same data, different
// naming convention.
type Profile struct {
	ID       uuid.UUID `typical:"Id"`
	FullName string    `typical:"Name"`
	Email    string    `typical:"Email"`
	Age      int       `typical:"Age"`
	Plan     string    `typical:"Plan" default:"free"`
}

// Node is a self-referential tree shape.
type Node struct {
	Value    int     `typical:"value"`
	Children []*Node `typical:"children"`
}

// Circle and Rectangle form a tagged union on their "kind" field.
type Circle struct {
	Kind   string  `typical:"kind" literal:"circle"`
	Radius float64 `typical:"radius" constraint:"gt=0"`
}

type Rectangle struct {
	Kind   string  `typical:"kind" literal:"rectangle"`
	Width  float64 `typical:"width" constraint:"gt=0"`
	Height float64 `typical:"height" constraint:"gt=0"`
}

// Shape is the union token over Circle and Rectangle.
func Shape() any {
	return typical.UnionOf(Circle{}, Rectangle{})
}

// Status is a registered enum fixture.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

// StatusEnum declares the Status member set.
func StatusEnum() *typical.EnumType {
	return typical.EnumOf("Status", map[string]Status{
		"Active":   StatusActive,
		"Inactive": StatusInactive,
		"Deleted":  StatusDeleted,
	})
}

// MustResolve resolves a token, failing the test on error.
func MustResolve(tb stdtesting.TB, token any, opts ...typical.Option) *typical.Protocol {
	tb.Helper()
	p, err := typical.Resolve(token, opts...)
	if err != nil {
		tb.Fatalf("resolve %T: %v", token, err)
	}
	return p
}
