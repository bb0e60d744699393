// Package schema renders compiled constraint trees as JSON Schema
// (draft 2020-12) documents. Rendering is read-only over the constraint
// tree; recursive shapes become named entries under $defs referenced by
// $ref.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/seandstewart/typical"
)

// Schema is one JSON Schema node. Zero-valued fields are omitted from the
// encoded document.
type Schema struct {
	Ref   string `json:"$ref,omitempty"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`

	Format  string `json:"format,omitempty"`
	Pattern string `json:"pattern,omitempty"`

	Enum []any `json:"enum,omitempty"`

	Minimum          *float64 `json:"minimum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`

	MinLength *int `json:"minLength,omitempty"`
	MaxLength *int `json:"maxLength,omitempty"`

	Items       *Schema `json:"items,omitempty"`
	MinItems    *int    `json:"minItems,omitempty"`
	MaxItems    *int    `json:"maxItems,omitempty"`
	UniqueItems bool    `json:"uniqueItems,omitempty"`

	Properties           map[string]*Schema `json:"properties,omitempty"`
	PatternProperties    map[string]*Schema `json:"patternProperties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`
	MinProperties        *int               `json:"minProperties,omitempty"`
	MaxProperties        *int               `json:"maxProperties,omitempty"`
	DependentRequired    map[string][]string `json:"dependentRequired,omitempty"`

	AnyOf []*Schema `json:"anyOf,omitempty"`

	Nullable bool `json:"nullable,omitempty"`

	Defs map[string]*Schema `json:"$defs,omitempty"`
}

// Render builds the JSON Schema document for a resolved protocol.
func Render(p *typical.Protocol) *Schema {
	r := &renderer{
		defs: make(map[string]*Schema),
		seen: make(map[*typical.Constraint]string),
	}
	root := r.render(p.Constraint())
	if len(r.defs) > 0 {
		root.Defs = r.defs
	}
	return root
}

// MarshalIndent encodes the schema as indented JSON.
func (s *Schema) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

type renderer struct {
	defs map[string]*Schema
	seen map[*typical.Constraint]string
}

func (r *renderer) render(c *typical.Constraint) *Schema {
	if c == nil {
		return &Schema{}
	}
	switch c.Kind {
	case typical.KindScalar:
		return scalarSchema(c)
	case typical.KindOptional:
		inner := r.render(c.Inner)
		inner.Nullable = true
		return inner
	case typical.KindCollection:
		return r.collectionSchema(c)
	case typical.KindMapping:
		return r.mappingSchema(c)
	case typical.KindStruct:
		return r.structSchema(c)
	case typical.KindEnum, typical.KindLiteral:
		return &Schema{Title: c.Desc, Enum: append([]any(nil), c.Values...)}
	case typical.KindUnion:
		out := &Schema{}
		for _, v := range c.Variants {
			out.AnyOf = append(out.AnyOf, r.render(v))
		}
		return out
	case typical.KindRecursive:
		if c.Ref != nil {
			return r.refSchema(c.Ref)
		}
		return &Schema{Title: c.Desc}
	}
	return &Schema{}
}

// refSchema emits a $defs entry for a recursion target and returns a $ref
// pointing at it.
func (r *renderer) refSchema(target *typical.Constraint) *Schema {
	if name, ok := r.seen[target]; ok {
		return &Schema{Ref: "#/$defs/" + name}
	}
	name := defName(target.Desc, r.defs)
	r.seen[target] = name
	// Placeholder first: the definition may reach itself while rendering.
	r.defs[name] = &Schema{}
	*r.defs[name] = *r.render(target)
	return &Schema{Ref: "#/$defs/" + name}
}

func defName(desc string, defs map[string]*Schema) string {
	if desc == "" {
		desc = "anonymous"
	}
	name := desc
	for i := 2; ; i++ {
		if _, taken := defs[name]; !taken {
			return name
		}
		name = fmt.Sprintf("%s%d", desc, i)
	}
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

func scalarSchema(c *typical.Constraint) *Schema {
	s := &Schema{}
	kind := reflect.Invalid
	if c.Type != nil {
		kind = c.Type.Kind()
	}
	switch {
	case c.Type == timeType:
		s.Type, s.Format = "string", "date-time"
	case c.Type == uuidType:
		s.Type, s.Format = "string", "uuid"
	case c.Type != nil && kind == reflect.Slice && c.Type.Elem().Kind() == reflect.Uint8:
		s.Type, s.Format = "string", "byte"
	case kind == reflect.String:
		s.Type = "string"
	case kind == reflect.Bool:
		s.Type = "boolean"
	case kind == reflect.Float32 || kind == reflect.Float64:
		s.Type = "number"
	case kind >= reflect.Int && kind <= reflect.Uint64:
		s.Type = "integer"
	}
	if n := c.Numeric; n != nil {
		s.ExclusiveMinimum = n.GT
		s.Minimum = n.GE
		s.ExclusiveMaximum = n.LT
		s.Maximum = n.LE
		s.MultipleOf = n.Mul
	}
	if t := c.Text; t != nil {
		s.MinLength = t.MinLength
		s.MaxLength = t.MaxLength
		if t.Pattern != nil {
			s.Pattern = t.Pattern.String()
		}
	}
	return s
}

func (r *renderer) collectionSchema(c *typical.Constraint) *Schema {
	s := &Schema{Type: "array", Items: r.render(c.Item)}
	if a := c.Array; a != nil {
		s.MinItems = a.MinItems
		s.MaxItems = a.MaxItems
		s.UniqueItems = a.Unique
	}
	return s
}

func (r *renderer) mappingSchema(c *typical.Constraint) *Schema {
	s := &Schema{Type: "object", AdditionalProperties: r.render(c.Value)}
	if m := c.Entries; m != nil {
		s.MinProperties = m.MinItems
		s.MaxProperties = m.MaxItems
		s.Required = append([]string(nil), m.RequiredKeys...)
		if m.KeyPattern != nil {
			s.PatternProperties = map[string]*Schema{
				m.KeyPattern.String(): r.render(c.Value),
			}
		}
		if len(m.PerKey) > 0 {
			s.Properties = make(map[string]*Schema, len(m.PerKey))
			for k, pc := range m.PerKey {
				s.Properties[k] = r.render(pc)
			}
		}
		if len(m.Dependencies) > 0 {
			s.DependentRequired = make(map[string][]string, len(m.Dependencies))
			for k, deps := range m.Dependencies {
				s.DependentRequired[k] = append([]string(nil), deps...)
			}
		}
		if m.Total {
			s.AdditionalProperties = false
		}
	}
	return s
}

func (r *renderer) structSchema(c *typical.Constraint) *Schema {
	s := &Schema{
		Title:                c.Desc,
		Type:                 "object",
		Properties:           make(map[string]*Schema, len(c.Fields)),
		AdditionalProperties: true,
	}
	for _, f := range c.Fields {
		s.Properties[f.Alias] = r.render(f.C)
		if f.Required {
			s.Required = append(s.Required, f.Alias)
		}
	}
	return s
}
