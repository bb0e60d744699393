package typical

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Case selects the case-style transform applied to wire field names.
// Use CaseSnake et al. in SerdeFlags.Case.
type Case string

const (
	// CaseNone leaves field names untouched.
	CaseNone Case = ""

	// CaseSnake renders field names as lower_snake_case.
	CaseSnake Case = "snake"

	// CaseCamel renders field names as lowerCamelCase.
	CaseCamel Case = "camel"

	// CasePascal renders field names as UpperCamelCase.
	CasePascal Case = "pascal"

	// CaseKebab renders field names as lower-kebab-case.
	CaseKebab Case = "kebab"
)

// validCases contains all valid case styles for flag validation.
var validCases = map[Case]bool{
	CaseNone:   true,
	CaseSnake:  true,
	CaseCamel:  true,
	CasePascal: true,
	CaseKebab:  true,
}

// IsValidCase returns true if the case style is known.
func IsValidCase(c Case) bool {
	return validCases[c]
}

// SerdeFlags is the immutable configuration of a Protocol. It participates
// in the resolver cache key: the same type under different flags yields
// distinct Protocols.
type SerdeFlags struct {
	// Rename maps Go field names to wire names, overriding tags.
	Rename map[string]string
	// Exclude lists Go field names dropped from both directions.
	Exclude []string
	// Include, when non-empty, restricts serialization to the named fields.
	Include []string
	// Omit lists values omitted from serialized output.
	Omit []any
	// Case is the case-style transform applied to wire names.
	Case Case
	// CaseInsensitive matches incoming field names without regard to case.
	CaseInsensitive bool
}

// fingerprint renders a stable identity string for the flag set, suitable
// for use in the resolver cache key.
func (f SerdeFlags) fingerprint() string {
	var b strings.Builder
	if len(f.Rename) > 0 {
		keys := make([]string, 0, len(f.Rename))
		for k := range f.Rename {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("rename{")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%s,", k, f.Rename[k])
		}
		b.WriteString("}")
	}
	if len(f.Exclude) > 0 {
		ex := append([]string(nil), f.Exclude...)
		sort.Strings(ex)
		fmt.Fprintf(&b, "exclude{%s}", strings.Join(ex, ","))
	}
	if len(f.Include) > 0 {
		in := append([]string(nil), f.Include...)
		sort.Strings(in)
		fmt.Fprintf(&b, "include{%s}", strings.Join(in, ","))
	}
	if len(f.Omit) > 0 {
		parts := make([]string, len(f.Omit))
		for i, v := range f.Omit {
			parts[i] = fmt.Sprintf("%T:%v", v, v)
		}
		sort.Strings(parts)
		fmt.Fprintf(&b, "omit{%s}", strings.Join(parts, ","))
	}
	if f.Case != CaseNone {
		fmt.Fprintf(&b, "case{%s}", f.Case)
	}
	if f.CaseInsensitive {
		b.WriteString("fold")
	}
	return b.String()
}

// excluded reports whether the Go field name is excluded by the flag set.
func (f SerdeFlags) excluded(name string) bool {
	for _, ex := range f.Exclude {
		if ex == name {
			return true
		}
	}
	if len(f.Include) > 0 {
		for _, in := range f.Include {
			if in == name {
				return false
			}
		}
		return true
	}
	return false
}

// omitted reports whether a serialized value is omitted by the flag set.
func (f SerdeFlags) omitted(v any) bool {
	for _, o := range f.Omit {
		if o == v {
			return true
		}
	}
	return false
}

// wireName computes the wire name for a field: explicit rename first, then
// the tag alias, then the case transform.
func (f SerdeFlags) wireName(goName, alias string) string {
	if n, ok := f.Rename[goName]; ok {
		return n
	}
	if alias != goName && alias != "" {
		return alias
	}
	return transformCase(alias, f.Case)
}

// transformCase applies a case style to a Go-style identifier.
func transformCase(name string, c Case) string {
	if c == CaseNone || name == "" {
		return name
	}
	words := splitWords(name)
	switch c {
	case CaseSnake:
		return strings.Join(lowerAll(words), "_")
	case CaseKebab:
		return strings.Join(lowerAll(words), "-")
	case CaseCamel:
		out := make([]string, len(words))
		for i, w := range words {
			if i == 0 {
				out[i] = strings.ToLower(w)
			} else {
				out[i] = titleWord(w)
			}
		}
		return strings.Join(out, "")
	case CasePascal:
		out := make([]string, len(words))
		for i, w := range words {
			out[i] = titleWord(w)
		}
		return strings.Join(out, "")
	default:
		return name
	}
}

// splitWords breaks an identifier at case boundaries and separators.
// Consecutive capitals are treated as one acronym word.
func splitWords(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (len(cur) > 0 && nextLower) {
				flush()
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
