// Package settings supplies field defaults from the process environment and
// TOML files. Providers plug into resolution via
// typical.WithDefaultsProvider; their values are read once at protocol build
// time and baked into the compiled protocol.
package settings

import (
	"os"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
)

// Env returns a provider that reads defaults from environment variables.
// A field named ServerPort with prefix "APP" resolves from APP_SERVER_PORT;
// aliases are tried after the Go name.
func Env(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

// EnvProvider resolves field defaults from the environment.
type EnvProvider struct {
	prefix string
}

// Source identifies the provider for protocol cache keying.
func (p *EnvProvider) Source() string {
	return "env:" + p.prefix
}

// Default looks up the field's environment variable.
func (p *EnvProvider) Default(field string, aliases ...string) (any, bool) {
	for _, name := range append([]string{field}, aliases...) {
		key := envKey(name)
		if p.prefix != "" {
			key = p.prefix + "_" + key
		}
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
	}
	return nil, false
}

// envKey renders an identifier as UPPER_SNAKE.
func envKey(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '-' || r == '.' || r == ' ':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && runes[i-1] != '_' && (prevLower || nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// File returns a provider that reads defaults from a TOML file. The file is
// read eagerly; a missing or malformed file yields a provider with no
// values and the load error is available via Err.
func File(path string) *FileProvider {
	p := &FileProvider{path: path}
	p.err = decodeFile(path, &p.values)
	return p
}

func decodeFile(path string, into *map[string]any) error {
	_, err := toml.DecodeFile(path, into)
	return err
}

// FileProvider resolves field defaults from a decoded TOML document.
type FileProvider struct {
	path   string
	values map[string]any
	err    error
}

// Source identifies the provider for protocol cache keying.
func (p *FileProvider) Source() string {
	return "file:" + p.path
}

// Err reports the load error, if the file could not be read or parsed.
func (p *FileProvider) Err() error {
	return p.err
}

// Default looks up the field in the document, folding case and separators.
func (p *FileProvider) Default(field string, aliases ...string) (any, bool) {
	if p.values == nil {
		return nil, false
	}
	for _, name := range append([]string{field}, aliases...) {
		if v, ok := p.values[name]; ok {
			return v, true
		}
	}
	for _, name := range append([]string{field}, aliases...) {
		want := foldKey(name)
		for k, v := range p.values {
			if foldKey(k) == want {
				return v, true
			}
		}
	}
	return nil, false
}

func foldKey(s string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(s))
}

// Chain returns a provider that consults each given provider in order and
// takes the first hit.
func Chain(providers ...Provider) *ChainProvider {
	return &ChainProvider{providers: providers}
}

// Provider is the contract chained providers satisfy. It matches
// typical.DefaultsProvider.
type Provider interface {
	Source() string
	Default(field string, aliases ...string) (any, bool)
}

// ChainProvider composes providers with first-hit-wins semantics.
type ChainProvider struct {
	providers []Provider
}

// Source identifies the chain for protocol cache keying.
func (p *ChainProvider) Source() string {
	parts := make([]string, len(p.providers))
	for i, sub := range p.providers {
		parts[i] = sub.Source()
	}
	return "chain[" + strings.Join(parts, ",") + "]"
}

// Default returns the first provider's hit.
func (p *ChainProvider) Default(field string, aliases ...string) (any, bool) {
	for _, sub := range p.providers {
		if v, ok := sub.Default(field, aliases...); ok {
			return v, true
		}
	}
	return nil, false
}
