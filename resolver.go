package typical

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/zoobzio/sentinel"
)

// DefaultsProvider supplies out-of-band default values for struct fields,
// consulted once per field at protocol build time. Providers with the same
// Source string are interchangeable for caching purposes.
type DefaultsProvider interface {
	// Source identifies the provider for cache keying.
	Source() string

	// Default returns the default value for a field, looked up by Go name
	// and any wire aliases.
	Default(field string, aliases ...string) (any, bool)
}

// resolveOptions is the assembled configuration of one resolution.
type resolveOptions struct {
	flags    SerdeFlags
	codec    Codec
	defaults DefaultsProvider
	strict   bool
	rootSpec string
}

// Option configures a resolution.
type Option func(*resolveOptions)

// WithFlags sets the serde flags for the resolved protocol.
func WithFlags(flags SerdeFlags) Option {
	return func(o *resolveOptions) { o.flags = flags }
}

// WithCodec sets the wire codec. Defaults to JSON.
func WithCodec(c Codec) Option {
	return func(o *resolveOptions) { o.codec = c }
}

// WithDefaultsProvider installs a provider for field defaults. Provider
// values are read once at build time and baked into the protocol.
func WithDefaultsProvider(p DefaultsProvider) Option {
	return func(o *resolveOptions) { o.defaults = p }
}

// WithConstraint declares a constraint on the root of the resolved type, in
// the same syntax as the `constraint` struct tag.
func WithConstraint(spec string) Option {
	return func(o *resolveOptions) { o.rootSpec = spec }
}

// Strict forces strict-mode policies for this resolution only.
func Strict() Option {
	return func(o *resolveOptions) { o.strict = true }
}

func newResolveOptions(opts []Option) *resolveOptions {
	o := &resolveOptions{codec: defaultCodec()}
	for _, opt := range opts {
		opt(o)
	}
	if o.codec == nil {
		o.codec = defaultCodec()
	}
	return o
}

// fingerprint renders the cache-key component of the options.
func (o *resolveOptions) fingerprint() string {
	src := ""
	if o.defaults != nil {
		src = o.defaults.Source()
	}
	return fmt.Sprintf("%s|codec=%s|strict=%t|defaults=%s|constraint=%s",
		o.flags.fingerprint(), o.codec.ContentType(), o.strict, src, o.rootSpec)
}

// cacheKey identifies one resolved protocol: the type (or descriptor
// identity) plus the option fingerprint.
type cacheKey struct {
	rt    reflect.Type
	desc  string
	flags string
}

// entry is one cache slot. The protocol is allocated before the build starts
// and patched in place when it completes, so recursive references observe a
// stable pointer. done closes when the build finishes either way.
type entry struct {
	proto *Protocol
	err   error
	done  chan struct{}
}

var (
	cacheMu sync.Mutex
	cache   = make(map[cacheKey]*entry)
)

// Resolve returns the compiled protocol for a type token, building it at
// most once per (type, options) pair. Tokens are Go types (reflect.Type or
// an example value), or descriptor tokens from UnionOf, LiteralOf, EnumOf,
// StrictOf, and DeferredOf. Safe for concurrent use: concurrent callers of
// the same key share one build.
func Resolve(token any, opts ...Option) (*Protocol, error) {
	o := newResolveOptions(opts)
	return resolve(token, o, nil)
}

// For resolves a protocol for a statically known type. Struct types are
// scanned into sentinel's registry first, so their field metadata comes from
// the scanned spec rather than the reflect fallback.
func For[T any](opts ...Option) (*Protocol, error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() == reflect.Struct {
		sentinel.Scan[T]()
	}
	return Resolve(rt, opts...)
}

// resolveKey unwraps strict wrappers and derives the cache key. Strictness
// keys the cache but does not change the annotation.
func resolveKey(token any, o *resolveOptions) (any, cacheKey) {
	for {
		st, ok := token.(*StrictType)
		if !ok {
			break
		}
		o.strict = true
		token = st.inner
	}
	if IsStrictMode() {
		o.strict = true
	}
	return token, cacheKey{rt: tokenType(token), desc: tokenID(token), flags: o.fingerprint()}
}

// resolve builds or joins the protocol for a key. chain is the set of keys
// under construction by this goroutine's resolution; nil at the top level.
func resolve(token any, o *resolveOptions, chain map[cacheKey]struct{}) (*Protocol, error) {
	token, key := resolveKey(token, o)
	start := time.Now()

	cacheMu.Lock()
	if e, ok := cache[key]; ok {
		cacheMu.Unlock()
		<-e.done
		emitResolveComplete(context.Background(), e.proto.typeName, key.flags, sourceCache, time.Since(start), e.err)
		return e.proto, e.err
	}
	e := &entry{proto: &Protocol{}, done: make(chan struct{})}
	cache[key] = e
	cacheMu.Unlock()

	if chain == nil {
		chain = make(map[cacheKey]struct{})
	}
	chain[key] = struct{}{}
	err := build(token, o, e.proto, chain)
	delete(chain, key)
	if err != nil {
		cacheMu.Lock()
		delete(cache, key)
		cacheMu.Unlock()
		e.err = err
	}
	close(e.done)
	emitResolveComplete(context.Background(), e.proto.typeName, key.flags, sourceBuild, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return e.proto, nil
}

// resolveDeferred resolves a forward reference without blocking on builds.
// A key in this goroutine's own chain yields its stub outright, since the
// chain patches it before the outermost resolve returns. A foreign in-flight
// build yields the stub plus its done channel; callers synchronize on it
// before first use. Anything else builds or joins as usual.
func resolveDeferred(token any, o *resolveOptions, chain map[cacheKey]struct{}) (*Protocol, <-chan struct{}, error) {
	token, key := resolveKey(token, o)

	cacheMu.Lock()
	if e, ok := cache[key]; ok {
		cacheMu.Unlock()
		if _, mine := chain[key]; mine {
			return e.proto, nil, nil
		}
		select {
		case <-e.done:
			return e.proto, nil, e.err
		default:
			return e.proto, e.done, nil
		}
	}
	cacheMu.Unlock()
	p, err := resolve(token, o, chain)
	return p, nil, err
}

// build compiles the full pipeline into a pre-allocated protocol:
// normalize, compile constraints, compile operations, bake defaults.
func build(token any, o *resolveOptions, p *Protocol, chain map[cacheKey]struct{}) error {
	n := newNormalizer(o, func(name, enclosing string) (*Protocol, <-chan struct{}, error) {
		return resolveRef(name, enclosing, o, chain)
	})
	a, err := n.normalize(token, "")
	if err != nil {
		return err
	}
	c, err := compileConstraints(a, o.rootSpec)
	if err != nil {
		return err
	}
	cp := newProtoCompiler(o.flags, o.codec, o.strict)
	root, err := cp.compile(a, c)
	if err != nil {
		return err
	}
	for _, bake := range cp.bakes {
		if err := bake(); err != nil {
			return err
		}
	}
	p.annotation = a
	p.constraint = c
	p.flags = o.flags
	p.codec = o.codec
	p.strict = o.strict
	p.typeName = a.describe()
	p.de = root.de
	p.ser = root.ser
	return nil
}

// namespace maps declared names to type tokens for forward references.
var (
	namespaceMu sync.RWMutex
	namespace   = make(map[string]any)
)

// RegisterType declares a name in the forward-reference namespace, making it
// reachable via DeferredOf. Re-registering a name overwrites it.
func RegisterType(name string, token any) {
	namespaceMu.Lock()
	defer namespaceMu.Unlock()
	namespace[name] = token
}

// resolveRef resolves a forward reference against the namespace. An
// in-flight build of the referenced key yields its stub protocol, breaking
// mutual recursion across resolutions.
func resolveRef(name, enclosing string, o *resolveOptions, chain map[cacheKey]struct{}) (*Protocol, <-chan struct{}, error) {
	namespaceMu.RLock()
	token, ok := namespace[name]
	namespaceMu.RUnlock()
	if !ok {
		return nil, nil, &ResolutionError{
			Symbol:    name,
			Enclosing: enclosing,
			Reason:    "no type registered under this name",
		}
	}
	ref := *o
	// Root-only options stay with the root that declared them; the
	// referenced type resolves under its own.
	ref.rootSpec = ""
	ref.defaults = nil
	return resolveDeferred(token, &ref, chain)
}

// pending holds declarations deferred until ResolvePending.
type declaration struct {
	token any
	opts  *resolveOptions
}

var (
	pendingMu sync.Mutex
	pending   []declaration
)

// Declare registers a type for deferred resolution without building its
// protocol. Mutually recursive declarations become resolvable once all
// participants are declared; ResolvePending builds them in one pass.
func Declare(token any, opts ...Option) {
	o := newResolveOptions(opts)
	if rt := tokenType(token); rt != nil {
		name := rt.Name()
		if name == "" {
			name = rt.String()
		}
		RegisterType(name, token)
	}
	pendingMu.Lock()
	pending = append(pending, declaration{token: token, opts: o})
	pendingMu.Unlock()
}

// ResolvePending builds every declaration accumulated by Declare, in
// declaration order, and reports all failures joined. The pending set
// clears regardless of outcome.
func ResolvePending() error {
	start := time.Now()
	pendingMu.Lock()
	batch := pending
	pending = nil
	pendingMu.Unlock()

	var errs []error
	for _, d := range batch {
		if _, err := resolve(d.token, d.opts, nil); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	emitPendingResolved(context.Background(), len(batch), time.Since(start), err)
	return err
}

// resetResolver clears resolver state between tests.
func resetResolver() {
	cacheMu.Lock()
	cache = make(map[cacheKey]*entry)
	cacheMu.Unlock()
	namespaceMu.Lock()
	namespace = make(map[string]any)
	namespaceMu.Unlock()
	pendingMu.Lock()
	pending = nil
	pendingMu.Unlock()
}
