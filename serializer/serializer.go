package serializer

import (
	"strings"
	"sync"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/inflector"
)

// Serializer converts between local data and wire data.
type Serializer interface {
	// Serialize returns the wire form of data. The input is never mutated.
	Serialize(data any) (any, error)
	// Deserialize returns the local form of data. Objects are built through
	// c when it is non-nil. Nil data is returned unchanged.
	Deserialize(data any, c Constructor) (any, error)
}

// Constructor builds a resource value from local fields.
type Constructor interface {
	Construct(fields map[string]any) (any, error)
}

// ConstructorFunc adapts a function to Constructor.
type ConstructorFunc func(fields map[string]any) (any, error)

// Construct calls f.
func (f ConstructorFunc) Construct(fields map[string]any) (any, error) { return f(fields) }

// Attributer exposes the local fields of a value for serialization.
type Attributer interface {
	Attributes() map[string]any
}

// Provider is implemented by constructors that carry their own serializer.
// Associations built through such a constructor are deserialized with it.
type Provider interface {
	Serializer() Serializer
}

// Resolver looks up named dependencies.
type Resolver interface {
	Resolve(name string) (any, error)
}

// Option configures a Rails serializer.
type Option func(*Rails)

type association struct {
	ref        any
	serializer Serializer
	ctor       Constructor
}

type addition struct {
	key   string
	value any
}

// Rails is the default serializer.
type Rails struct {
	inflector inflector.Inflector
	resolver  Resolver

	exclude  map[string]bool
	only     map[string]bool
	renames  map[string]string
	inverse  map[string]string
	preserve map[string]bool
	nested   map[string]bool
	custom   map[string]Serializer
	adds     []addition

	mu     sync.Mutex
	assocs map[string]*association
}

// New creates a Rails serializer.
func New(opts ...Option) *Rails {
	r := &Rails{
		inflector: inflector.Default,
		exclude:   map[string]bool{},
		only:      map[string]bool{},
		renames:   map[string]string{},
		inverse:   map[string]string{},
		preserve:  map[string]bool{},
		nested:    map[string]bool{},
		custom:    map[string]Serializer{},
		assocs:    map[string]*association{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithInflector sets the key transcoder.
func WithInflector(i inflector.Inflector) Option {
	return func(r *Rails) { r.inflector = i }
}

// WithResolver sets the resolver used for associations given by name.
func WithResolver(res Resolver) Option {
	return func(r *Rails) { r.resolver = res }
}

// Exclude drops local fields from the serialized output.
func Exclude(fields ...string) Option {
	return func(r *Rails) {
		for _, f := range fields {
			r.exclude[f] = true
		}
	}
}

// Only restricts the serialized output to the given local fields.
func Only(fields ...string) Option {
	return func(r *Rails) {
		for _, f := range fields {
			r.only[f] = true
		}
	}
}

// Rename maps a local field to an explicit wire key in both directions.
func Rename(local, wire string) Option {
	return func(r *Rails) {
		r.renames[local] = wire
		r.inverse[wire] = local
	}
}

// Preserve keeps a field's value as is, without transcoding nested keys.
func Preserve(fields ...string) Option {
	return func(r *Rails) {
		for _, f := range fields {
			r.preserve[f] = true
		}
	}
}

// NestedAttribute sends a field under "<wire>_attributes".
func NestedAttribute(fields ...string) Option {
	return func(r *Rails) {
		for _, f := range fields {
			r.nested[f] = true
		}
	}
}

// SerializeWith handles a field with its own serializer.
func SerializeWith(field string, s Serializer) Option {
	return func(r *Rails) { r.custom[field] = s }
}

// Resource declares field as an association. ref is a Constructor or the
// name of one, resolved on first use. An optional serializer overrides the
// one the constructor provides.
func Resource(field string, ref any, s ...Serializer) Option {
	return func(r *Rails) {
		a := &association{ref: ref}
		if c, ok := ref.(Constructor); ok {
			a.ctor = c
		}
		if len(s) > 0 {
			a.serializer = s[0]
		}
		r.assocs[field] = a
	}
}

// Add appends a field to the serialized output. value is either a constant
// or a func(map[string]any) any computed from the local data.
func Add(field string, value any) Option {
	return func(r *Rails) { r.adds = append(r.adds, addition{key: field, value: value}) }
}

// Underscore converts a local name to its wire form.
func (r *Rails) Underscore(name string) string { return r.inflector.Underscore(name) }

// Camelize converts a wire name to its local form.
func (r *Rails) Camelize(name string) string { return r.inflector.Camelize(name) }

// Pluralize returns the plural of a resource name.
func (r *Rails) Pluralize(name string) string { return r.inflector.Pluralize(name) }

// Serialize implements Serializer.
func (r *Rails) Serialize(data any) (any, error) {
	return r.serializeValue(data, true)
}

func (r *Rails) serializeValue(v any, top bool) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Attributer:
		return r.serializeObject(val.Attributes(), top)
	case map[string]any:
		return r.serializeObject(val, top)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			s, err := r.serializeValue(item, top)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			s, err := r.serializeObject(item, top)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *Rails) serializeObject(m map[string]any, top bool) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for key, value := range m {
		if strings.HasPrefix(key, "$") {
			continue
		}
		if !top {
			s, err := r.serializeValue(value, false)
			if err != nil {
				return nil, err
			}
			out[r.inflector.Underscore(key)] = s
			continue
		}
		if r.exclude[key] || (len(r.only) > 0 && !r.only[key]) {
			continue
		}
		wire := r.wireKey(key)
		s, err := r.serializeField(key, value)
		if err != nil {
			return nil, err
		}
		out[wire] = s
	}
	if top {
		for _, a := range r.adds {
			v := a.value
			if fn, ok := v.(func(map[string]any) any); ok {
				v = fn(m)
			}
			out[r.wireKey(a.key)] = v
		}
	}
	return out, nil
}

func (r *Rails) serializeField(key string, value any) (any, error) {
	if r.preserve[key] {
		return value, nil
	}
	if s, ok := r.custom[key]; ok {
		return s.Serialize(value)
	}
	if a, ok := r.assocs[key]; ok {
		s, err := r.associationSerializer(a)
		if err != nil {
			return nil, err
		}
		if s != nil {
			return s.Serialize(value)
		}
	}
	return r.serializeValue(value, false)
}

func (r *Rails) wireKey(local string) string {
	if w, ok := r.renames[local]; ok {
		return w
	}
	wire := r.inflector.Underscore(local)
	if r.nested[local] {
		wire += "_attributes"
	}
	return wire
}

func (r *Rails) localKey(wire string) string {
	if l, ok := r.inverse[wire]; ok {
		return l
	}
	if base, ok := strings.CutSuffix(wire, "_attributes"); ok {
		if local := r.inflector.Camelize(base); r.nested[local] {
			return local
		}
	}
	return r.inflector.Camelize(wire)
}

// Deserialize implements Serializer.
func (r *Rails) Deserialize(data any, c Constructor) (any, error) {
	return r.deserializeValue(data, c, true)
}

func (r *Rails) deserializeValue(v any, c Constructor, top bool) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			d, err := r.deserializeValue(item, c, top)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case map[string]any:
		fields, err := r.deserializeObject(val, top)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return fields, nil
		}
		return c.Construct(fields)
	default:
		return v, nil
	}
}

func (r *Rails) deserializeObject(m map[string]any, top bool) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for wire, value := range m {
		if !top {
			d, err := r.deserializeValue(value, nil, false)
			if err != nil {
				return nil, err
			}
			out[r.inflector.Camelize(wire)] = d
			continue
		}
		local := r.localKey(wire)
		d, err := r.deserializeField(local, value)
		if err != nil {
			return nil, err
		}
		out[local] = d
	}
	return out, nil
}

func (r *Rails) deserializeField(key string, value any) (any, error) {
	if r.preserve[key] {
		return value, nil
	}
	if s, ok := r.custom[key]; ok {
		return s.Deserialize(value, nil)
	}
	if a, ok := r.assocs[key]; ok {
		ctor, err := r.associationConstructor(a)
		if err != nil {
			return nil, err
		}
		s, err := r.associationSerializer(a)
		if err != nil {
			return nil, err
		}
		if s == nil {
			s = r
		}
		return s.Deserialize(value, ctor)
	}
	return r.deserializeValue(value, nil, false)
}

func (r *Rails) associationConstructor(a *association) (Constructor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ctor != nil {
		return a.ctor, nil
	}
	name, _ := a.ref.(string)
	if name == "" || r.resolver == nil {
		return nil, errors.UnresolvedDependency("association", name)
	}
	v, err := r.resolver.Resolve(name)
	if err != nil {
		return nil, errors.UnresolvedDependency("association", name).WithCause(err)
	}
	c, ok := v.(Constructor)
	if !ok {
		return nil, errors.UnresolvedDependency("association", name).
			WithDetail("type", typeName(v))
	}
	a.ctor = c
	return c, nil
}

func (r *Rails) associationSerializer(a *association) (Serializer, error) {
	if a.serializer != nil {
		return a.serializer, nil
	}
	c, err := r.associationConstructor(a)
	if err != nil {
		return nil, err
	}
	if p, ok := c.(Provider); ok {
		return p.Serializer(), nil
	}
	return nil, nil
}
