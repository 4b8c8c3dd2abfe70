package resource

import (
	"fmt"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/serializer"
	"github.com/kbukum/resourcekit/task"
)

// Resolver looks up named dependencies: interceptors, serializers,
// transformers and extensions. It must return an error for unknown names.
type Resolver interface {
	Resolve(name string) (any, error)
}

// lookup resolves name through the resolver at most once per resource.
// The caller holds r.mu for writing.
func (r *Resource) lookup(kind, name string) (any, error) {
	if v, ok := r.named[name]; ok {
		return v, nil
	}
	if r.resolver == nil {
		return nil, errors.UnresolvedDependency(kind, name).WithDetail("reason", "no resolver configured")
	}
	v, err := r.resolver.Resolve(name)
	if err != nil {
		return nil, errors.UnresolvedDependency(kind, name).WithCause(err)
	}
	if v == nil {
		return nil, errors.UnresolvedDependency(kind, name)
	}
	if r.named == nil {
		r.named = map[string]any{}
	}
	r.named[name] = v
	return v, nil
}

func mismatch(kind string, entry, v any) error {
	name, _ := entry.(string)
	return errors.UnresolvedDependency(kind, name).
		WithDetail("type", fmt.Sprintf("%T", v))
}

// resolveLocked replaces every named entry of the descriptor with its value.
// The caller holds r.mu for writing.
func (r *Resource) resolveLocked() error {
	d := r.desc
	if d.Serializer == nil {
		v := d.serializerRef
		if name, ok := v.(string); ok {
			var err error
			if v, err = r.lookup("serializer", name); err != nil {
				return err
			}
		}
		s, ok := v.(serializer.Serializer)
		if !ok {
			return mismatch("serializer", d.serializerRef, v)
		}
		d.Serializer = s
	}
	for i, entry := range d.requestTransformers {
		ic, err := r.resolveEntry("request transformer", entry, func(v any) *Interceptor {
			switch fn := v.(type) {
			case RequestTransformer:
				return transformerInterceptor(fn)
			case func(any, *Resource) (any, error):
				return transformerInterceptor(fn)
			}
			return nil
		})
		if err != nil {
			return err
		}
		d.requestTransformers[i] = ic
	}
	for _, list := range []struct {
		entries []any
		phase   Phase
	}{
		{d.responseInterceptors, PhaseResponse},
		{d.afterResponseInterceptors, PhaseAfterResponse},
	} {
		for i, entry := range list.entries {
			ic, err := r.resolveEntry("response interceptor", entry, func(v any) *Interceptor {
				switch fn := v.(type) {
				case ResponseInterceptor:
					return taskInterceptor(list.phase, fn)
				case func(*task.Task, *Call) *task.Task:
					return taskInterceptor(list.phase, fn)
				}
				return nil
			})
			if err != nil {
				return err
			}
			list.entries[i] = ic
		}
	}
	for i, entry := range d.interceptors {
		ic, err := r.resolveEntry("interceptor", entry, func(v any) *Interceptor {
			switch ic := v.(type) {
			case *Interceptor:
				return ic
			case Interceptor:
				return &ic
			}
			return nil
		})
		if err != nil {
			return err
		}
		d.interceptors[i] = ic
	}
	return nil
}

// resolveEntry resolves a name if needed and converts the value with adapt.
// Entries that are already *Interceptor are resolved.
func (r *Resource) resolveEntry(kind string, entry any, adapt func(any) *Interceptor) (*Interceptor, error) {
	if ic, ok := entry.(*Interceptor); ok {
		return ic, nil
	}
	v := entry
	if name, ok := entry.(string); ok {
		var err error
		if v, err = r.lookup(kind, name); err != nil {
			return nil, err
		}
	}
	ic := adapt(v)
	if ic == nil {
		return nil, mismatch(kind, entry, v)
	}
	return ic, nil
}

func (r *Resource) resolveExtension(entry any) (Extension, error) {
	v := entry
	if name, ok := entry.(string); ok {
		var err error
		if v, err = r.lookup("extension", name); err != nil {
			return nil, err
		}
	}
	ext, ok := v.(Extension)
	if !ok {
		return nil, mismatch("extension", entry, v)
	}
	return ext, nil
}

// chain lists the resolved interceptors in run order. Legacy adapters come
// first so they precede the interceptors of their phase.
func (d *Descriptor) chain() []*Interceptor {
	var out []*Interceptor
	for _, list := range [][]any{
		d.requestTransformers,
		d.responseInterceptors,
		d.afterResponseInterceptors,
		d.interceptors,
	} {
		for _, entry := range list {
			out = append(out, entry.(*Interceptor))
		}
	}
	return out
}
