package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/resourcekit/serializer"
	"github.com/kbukum/resourcekit/task"
)

// Instance is a record of a resource type, held as local-form fields.
// Field access is safe for concurrent use; concurrent operations on the
// same instance merge their results in completion order.
type Instance struct {
	resource *Resource

	mu    sync.RWMutex
	attrs map[string]any
}

func (r *Resource) newInstance(fields map[string]any) *Instance {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Instance{resource: r, attrs: fields}
}

// Resource returns the type of the instance.
func (i *Instance) Resource() *Resource { return i.resource }

// Get returns a field value.
func (i *Instance) Get(key string) any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.attrs[key]
}

// Set stores a field value.
func (i *Instance) Set(key string, v any) *Instance {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.attrs[key] = v
	return i
}

// Unset removes a field.
func (i *Instance) Unset(key string) *Instance {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.attrs, key)
	return i
}

// ID returns the value of the id attribute.
func (i *Instance) ID() any {
	return i.Get(i.resource.idAttribute())
}

// IsNew reports whether the instance has no id yet.
func (i *Instance) IsNew() bool {
	return i.ID() == nil
}

// Attributes returns a deep copy of the fields.
func (i *Instance) Attributes() map[string]any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return serializer.Copy(i.attrs).(map[string]any)
}

// Merge copies fields into the instance, replacing existing values.
func (i *Instance) Merge(fields map[string]any) *Instance {
	fields = serializer.Copy(fields).(map[string]any)
	i.mu.Lock()
	defer i.mu.Unlock()
	for k, v := range fields {
		i.attrs[k] = v
	}
	return i
}

// Decode copies the fields into out, a pointer to a struct or map. Struct
// fields are matched by their `mapstructure` tag or, case-insensitively,
// by name.
func (i *Instance) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return err
	}
	return dec.Decode(i.Attributes())
}

// MarshalJSON encodes the fields.
func (i *Instance) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Attributes())
}

// URL returns the instance URL with optional extra path segments.
func (i *Instance) URL(path ...string) string {
	return i.resource.URL(i, path...)
}

// Create posts the instance to the collection URL and merges the response.
func (i *Instance) Create(ctx context.Context, opts ...CallOption) *task.Task {
	return i.send(ctx, "create", http.MethodPost, i.URL(), i.Attributes(), nil, opts)
}

// Update sends the instance with the configured update verb.
func (i *Instance) Update(ctx context.Context, opts ...CallOption) *task.Task {
	method := strings.ToUpper(i.resource.updateMethod())
	return i.send(ctx, "update", method, i.URL(), i.Attributes(), nil, opts)
}

// Save creates new instances and updates existing ones.
func (i *Instance) Save(ctx context.Context, opts ...CallOption) *task.Task {
	if i.IsNew() {
		return i.Create(ctx, opts...)
	}
	return i.Update(ctx, opts...)
}

// Fetch reloads the instance from its URL.
func (i *Instance) Fetch(ctx context.Context, opts ...CallOption) *task.Task {
	return i.send(ctx, "fetch", http.MethodGet, i.URL(), nil, nil, opts)
}

// Remove deletes the instance.
func (i *Instance) Remove(ctx context.Context, opts ...CallOption) *task.Task {
	return i.send(ctx, "remove", http.MethodDelete, i.URL(), nil, nil, opts)
}

// Delete is an alias of Remove.
func (i *Instance) Delete(ctx context.Context, opts ...CallOption) *task.Task {
	return i.Remove(ctx, opts...)
}

// GetURL sends a GET to url and merges the response into the instance.
func (i *Instance) GetURL(ctx context.Context, url string, params any, opts ...CallOption) *task.Task {
	return i.send(ctx, "get", http.MethodGet, url, nil, params, opts)
}

// PostURL posts the instance to url.
func (i *Instance) PostURL(ctx context.Context, url string, params any, opts ...CallOption) *task.Task {
	return i.send(ctx, "post", http.MethodPost, url, i.Attributes(), params, opts)
}

// PutURL puts the instance to url.
func (i *Instance) PutURL(ctx context.Context, url string, params any, opts ...CallOption) *task.Task {
	return i.send(ctx, "put", http.MethodPut, url, i.Attributes(), params, opts)
}

// PatchURL patches the instance to url.
func (i *Instance) PatchURL(ctx context.Context, url string, params any, opts ...CallOption) *task.Task {
	return i.send(ctx, "patch", http.MethodPatch, url, i.Attributes(), params, opts)
}

// DeleteURL sends a DELETE to url.
func (i *Instance) DeleteURL(ctx context.Context, url string, params any, opts ...CallOption) *task.Task {
	return i.send(ctx, "delete", http.MethodDelete, url, nil, params, opts)
}

func (i *Instance) send(ctx context.Context, op, method, url string, data, params any, opts []CallOption) *task.Task {
	return i.resource.request(ctx, op, method, url, data, params, i, opts)
}
