package resource

import (
	"context"
	"net/http"

	"github.com/kbukum/resourcekit/serializer"
	"github.com/kbukum/resourcekit/task"
)

// request sends a deep plain copy of data, so request phases never reach
// the caller's values.
func (r *Resource) request(ctx context.Context, op, method, url string, data, params any, inst *Instance, opts []CallOption) *task.Task {
	cfg := &HTTPConfig{Method: method, URL: url, Data: serializer.Copy(data)}
	return r.do(ctx, op, cfg, params, inst, opts)
}

func (r *Resource) idAttribute() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.desc.IDAttribute
}

func (r *Resource) updateMethod() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.desc.UpdateMethod
}

// Query fetches the collection URL resolved from urlCtx. The task resolves
// with the deserialized body, usually a []any of *Instance.
func (r *Resource) Query(ctx context.Context, params any, urlCtx map[string]any, opts ...CallOption) *task.Task {
	return r.request(ctx, "query", http.MethodGet, r.URL(urlCtx), nil, params, nil, opts)
}

// Get fetches one record. idOrCtx is an id value or a map of URL template
// values. The task resolves with the deserialized body.
func (r *Resource) Get(ctx context.Context, idOrCtx any, params any, opts ...CallOption) *task.Task {
	return r.request(ctx, "get", http.MethodGet, r.URL(idOrCtx), nil, params, nil, opts)
}

// GetURL sends a GET to url.
func (r *Resource) GetURL(ctx context.Context, url string, params any, opts ...CallOption) *task.Task {
	return r.request(ctx, "get", http.MethodGet, url, nil, params, nil, opts)
}

// PostURL posts data to url.
func (r *Resource) PostURL(ctx context.Context, url string, data, params any, opts ...CallOption) *task.Task {
	return r.request(ctx, "post", http.MethodPost, url, data, params, nil, opts)
}

// PutURL puts data to url.
func (r *Resource) PutURL(ctx context.Context, url string, data, params any, opts ...CallOption) *task.Task {
	return r.request(ctx, "put", http.MethodPut, url, data, params, nil, opts)
}

// PatchURL patches data to url.
func (r *Resource) PatchURL(ctx context.Context, url string, data, params any, opts ...CallOption) *task.Task {
	return r.request(ctx, "patch", http.MethodPatch, url, data, params, nil, opts)
}

// DeleteURL sends a DELETE to url.
func (r *Resource) DeleteURL(ctx context.Context, url string, params any, opts ...CallOption) *task.Task {
	return r.request(ctx, "delete", http.MethodDelete, url, nil, params, nil, opts)
}
