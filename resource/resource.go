package resource

import (
	"context"
	"strings"
	"sync"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/inflector"
	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/serializer"
	"github.com/kbukum/resourcekit/task"
	"github.com/kbukum/resourcekit/urlbuilder"
)

// Resource is a configured resource type. It is safe for concurrent use.
type Resource struct {
	mu       sync.RWMutex
	cfg      Config
	desc     *Descriptor
	resolved bool
	// named caches resolved dependencies across reconfiguration.
	named    map[string]any

	transport Transport
	resolver  Resolver
	wrapper   RootWrapper
	baseLog   *logger.Logger
	log       *logger.Logger
}

// Option configures a Resource.
type Option func(*Resource)

// WithTransport sets the transport requests are dispatched through.
func WithTransport(t Transport) Option {
	return func(r *Resource) { r.transport = t }
}

// WithResolver sets the resolver for dependencies given by name.
func WithResolver(res Resolver) Option {
	return func(r *Resource) { r.resolver = res }
}

// WithRootWrapper replaces the default root wrapper.
func WithRootWrapper(w RootWrapper) Option {
	return func(r *Resource) { r.wrapper = w }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Resource) { r.baseLog = l }
}

// WithDefaults sets the configuration the resource's own Config is merged
// over. Use it to share settings across resource types.
func WithDefaults(defaults Config) Option {
	return func(r *Resource) { r.cfg = defaults.merge(Config{}) }
}

// New creates a resource type from cfg.
func New(cfg Config, opts ...Option) (*Resource, error) {
	r := &Resource{wrapper: DefaultRootWrapper{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.transport == nil {
		return nil, errors.InvalidConfig("resource transport is required")
	}
	if r.baseLog == nil {
		r.baseLog = logger.Get("resource")
	}
	if err := r.Configure(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(cfg Config, opts ...Option) *Resource {
	r, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Configure merges cfg over the current configuration and rebuilds the
// descriptor. Calls already in flight keep the descriptor they started with.
func (r *Resource) Configure(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := cfg.merge(r.cfg)
	if merged.UpdateMethod != "" {
		merged.UpdateMethod = strings.ToLower(merged.UpdateMethod)
	}
	if err := merged.validate(); err != nil {
		return err
	}
	d, err := r.describe(merged)
	if err != nil {
		return err
	}
	r.cfg = merged
	r.desc = d
	r.resolved = false
	r.log = r.baseLog.WithFields(logger.Fields(logger.FieldResource, d.Name))
	return nil
}

// SetURL replaces the URL template.
func (r *Resource) SetURL(template string) error {
	return r.Configure(Config{URL: template})
}

func (r *Resource) describe(cfg Config) (*Descriptor, error) {
	infl := cfg.Inflector
	if infl == nil {
		infl = inflector.Default
	}
	name := infl.Underscore(cfg.Name)
	plural := cfg.PluralName
	if plural == "" && name != "" {
		plural = infl.Pluralize(name)
	}
	plural = infl.Underscore(plural)

	idAttr := cfg.IDAttribute
	if idAttr == "" {
		idAttr = urlbuilder.DefaultIDAttribute
	}
	build, err := urlbuilder.New(urlbuilder.Options{
		Template:    cfg.URL,
		Func:        cfg.URLFunc,
		IDAttribute: idAttr,
		Singular:    enabled(cfg.Singular, false),
		StartSymbol: cfg.StartSymbol,
		EndSymbol:   cfg.EndSymbol,
	})
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	updateMethod := cfg.UpdateMethod
	if updateMethod == "" {
		updateMethod = "put"
	}
	ser := cfg.Serializer
	if ser == nil {
		opts := []serializer.Option{serializer.WithInflector(infl)}
		if r.resolver != nil {
			opts = append(opts, serializer.WithResolver(r.resolver))
		}
		ser = serializer.New(opts...)
	}

	d := &Descriptor{
		Name:                      name,
		PluralName:                plural,
		IDAttribute:               idAttr,
		URL:                       cfg.URL,
		Singular:                  enabled(cfg.Singular, false),
		RootWrapping:              enabled(cfg.RootWrapping, true),
		UnderscoreParams:          enabled(cfg.UnderscoreParams, true),
		FullResponse:              enabled(cfg.FullResponse, false),
		UpdateMethod:              updateMethod,
		DefaultParams:             cloneParams(cfg.DefaultParams),
		Headers:                   headers,
		Timeout:                   cfg.Timeout,
		Inflector:                 infl,
		SnapshotSerializer:        cfg.SnapshotSerializer,
		Resource:                  r,
		buildURL:                  build,
		serializerRef:             ser,
		requestTransformers:       append([]any(nil), cfg.RequestTransformers...),
		responseInterceptors:      append([]any(nil), cfg.ResponseInterceptors...),
		afterResponseInterceptors: append([]any(nil), cfg.AfterResponseInterceptors...),
		interceptors:              append([]any(nil), cfg.Interceptors...),
	}

	seen := map[string]bool{}
	for _, entry := range cfg.Extensions {
		ext, err := r.resolveExtension(entry)
		if err != nil {
			return nil, err
		}
		if seen[ext.Name()] {
			continue
		}
		seen[ext.Name()] = true
		d.Extensions = append(d.Extensions, ext)
		if err := ext.Configure(d); err != nil {
			return nil, errors.InvalidConfig("extension " + ext.Name() + " failed to configure").WithCause(err)
		}
	}
	return d, nil
}

// Descriptor returns a copy of the current descriptor.
func (r *Resource) Descriptor() Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d := *r.desc
	d.DefaultParams = cloneParams(d.DefaultParams)
	d.Headers = cloneHeaders(d.Headers)
	return d
}

// Name returns the wire-form singular name.
func (r *Resource) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.desc.Name
}

// snapshot resolves named dependencies and returns a per-call descriptor
// with opts applied, plus the interceptors to run.
func (r *Resource) snapshot(opts []CallOption) (*Descriptor, []*Interceptor, error) {
	r.mu.RLock()
	if r.resolved {
		d, chain := r.copyLocked()
		r.mu.RUnlock()
		return applyOptions(d, opts), chain, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resolved {
		if err := r.resolveLocked(); err != nil {
			return nil, nil, err
		}
		r.resolved = true
	}
	d, chain := r.copyLocked()
	return applyOptions(d, opts), chain, nil
}

func (r *Resource) copyLocked() (*Descriptor, []*Interceptor) {
	d := *r.desc
	chain := r.desc.chain()
	d.DefaultParams = cloneParams(d.DefaultParams)
	d.Headers = cloneHeaders(d.Headers)
	d.Extensions = append([]Extension(nil), d.Extensions...)
	d.requestTransformers = nil
	d.responseInterceptors = nil
	d.afterResponseInterceptors = nil
	d.interceptors = nil
	return &d, chain
}

func applyOptions(d *Descriptor, opts []CallOption) *Descriptor {
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Serializer returns the resolved primary serializer, or nil when a named
// serializer cannot be resolved. Calls report that error instead.
func (r *Resource) Serializer() serializer.Serializer {
	d, _, err := r.snapshot(nil)
	if err != nil {
		return nil
	}
	return d.Serializer
}

// URL resolves the resource URL. ctx is a map of template values, an
// *Instance, or a bare id value. Extra path segments are appended.
func (r *Resource) URL(ctx any, path ...string) string {
	r.mu.RLock()
	d := r.desc
	r.mu.RUnlock()
	return resolveURL(d, ctx, path...)
}

func resolveURL(d *Descriptor, ctx any, path ...string) string {
	var values map[string]any
	switch v := ctx.(type) {
	case nil:
	case map[string]any:
		values = v
	case *Instance:
		values = v.Attributes()
	default:
		values = map[string]any{d.IDAttribute: v}
	}
	u := d.BuildURL(values)
	for _, p := range path {
		u += "/" + strings.TrimPrefix(p, "/")
	}
	return u
}

// AddInterceptor registers an interceptor, or the name of one.
func (r *Resource) AddInterceptor(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.Interceptors = append(r.cfg.Interceptors, v)
	r.desc.interceptors = append(r.desc.interceptors, v)
	r.resolved = false
}

// Intercept registers fn for phase.
func (r *Resource) Intercept(phase Phase, fn Hook) error {
	ic := &Interceptor{Name: string(phase)}
	if err := ic.setHook(phase, fn); err != nil {
		return err
	}
	r.AddInterceptor(ic)
	return nil
}

// InterceptBeforeRequest registers fn for the beforeRequest phase.
func (r *Resource) InterceptBeforeRequest(fn Hook) {
	r.AddInterceptor(&Interceptor{Name: string(PhaseBeforeRequest), BeforeRequest: fn})
}

// InterceptBeforeRequestWrapping registers fn for the beforeRequestWrapping phase.
func (r *Resource) InterceptBeforeRequestWrapping(fn Hook) {
	r.AddInterceptor(&Interceptor{Name: string(PhaseBeforeRequestWrapping), BeforeRequestWrapping: fn})
}

// InterceptRequest registers fn for the request phase.
func (r *Resource) InterceptRequest(fn Hook) {
	r.AddInterceptor(&Interceptor{Name: string(PhaseRequest), Request: fn})
}

// InterceptBeforeResponse registers fn for the beforeResponse phase.
func (r *Resource) InterceptBeforeResponse(fn Hook) {
	r.AddInterceptor(&Interceptor{Name: string(PhaseBeforeResponse), BeforeResponse: fn})
}

// InterceptBeforeResponseDeserialize registers fn for the
// beforeResponseDeserialize phase.
func (r *Resource) InterceptBeforeResponseDeserialize(fn Hook) {
	r.AddInterceptor(&Interceptor{Name: string(PhaseBeforeResponseDeserialize), BeforeResponseDeserialize: fn})
}

// InterceptResponse registers fn for the response phase.
func (r *Resource) InterceptResponse(fn Hook) {
	r.AddInterceptor(&Interceptor{Name: string(PhaseResponse), Response: fn})
}

// InterceptAfterResponse registers fn for the afterResponse phase.
func (r *Resource) InterceptAfterResponse(fn Hook) {
	r.AddInterceptor(&Interceptor{Name: string(PhaseAfterResponse), AfterResponse: fn})
}

// InterceptAfterDeserialize registers fn for the afterDeserialize phase.
func (r *Resource) InterceptAfterDeserialize(fn Hook) {
	r.AddInterceptor(&Interceptor{Name: string(PhaseAfterDeserialize), AfterDeserialize: fn})
}

// BeforeRequest registers a transformer for serialized request data.
//
// Deprecated: use InterceptBeforeRequestWrapping.
func (r *Resource) BeforeRequest(fn func(data any, res *Resource) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.RequestTransformers = append(r.cfg.RequestTransformers, RequestTransformer(fn))
	r.desc.requestTransformers = append(r.desc.requestTransformers, RequestTransformer(fn))
	r.resolved = false
}

// BeforeResponse registers fn to observe deserialized response data along
// with the instance context, if any.
//
// Deprecated: use InterceptResponse.
func (r *Resource) BeforeResponse(fn func(data any, res *Resource, ctx *Instance)) {
	r.addResponseInterceptor(PhaseResponse, func(t *task.Task, call *Call) *task.Task {
		return t.Then(func(v any) (any, error) {
			if resp, ok := v.(*Response); ok {
				fn(resp.Data, call.Resource, call.Instance)
			}
			return v, nil
		})
	})
}

// AfterResponse registers fn to observe the assembled result.
//
// Deprecated: use InterceptAfterResponse.
func (r *Resource) AfterResponse(fn func(result any, res *Resource)) {
	r.addResponseInterceptor(PhaseAfterResponse, func(t *task.Task, call *Call) *task.Task {
		return t.Then(func(v any) (any, error) {
			fn(v, call.Resource)
			return v, nil
		})
	})
}

func (r *Resource) addResponseInterceptor(p Phase, fn ResponseInterceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == PhaseResponse {
		r.cfg.ResponseInterceptors = append(r.cfg.ResponseInterceptors, fn)
		r.desc.responseInterceptors = append(r.desc.responseInterceptors, fn)
	} else {
		r.cfg.AfterResponseInterceptors = append(r.cfg.AfterResponseInterceptors, fn)
		r.desc.afterResponseInterceptors = append(r.desc.afterResponseInterceptors, fn)
	}
	r.resolved = false
}

// New returns an empty instance.
func (r *Resource) New() *Instance {
	return r.newInstance(nil)
}

// NewWith returns an instance holding a copy of local fields. No hooks run.
func (r *Resource) NewWith(fields map[string]any) *Instance {
	return r.newInstance(serializer.Copy(fields).(map[string]any))
}

// Construct builds an instance from deserialized fields and runs the
// afterDeserialize phase for it. It lets the resource serve as the
// constructor of associations.
func (r *Resource) Construct(fields map[string]any) (any, error) {
	return r.construct(context.Background(), fields)
}

func (r *Resource) construct(ctx context.Context, fields map[string]any) (*Instance, error) {
	inst := r.newInstance(fields)
	d, chain, err := r.snapshot(nil)
	if err != nil {
		return nil, err
	}
	call := newCall(ctx, r, d, "construct", inst)
	p := &pipeline{call: call, chain: chain}
	if _, err := p.runPhase(PhaseAfterDeserialize, inst, nil); err != nil {
		return nil, err
	}
	return inst, nil
}

// Build creates an instance from a server payload: the payload is unwrapped
// when root wrapping is on, deserialized and then passed through
// afterDeserialize.
func (r *Resource) Build(ctx context.Context, data any) (*Instance, error) {
	d, _, err := r.snapshot(nil)
	if err != nil {
		return nil, err
	}
	if d.RootWrapping {
		data = r.wrapper.Unwrap(&Response{Data: data}, d, true).Data
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, errors.InvalidInput("data", "must be an object")
	}
	v, err := d.Serializer.Deserialize(obj, nil)
	if err != nil {
		return nil, err
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, errors.InvalidInput("data", "must deserialize to an object")
	}
	return r.construct(ctx, fields)
}
