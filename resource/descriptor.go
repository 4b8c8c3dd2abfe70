package resource

import (
	"time"

	"github.com/kbukum/resourcekit/inflector"
	"github.com/kbukum/resourcekit/serializer"
	"github.com/kbukum/resourcekit/urlbuilder"
)

// Descriptor is the resolved configuration of a resource type. Each call
// works on its own copy; changes to the copy are never written back.
type Descriptor struct {
	Name             string
	PluralName       string
	IDAttribute      string
	URL              string
	Singular         bool
	RootWrapping     bool
	UnderscoreParams bool
	FullResponse     bool
	UpdateMethod     string
	DefaultParams    map[string]any
	Headers          map[string]string
	Timeout          time.Duration
	Inflector        inflector.Inflector

	// SkipRequestProcessing is only set per call.
	SkipRequestProcessing bool

	// Serializer is resolved when a call starts.
	Serializer         serializer.Serializer
	SnapshotSerializer any
	Extensions         []Extension

	// Resource is the type the descriptor belongs to.
	Resource *Resource

	buildURL      urlbuilder.Func
	serializerRef any

	// Entries are replaced by their resolved value on first use.
	requestTransformers       []any
	responseInterceptors      []any
	afterResponseInterceptors []any
	interceptors              []any
}

// BuildURL resolves the URL template against ctx.
func (d *Descriptor) BuildURL(ctx map[string]any) string {
	return d.buildURL(ctx)
}

// AddInterceptor registers an interceptor, or the name of one. Extensions
// call it from Configure.
func (d *Descriptor) AddInterceptor(v any) {
	d.interceptors = append(d.interceptors, v)
}

// Extension is a capability attached to a resource type at configuration
// time. Extensions are applied once per name, in the order configured.
// Configure runs with the resource locked and must not call back into it.
type Extension interface {
	Name() string
	Configure(d *Descriptor) error
}
