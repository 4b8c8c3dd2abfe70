package resource

import (
	"strings"
	"time"

	"github.com/kbukum/resourcekit/inflector"
	"github.com/kbukum/resourcekit/urlbuilder"
	"github.com/kbukum/resourcekit/validation"
)

// Config describes a resource type. Zero fields take their defaults; on
// Configure, set fields override the current configuration.
type Config struct {
	// Name is the singular resource name, used as the root wrapping key.
	Name string `yaml:"name" mapstructure:"name"`
	// PluralName defaults to the pluralized Name.
	PluralName string `yaml:"plural_name" mapstructure:"plural_name"`
	// IDAttribute is the local field holding the record id. Default "id".
	IDAttribute string `yaml:"id_attribute" mapstructure:"id_attribute" validate:"omitempty,excludesall=/"`
	// URL is a path template such as "/authors/{{authorId}}/books".
	URL string `yaml:"url" mapstructure:"url"`
	// URLFunc replaces the URL template.
	URLFunc urlbuilder.Func `yaml:"-" mapstructure:"-"`
	// StartSymbol and EndSymbol delimit URL placeholders.
	StartSymbol string `yaml:"start_symbol" mapstructure:"start_symbol"`
	EndSymbol   string `yaml:"end_symbol" mapstructure:"end_symbol"`
	// Singular resources never get an id segment appended. Default false.
	Singular *bool `yaml:"singular" mapstructure:"singular"`

	// RootWrapping nests request and response bodies under the resource
	// name. Default true.
	RootWrapping *bool `yaml:"root_wrapping" mapstructure:"root_wrapping"`
	// UnderscoreParams converts query parameter names to wire form.
	// Default true.
	UnderscoreParams *bool `yaml:"underscore_params" mapstructure:"underscore_params"`
	// FullResponse resolves operations with the *Response instead of data.
	// Default false.
	FullResponse *bool `yaml:"full_response" mapstructure:"full_response"`
	// UpdateMethod is the verb used by Update: "put" or "patch".
	UpdateMethod string `yaml:"update_method" mapstructure:"update_method" validate:"omitempty,oneof=put patch"`

	DefaultParams map[string]any    `yaml:"default_params" mapstructure:"default_params"`
	Headers       map[string]string `yaml:"headers" mapstructure:"headers"`
	Timeout       time.Duration     `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Serializer is a serializer.Serializer or the name of one.
	Serializer any `yaml:"serializer" mapstructure:"serializer"`
	// SnapshotSerializer is kept on the descriptor for extensions. The
	// request pipeline never uses it.
	SnapshotSerializer any `yaml:"snapshot_serializer" mapstructure:"snapshot_serializer"`

	// Each entry is a value of the matching type or the name of one.
	RequestTransformers       []any `yaml:"request_transformers" mapstructure:"request_transformers"`
	ResponseInterceptors      []any `yaml:"response_interceptors" mapstructure:"response_interceptors"`
	AfterResponseInterceptors []any `yaml:"after_response_interceptors" mapstructure:"after_response_interceptors"`
	Interceptors              []any `yaml:"interceptors" mapstructure:"interceptors"`
	Extensions                []any `yaml:"extensions" mapstructure:"extensions"`

	Inflector inflector.Inflector `yaml:"-" mapstructure:"-"`
}

// merge returns base overlaid with the set fields of c. Lists are copied
// so neither input is shared with the result.
func (c Config) merge(base Config) Config {
	out := base
	setString(&out.Name, c.Name)
	setString(&out.PluralName, c.PluralName)
	setString(&out.IDAttribute, c.IDAttribute)
	setString(&out.URL, c.URL)
	setString(&out.StartSymbol, c.StartSymbol)
	setString(&out.EndSymbol, c.EndSymbol)
	setString(&out.UpdateMethod, c.UpdateMethod)
	if c.URLFunc != nil {
		out.URLFunc = c.URLFunc
	}
	setBool(&out.Singular, c.Singular)
	setBool(&out.FullResponse, c.FullResponse)
	setBool(&out.RootWrapping, c.RootWrapping)
	setBool(&out.UnderscoreParams, c.UnderscoreParams)
	if c.DefaultParams != nil {
		out.DefaultParams = cloneParams(c.DefaultParams)
	}
	if c.Headers != nil {
		out.Headers = cloneHeaders(c.Headers)
	}
	if c.Timeout != 0 {
		out.Timeout = c.Timeout
	}
	if c.Serializer != nil {
		out.Serializer = c.Serializer
	}
	if c.SnapshotSerializer != nil {
		out.SnapshotSerializer = c.SnapshotSerializer
	}
	if c.Inflector != nil {
		out.Inflector = c.Inflector
	}
	out.RequestTransformers = pick(c.RequestTransformers, base.RequestTransformers)
	out.ResponseInterceptors = pick(c.ResponseInterceptors, base.ResponseInterceptors)
	out.AfterResponseInterceptors = pick(c.AfterResponseInterceptors, base.AfterResponseInterceptors)
	out.Interceptors = pick(c.Interceptors, base.Interceptors)
	out.Extensions = pick(c.Extensions, base.Extensions)
	return out
}

func (c Config) validate() error {
	v := validation.New()
	v.Merge(validation.Validate(c))
	v.Custom(c.URL != "" || c.URLFunc != nil, "url", "is required")
	if enabled(c.RootWrapping, true) {
		v.Custom(strings.TrimSpace(c.Name) != "", "name", "is required when root wrapping is enabled")
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst **bool, v *bool) {
	if v != nil {
		*dst = Bool(*v)
	}
}

// enabled reads an optional switch.
func enabled(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func pick(override, base []any) []any {
	if override != nil {
		return append([]any(nil), override...)
	}
	return append([]any(nil), base...)
}

// Bool returns a pointer to b, for the optional switches of Config.
func Bool(b bool) *bool { return &b }

// CallOption overrides descriptor fields for a single call.
type CallOption func(*Descriptor)

// WithFullResponse resolves the call with the *Response.
func WithFullResponse(full bool) CallOption {
	return func(d *Descriptor) { d.FullResponse = full }
}

// WithRootWrapping toggles root wrapping for the call.
func WithRootWrapping(wrap bool) CallOption {
	return func(d *Descriptor) { d.RootWrapping = wrap }
}

// WithSkipRequestProcessing dispatches the request configuration as given,
// bypassing request phases, serialization and wrapping.
func WithSkipRequestProcessing() CallOption {
	return func(d *Descriptor) { d.SkipRequestProcessing = true }
}

// WithTimeout aborts the call once timeout elapses.
func WithTimeout(timeout time.Duration) CallOption {
	return func(d *Descriptor) { d.Timeout = timeout }
}

// WithHeader sets a request header for the call.
func WithHeader(key, value string) CallOption {
	return func(d *Descriptor) {
		d.Headers = cloneHeaders(d.Headers)
		d.Headers[key] = value
	}
}
