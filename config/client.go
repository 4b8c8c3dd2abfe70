package config

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"

	"github.com/kbukum/resourcekit/auth"
	"github.com/kbukum/resourcekit/di"
	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/httpclient"
	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/observability"
	"github.com/kbukum/resourcekit/resource"
)

// ObservabilityConfig enables the tracing interceptor and, optionally, the
// OTLP exporters.
type ObservabilityConfig struct {
	Enabled bool                        `yaml:"enabled" mapstructure:"enabled"`
	Tracing *observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics *observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// ClientConfig describes a set of resources sharing one HTTP transport.
//
//	name: library
//	http:
//	  base_url: https://api.example.com
//	  timeout: 10s
//	defaults:
//	  update_method: patch
//	resources:
//	  book:
//	    url: /authors/{{authorId}}/books
type ClientConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	HTTP          httpclient.Config          `yaml:"http" mapstructure:"http"`
	Auth          auth.Config                `yaml:"auth" mapstructure:"auth"`
	Observability ObservabilityConfig        `yaml:"observability" mapstructure:"observability"`
	Defaults      resource.Config            `yaml:"defaults" mapstructure:"defaults"`
	Resources     map[string]resource.Config `yaml:"resources" mapstructure:"resources"`
}

// ApplyDefaults applies default values to every section.
func (c *ClientConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Auth.ApplyDefaults()
	if t := c.Observability.Tracing; t != nil {
		t.Inherit(c.Name, c.Version, c.Environment)
	}
	if m := c.Observability.Metrics; m != nil {
		m.Inherit(c.Name, c.Version, c.Environment)
	}
}

// Validate validates every section. Resource configurations are validated
// when the client builds them.
func (c *ClientConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// LoadClientConfig loads, defaults and validates a ClientConfig.
func LoadClientConfig(serviceName string, opts ...LoaderOption) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Client owns the resources of a ClientConfig together with their shared
// transport and the container their named dependencies resolve from.
type Client struct {
	cfg       *ClientConfig
	log       *logger.Logger
	container di.Container
	transport *httpclient.Transport
	builtins  []any
	shutdown  []func(context.Context) error

	mu        sync.RWMutex
	resources map[string]*resource.Resource
}

// ClientOption configures NewClient.
type ClientOption func(*clientOptions)

type clientOptions struct {
	log       *logger.Logger
	container di.Container
	httpOpts  []httpclient.Option
	obsOpts   []observability.Option
}

// WithLogger sets the client logger. Default: a logger built from the
// logging section.
func WithLogger(l *logger.Logger) ClientOption {
	return func(o *clientOptions) { o.log = l }
}

// WithContainer resolves named dependencies from c, so applications can
// register their own interceptors and serializers before building the
// client.
func WithContainer(c di.Container) ClientOption {
	return func(o *clientOptions) { o.container = c }
}

// WithHTTPOptions passes options to the transport.
func WithHTTPOptions(opts ...httpclient.Option) ClientOption {
	return func(o *clientOptions) { o.httpOpts = append(o.httpOpts, opts...) }
}

// WithObservabilityOptions passes options to the tracing interceptor.
func WithObservabilityOptions(opts ...observability.Option) ClientOption {
	return func(o *clientOptions) { o.obsOpts = append(o.obsOpts, opts...) }
}

// NewClient builds the transport, registers the built-in interceptors and
// creates every configured resource. The built-in interceptors run before
// the ones a resource lists.
func NewClient(ctx context.Context, cfg *ClientConfig, opts ...ClientOption) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.New(&cfg.Logging, cfg.Name)
	}
	if o.container == nil {
		o.container = di.NewContainer()
	}

	c := &Client{
		cfg:       cfg,
		log:       o.log,
		container: o.container,
		resources: map[string]*resource.Resource{},
	}

	transport, err := httpclient.New(cfg.HTTP, append([]httpclient.Option{
		httpclient.WithLogger(o.log.WithComponent("httpclient")),
	}, o.httpOpts...)...)
	if err != nil {
		return nil, err
	}
	c.transport = transport
	if err := c.container.RegisterSingleton(di.Builtin.Transport, transport); err != nil {
		return nil, err
	}
	if err := c.container.RegisterSingleton(di.Builtin.Config, cfg); err != nil {
		return nil, err
	}

	if err := c.registerBuiltins(ctx, o.obsOpts); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	names := make([]string, 0, len(cfg.Resources))
	for name := range cfg.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := c.Register(name, cfg.Resources[name]); err != nil {
			_ = c.Close(ctx)
			return nil, err
		}
	}

	c.log.Info("resource client ready", logger.Fields(
		"base_url", cfg.HTTP.BaseURL,
		"resources", len(names),
		"auth", cfg.Auth.Enabled,
		"observability", cfg.Observability.Enabled,
	))
	return c, nil
}

func (c *Client) registerBuiltins(ctx context.Context, obsOpts []observability.Option) error {
	obs := c.cfg.Observability
	if obs.Enabled {
		if obs.Tracing != nil {
			tp, err := observability.InitTracer(ctx, obs.Tracing)
			if err != nil {
				return errors.InvalidConfig("observability.tracing: " + err.Error()).WithCause(err)
			}
			c.shutdown = append(c.shutdown, tp.Shutdown)
		}
		if obs.Metrics != nil {
			mp, err := observability.InitMeter(ctx, obs.Metrics)
			if err != nil {
				return errors.InvalidConfig("observability.metrics: " + err.Error()).WithCause(err)
			}
			c.shutdown = append(c.shutdown, mp.Shutdown)
		}
		obsOpts = append([]observability.Option{
			observability.WithLogger(c.log.WithComponent("observability")),
		}, obsOpts...)
		err := c.container.RegisterLazy(di.Builtin.Tracing, func() (*resource.Interceptor, error) {
			return observability.NewInterceptor(obsOpts...)
		})
		if err != nil {
			return err
		}
		c.builtins = append(c.builtins, di.Builtin.Tracing)
	}

	ic, err := c.cfg.Auth.Interceptor()
	if err != nil {
		return err
	}
	if ic != nil {
		if err := c.container.RegisterSingleton(di.Builtin.Auth, ic); err != nil {
			return err
		}
		c.builtins = append(c.builtins, di.Builtin.Auth)
	}
	return nil
}

// Register creates a resource from cfg under name, replacing any resource
// of the same name. cfg.Name defaults to name.
func (c *Client) Register(name string, cfg resource.Config) (*resource.Resource, error) {
	if cfg.Name == "" {
		cfg.Name = name
	}
	interceptors := cfg.Interceptors
	if len(interceptors) == 0 {
		interceptors = c.cfg.Defaults.Interceptors
	}
	cfg.Interceptors = append(append([]any{}, c.builtins...), interceptors...)

	r, err := resource.New(cfg,
		resource.WithDefaults(c.cfg.Defaults),
		resource.WithTransport(c.transport),
		resource.WithResolver(c.container),
		resource.WithLogger(c.log.WithComponent("resource")),
	)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.resources[name] = r
	c.mu.Unlock()
	return r, nil
}

// Resource returns the resource registered under name.
func (c *Client) Resource(name string) (*resource.Resource, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.resources[name]
	if !ok {
		return nil, errors.NotFound("resource", name)
	}
	return r, nil
}

// MustResource is like Resource but panics when name is unknown.
func (c *Client) MustResource(name string) *resource.Resource {
	r, err := c.Resource(name)
	if err != nil {
		panic(err)
	}
	return r
}

// Names returns the registered resource names in order.
func (c *Client) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.resources))
	for name := range c.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Container returns the container named dependencies resolve from.
func (c *Client) Container() di.Container { return c.container }

// Transport returns the shared transport.
func (c *Client) Transport() *httpclient.Transport { return c.transport }

// Health reports the health of the transport.
func (c *Client) Health(ctx context.Context) *observability.ServiceHealth {
	h := observability.NewServiceHealth(c.cfg.Name, c.cfg.Version)
	if c.transport == nil {
		return h
	}
	return h.Check(ctx, c.transport)
}

// Close flushes the telemetry providers and closes the container.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.shutdown) - 1; i >= 0; i-- {
		if err := c.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.shutdown = nil
	if err := c.container.Close(); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}
