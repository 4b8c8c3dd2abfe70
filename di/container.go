package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/resilience"
)

// RegistrationMode is how a component gets its instance.
type RegistrationMode int

const (
	// Eager components are built by RegisterEager.
	Eager RegistrationMode = iota
	// Lazy components are built by the first Resolve.
	Lazy
	// Singleton components are registered as instances.
	Singleton
)

// Container holds named components. It satisfies resource.Resolver, so a
// resource can refer to interceptors, serializers and extensions by name.
//
// Constructors are functions of the form func() T, func() (T, error),
// func(context.Context) T or func(Container) T, optionally with an error.
type Container interface {
	// Register is RegisterLazy without options.
	Register(key string, constructor any) error
	RegisterLazy(key string, constructor any, options ...LazyOption) error
	RegisterEager(key string, constructor any) error
	RegisterSingleton(key string, instance any) error
	Resolve(key string) (any, error)
	MustResolve(key string) any
	// InvalidateCache drops a built instance so the next Resolve rebuilds
	// it. A singleton is removed.
	InvalidateCache(key string) error
	Refresh(key string) (any, error)
	Registrations() []RegistrationInfo
	// Close closes every built component that has a Close() error method.
	Close() error
}

// RegistrationInfo describes one registered component.
type RegistrationInfo struct {
	Key         string
	Mode        RegistrationMode
	Initialized bool
}

// LazyOption configures a lazy registration.
type LazyOption func(*entry)

// WithRetry retries a failing constructor according to cfg.
func WithRetry(cfg resilience.RetryConfig) LazyOption {
	return func(e *entry) { e.retry = &cfg }
}

// WithCircuitBreaker stops calling a constructor that keeps failing until
// the breaker's timeout has passed.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) LazyOption {
	return func(e *entry) { e.breaker = resilience.NewCircuitBreaker(cfg) }
}

type entry struct {
	key         string
	mode        RegistrationMode
	constructor reflect.Value
	retry       *resilience.RetryConfig
	breaker     *resilience.CircuitBreaker

	mu       sync.Mutex
	built    bool
	instance any
}

func (e *entry) info() RegistrationInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return RegistrationInfo{Key: e.key, Mode: e.mode, Initialized: e.built}
}

type container struct {
	mu      sync.RWMutex
	entries map[string]*entry
	log     *logger.Logger
}

// NewContainer returns an empty Container.
func NewContainer() Container {
	return &container{entries: make(map[string]*entry), log: logger.Get("di")}
}

func (c *container) Register(key string, constructor any) error {
	return c.RegisterLazy(key, constructor)
}

func (c *container) RegisterLazy(key string, constructor any, options ...LazyOption) error {
	e, err := newEntry(key, constructor, Lazy)
	if err != nil {
		return err
	}
	for _, opt := range options {
		opt(e)
	}
	return c.put(e)
}

func (c *container) RegisterEager(key string, constructor any) error {
	e, err := newEntry(key, constructor, Eager)
	if err != nil {
		return err
	}
	if _, err := c.build(e); err != nil {
		return err
	}
	return c.put(e)
}

// RegisterSingleton stores instance under key, replacing any earlier
// registration. Constructors registered later under the same key are
// rejected.
func (c *container) RegisterSingleton(key string, instance any) error {
	if key == "" {
		return errors.InvalidInput("key", "component key is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{key: key, mode: Singleton, built: true, instance: instance}
	return nil
}

func newEntry(key string, constructor any, mode RegistrationMode) (*entry, error) {
	if key == "" {
		return nil, errors.InvalidInput("key", "component key is required")
	}
	fn := reflect.ValueOf(constructor)
	if fn.Kind() != reflect.Func {
		return nil, errors.InvalidInput("constructor", "constructor must be a function")
	}
	return &entry{key: key, mode: mode, constructor: fn}, nil
}

func (c *container) put(e *entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[e.key]; ok && old.mode == Singleton {
		return errors.InvalidInput("key", fmt.Sprintf("%q is registered as a singleton", e.key))
	}
	c.entries[e.key] = e
	return nil
}

func (c *container) lookup(key string) (*entry, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.UnresolvedDependency("component", key).WithDetail("reason", "not registered")
	}
	return e, nil
}

// Resolve returns the component registered under key. Unknown keys and
// failing constructors yield an UNRESOLVED_DEPENDENCY error. A
// constructor resolving its own key deadlocks.
func (c *container) Resolve(key string) (any, error) {
	e, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return c.build(e)
}

func (c *container) MustResolve(key string) any {
	v, err := c.Resolve(key)
	if err != nil {
		panic(err)
	}
	return v
}

// build returns e's instance, calling its constructor once. Failures are
// not cached.
func (c *container) build(e *entry) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.built {
		return e.instance, nil
	}

	attempt := func() (any, error) { return c.call(e.constructor) }
	if e.breaker != nil {
		inner := attempt
		attempt = func() (v any, err error) {
			err = e.breaker.Execute(func() error {
				v, err = inner()
				return err
			})
			return v, err
		}
	}
	var v any
	var err error
	if e.retry != nil {
		v, err = resilience.Retry(context.Background(), *e.retry, attempt)
	} else {
		v, err = attempt()
	}
	if err != nil {
		c.log.Debug("component initialization failed", logger.Fields("component", e.key, logger.FieldError, err.Error()))
		return nil, errors.UnresolvedDependency("component", e.key).WithCause(err)
	}
	e.instance, e.built = v, true
	c.log.Debug("component initialized", logger.Fields("component", e.key))
	return v, nil
}

var (
	contextType   = reflect.TypeFor[context.Context]()
	containerType = reflect.TypeFor[Container]()
	errorType     = reflect.TypeFor[error]()
)

func (c *container) call(fn reflect.Value) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, errors.Internal(fmt.Errorf("constructor panicked: %v", r))
		}
	}()

	t := fn.Type()
	var args []reflect.Value
	switch {
	case t.NumIn() == 0:
	case t.NumIn() == 1 && t.In(0) == contextType:
		args = []reflect.Value{reflect.ValueOf(context.Background())}
	case t.NumIn() == 1 && t.In(0) == containerType:
		args = []reflect.Value{reflect.ValueOf(Container(c))}
	default:
		return nil, errors.InvalidInput("constructor", fmt.Sprintf("unsupported constructor signature %s", t))
	}
	if t.NumOut() == 0 || t.NumOut() > 2 || (t.NumOut() == 2 && t.Out(1) != errorType) {
		return nil, errors.InvalidInput("constructor", "constructor must return either (instance) or (instance, error)")
	}

	out := fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func (c *container) InvalidateCache(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return errors.UnresolvedDependency("component", key).WithDetail("reason", "not registered")
	}
	if e.mode == Singleton {
		delete(c.entries, key)
		return nil
	}
	e.mu.Lock()
	e.built, e.instance = false, nil
	if e.breaker != nil {
		e.breaker.Reset()
	}
	e.mu.Unlock()
	return nil
}

func (c *container) Refresh(key string) (any, error) {
	if err := c.InvalidateCache(key); err != nil {
		return nil, err
	}
	return c.Resolve(key)
}

// Registrations lists the components ordered by key.
func (c *container) Registrations() []RegistrationInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]RegistrationInfo, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.info())
	}
	slices.SortFunc(out, func(a, b RegistrationInfo) int { return strings.Compare(a.Key, b.Key) })
	return out
}

func (c *container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for key, e := range c.entries {
		e.mu.Lock()
		closer, ok := e.instance.(interface{ Close() error })
		built := e.built
		e.mu.Unlock()
		if !built || !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
	}
	return stderrors.Join(errs...)
}
