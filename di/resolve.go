package di

import (
	"fmt"

	"github.com/kbukum/resourcekit/errors"
)

// Resolve resolves key and asserts the component's type. A component of
// another type is reported as UNRESOLVED_DEPENDENCY.
//
//	ic, err := di.Resolve[*resource.Interceptor](c, "auditing")
func Resolve[T any](c Container, key string) (T, error) {
	var zero T
	v, err := c.Resolve(key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.UnresolvedDependency("component", key).
			WithDetail("reason", fmt.Sprintf("component is %T, expected %T", v, zero))
	}
	return typed, nil
}

// MustResolve is Resolve for wiring code where a missing component is a
// programming error.
func MustResolve[T any](c Container, key string) T {
	v, err := Resolve[T](c, key)
	if err != nil {
		panic(err)
	}
	return v
}

// TryResolve reports false instead of failing, for optional components.
//
//	if tracing, ok := di.TryResolve[*resource.Interceptor](c, di.Builtin.Tracing); ok {
//		books.AddInterceptor(tracing)
//	}
func TryResolve[T any](c Container, key string) (T, bool) {
	v, err := Resolve[T](c, key)
	return v, err == nil
}
