// Package di provides a named component container.
//
// Components are registered eagerly, lazily or as singletons and looked up
// by key. A Container satisfies resource.Resolver, so resource
// configurations can name their interceptors, serializers and extensions
// instead of holding them directly.
//
// # Registration
//
//	c := di.NewContainer()
//	c.RegisterSingleton("auditing", &resource.Interceptor{Request: audit})
//	c.RegisterLazy("tracing", func() (*resource.Interceptor, error) {
//		return observability.NewInterceptor()
//	}, di.WithRetry(resilience.DefaultRetryConfig()))
//
// # Resolution
//
//	books, err := resource.New(resource.Config{
//	    Name:         "book",
//	    Interceptors: []any{"auditing"},
//	}, resource.WithResolver(c))
package di
