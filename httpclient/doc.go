// Package httpclient provides the default resource.Transport: JSON over
// net/http with authentication and resilience (retry, circuit breaker,
// rate limiting, bulkhead).
//
// # Basic Usage
//
//	transport, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Timeout: 30 * time.Second,
//	    Auth:    httpclient.BearerAuth("my-token"),
//	})
//
//	books, err := resource.New(resource.Config{Name: "book", URL: "/books"},
//	    resource.WithTransport(transport))
//
// # With Resilience
//
//	transport, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "https://api.example.com",
//	    Retry:          httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("my-api"),
//	})
//
// Non-2xx responses are returned as *resource.HTTPError whose Err is the
// matching *errors.AppError.
package httpclient
