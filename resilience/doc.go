// Package resilience provides the fault-tolerance policies applied by the
// HTTP transport around each dispatched request.
//
//   - Retry: retries failed attempts with exponential backoff
//   - CircuitBreaker: fails fast while the remote API keeps failing
//   - RateLimiter: token bucket limiting the request rate
//   - Bulkhead: caps the number of requests in flight
//
// All config structs carry yaml and mapstructure tags so they can be loaded
// alongside resource definitions:
//
//	transport:
//	  retry:
//	    max_attempts: 3
//	    initial_backoff: 200ms
//	  circuit_breaker:
//	    max_failures: 5
//	    timeout: 30s
//	  bulkhead:
//	    max_concurrent: 8
package resilience
