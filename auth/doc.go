// Package auth attaches credentials to outgoing resource requests.
//
// NewInterceptor sets a token from a TokenSource in the request phase:
//
//	src, err := jwt.NewSource(&jwt.Config{Secret: secret, Subject: "books-client"})
//	books.AddInterceptor(auth.NewInterceptor(src))
//
// Config builds the same interceptor from configuration:
//
//	auth:
//	  enabled: true
//	  jwt:
//	    secret: "my-secret"
//	    token_ttl: "15m"
package auth
