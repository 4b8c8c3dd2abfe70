// Package errors provides the error taxonomy of the resource client.
//
// Every failure the client produces on its own is an *AppError carrying a
// machine-readable code: ABORTED and TIMEOUT for canceled operations,
// UNRESOLVED_DEPENDENCY for names the resolver does not know, INVALID_CONFIG
// for unusable resource configuration. Errors returned by the remote API are
// surfaced by the transport and can be mapped with FromStatus. The error
// body shape follows RFC 7807.
package errors
