// Package version reports the build of the client library.
//
// Version, commit and build time are set with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/resourcekit/version.Version=1.0.0"
//
// The HTTP transport sends UserAgent() unless a User-Agent header is
// configured.
package version
