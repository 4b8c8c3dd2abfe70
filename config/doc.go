// Package config loads client configuration and assembles resources from it.
//
// LoadConfig reads a config.yml found in the standard locations (or given
// with WithConfigFile) through Viper, loads a .env file with godotenv and
// binds every environment variable to the matching nested key, so
// HTTP_TIMEOUT=5s overrides http.timeout.
//
// ClientConfig groups the service identity, the shared HTTP transport,
// request credentials, tracing and the resource definitions. NewClient
// turns it into a Client: the transport and the built-in interceptors are
// registered in a di.Container, which also resolves the interceptor and
// serializer names a resource lists.
//
// # Usage
//
//	cfg, err := config.LoadClientConfig("library")
//	if err != nil {
//		return err
//	}
//	client, err := config.NewClient(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
//	books := client.MustResource("book")
//	book, err := task.AwaitAs[*resource.Instance](ctx, books.Get(ctx, 1, nil))
//
// Viper lowercases map keys, so resource names and header names read from
// files arrive in lower case.
package config
