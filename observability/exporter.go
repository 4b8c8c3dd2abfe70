package observability

import (
	"go.opentelemetry.io/otel/attribute"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
)

const instrumentationName = "github.com/kbukum/resourcekit/observability"

// ExporterConfig is shared by TracerConfig and MeterConfig: who is
// reporting and where the OTLP/HTTP collector listens.
type ExporterConfig struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	Environment    string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the collector's host:port, e.g. "localhost:4318".
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure sends over plain HTTP.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
}

func defaultExporterConfig(serviceName string) ExporterConfig {
	return ExporterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
	}
}

// Inherit fills the empty identity fields from the client's service config.
func (c *ExporterConfig) Inherit(name, version, environment string) {
	if c.ServiceName == "" {
		c.ServiceName = name
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = version
	}
	if c.Environment == "" {
		c.Environment = environment
	}
}

func (c ExporterConfig) resource() (*sdkresource.Resource, error) {
	return sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewSchemaless(
			attribute.String("service.name", c.ServiceName),
			attribute.String("service.version", c.ServiceVersion),
			attribute.String("deployment.environment", c.Environment),
		),
	)
}
