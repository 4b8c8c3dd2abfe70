package auth

import (
	"github.com/kbukum/resourcekit/auth/jwt"
	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/resource"
)

// Config configures the credentials attached to resource requests. Token
// and JWT are mutually exclusive.
type Config struct {
	// Enabled controls whether requests are authenticated.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Header carries the token. Default "Authorization".
	Header string `yaml:"header" mapstructure:"header"`

	// Scheme prefixes the token. Default "Bearer".
	Scheme string `yaml:"scheme" mapstructure:"scheme"`

	// Token is a fixed token.
	Token string `yaml:"token" mapstructure:"token"`

	// JWT signs service tokens (nil if not used).
	JWT *jwt.Config `yaml:"jwt" mapstructure:"jwt"`
}

// ApplyDefaults sets sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Header == "" {
		c.Header = "Authorization"
	}
	if c.Scheme == "" {
		c.Scheme = "Bearer"
	}
	if c.JWT != nil {
		c.JWT.ApplyDefaults()
	}
}

// Validate checks that exactly one credential is configured.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.Token != "" && c.JWT != nil:
		return errors.InvalidConfig("auth: token and jwt are mutually exclusive")
	case c.Token == "" && c.JWT == nil:
		return errors.InvalidConfig("auth: token or jwt is required")
	case c.JWT != nil:
		return c.JWT.Validate()
	}
	return nil
}

// Interceptor builds the interceptor described by c. It returns nil when
// authentication is disabled.
func (c *Config) Interceptor() (*resource.Interceptor, error) {
	if !c.Enabled {
		return nil, nil
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var src TokenSource = StaticToken(c.Token)
	if c.JWT != nil {
		s, err := jwt.NewSource(c.JWT)
		if err != nil {
			return nil, err
		}
		src = s
	}
	return NewInterceptor(src, WithHeader(c.Header), WithScheme(c.Scheme)), nil
}
