package jwt

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/resourcekit/errors"
)

// SigningMethod is a JWS algorithm name.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	RS384 SigningMethod = "RS384"
	RS512 SigningMethod = "RS512"
	ES256 SigningMethod = "ES256"
	ES384 SigningMethod = "ES384"
	ES512 SigningMethod = "ES512"
)

// Config describes the tokens a Source issues for outgoing requests.
type Config struct {
	// Method defaults to HS256.
	Method SigningMethod `yaml:"method" mapstructure:"method"`
	// Secret signs HS* tokens.
	Secret string `yaml:"secret" mapstructure:"secret"`
	// PrivateKey signs RS* (*rsa.PrivateKey) and ES* (*ecdsa.PrivateKey) tokens.
	PrivateKey any `yaml:"-" mapstructure:"-"`
	// PublicKey verifies tokens. Derived from PrivateKey when nil.
	PublicKey any `yaml:"-" mapstructure:"-"`

	Issuer   string   `yaml:"issuer" mapstructure:"issuer"`
	Subject  string   `yaml:"subject" mapstructure:"subject"`
	Audience []string `yaml:"audience" mapstructure:"audience"`

	// TokenTTL is the lifetime of issued tokens. Default 15m.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// RefreshBefore makes a Source reissue this long before expiry.
	// Default 30s.
	RefreshBefore time.Duration `yaml:"refresh_before" mapstructure:"refresh_before"`
}

// ApplyDefaults sets Method, TokenTTL and RefreshBefore when zero.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 15 * time.Minute
	}
	if c.RefreshBefore == 0 {
		c.RefreshBefore = 30 * time.Second
	}
}

// family returns the algorithm family of m: "HS", "RS" or "ES".
func (m SigningMethod) family() string {
	if len(m) < 2 {
		return ""
	}
	return string(m[:2])
}

// Validate checks that the key matches the signing method.
func (c *Config) Validate() error {
	if gojwt.GetSigningMethod(string(c.Method)) == nil {
		return errors.InvalidConfig("jwt: unsupported signing method: " + string(c.Method))
	}
	var keyOK bool
	switch c.Method.family() {
	case "HS":
		keyOK = c.Secret != ""
	case "RS":
		_, keyOK = c.PrivateKey.(*rsa.PrivateKey)
	case "ES":
		_, keyOK = c.PrivateKey.(*ecdsa.PrivateKey)
	default:
		return errors.InvalidConfig("jwt: unsupported signing method: " + string(c.Method))
	}
	if !keyOK {
		return errors.InvalidConfig(fmt.Sprintf("jwt: %s needs %s", c.Method, keyKinds[c.Method.family()]))
	}
	if c.TokenTTL < 0 || c.RefreshBefore < 0 {
		return errors.InvalidConfig("jwt: durations must not be negative")
	}
	if c.RefreshBefore >= c.TokenTTL {
		return errors.InvalidConfig("jwt: refresh_before must be shorter than token_ttl")
	}
	return nil
}

var keyKinds = map[string]string{
	"HS": "a secret",
	"RS": "an *rsa.PrivateKey",
	"ES": "an *ecdsa.PrivateKey",
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	return gojwt.GetSigningMethod(string(c.Method))
}

func (c *Config) signKey() any {
	if c.Method.family() == "HS" {
		return []byte(c.Secret)
	}
	return c.PrivateKey
}

// verifyKey is PublicKey, else the public half of PrivateKey, else Secret.
func (c *Config) verifyKey() any {
	if c.PublicKey != nil {
		return c.PublicKey
	}
	switch pk := c.PrivateKey.(type) {
	case *rsa.PrivateKey:
		return &pk.PublicKey
	case *ecdsa.PrivateKey:
		return &pk.PublicKey
	}
	return []byte(c.Secret)
}
