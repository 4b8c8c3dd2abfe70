package httpclient

import (
	"net/http"

	"github.com/kbukum/resourcekit/validation"
)

// AuthType selects how the transport authenticates every request.
type AuthType string

const (
	AuthNone   AuthType = ""
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	// AuthAPIKey sends Key in a header or query parameter.
	AuthAPIKey AuthType = "api_key"
	// AuthCustom hands the request to Apply.
	AuthCustom AuthType = "custom"
)

const defaultAPIKeyName = "X-API-Key"

// AuthConfig holds static transport credentials. Per-resource or rotating
// credentials belong in the auth package's interceptor instead.
type AuthConfig struct {
	Type     AuthType `yaml:"type" mapstructure:"type"`
	Token    string   `yaml:"token" mapstructure:"token"`
	Username string   `yaml:"username" mapstructure:"username"`
	Password string   `yaml:"password" mapstructure:"password"`
	Key      string   `yaml:"key" mapstructure:"key"`
	// In is "header" (default) or "query".
	In string `yaml:"in" mapstructure:"in"`
	// Name is the API key header or parameter. Default X-API-Key.
	Name  string              `yaml:"name" mapstructure:"name"`
	Apply func(*http.Request) `yaml:"-" mapstructure:"-"`
}

// BearerAuth sends "Authorization: Bearer token".
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// BasicAuth sends HTTP basic credentials.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Type: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth sends key in the X-API-Key header. Use WithName to change
// the header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "header"}
}

// APIKeyAuthQuery sends key as the query parameter param.
func APIKeyAuthQuery(key, param string) *AuthConfig {
	return &AuthConfig{Type: AuthAPIKey, Key: key, In: "query", Name: param}
}

// CustomAuth lets fn authenticate each request.
func CustomAuth(fn func(*http.Request)) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// WithName sets the API key header or parameter name and returns a.
func (a *AuthConfig) WithName(name string) *AuthConfig {
	a.Name = name
	return a
}

var authTypes = []string{string(AuthBearer), string(AuthBasic), string(AuthAPIKey), string(AuthCustom)}

func (a *AuthConfig) validate() error {
	v := validation.New().
		OneOf("auth.type", string(a.Type), authTypes).
		OneOf("auth.in", a.In, []string{"header", "query"})
	switch a.Type {
	case AuthBearer:
		v.Required("auth.token", a.Token)
	case AuthBasic:
		v.Required("auth.username", a.Username)
	case AuthAPIKey:
		v.Required("auth.key", a.Key)
	case AuthCustom:
		v.Custom(a.Apply != nil, "auth.apply", "is required for custom auth")
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// apply runs after the request headers are set, so it wins over a
// configured Authorization header.
func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		req.SetBasicAuth(a.Username, a.Password)
	case AuthAPIKey:
		a.applyKey(req)
	case AuthCustom:
		if a.Apply != nil {
			a.Apply(req)
		}
	}
}

func (a *AuthConfig) applyKey(req *http.Request) {
	name := a.Name
	if name == "" {
		name = defaultAPIKeyName
	}
	if a.In != "query" {
		req.Header.Set(name, a.Key)
		return
	}
	q := req.URL.Query()
	q.Set(name, a.Key)
	req.URL.RawQuery = q.Encode()
}
