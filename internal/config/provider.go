package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/newthinker/nurexia/internal/core"
)

// providerEnv lists the environment variables each backend reads. Key
// variables are tried in order.
var providerEnv = map[string]struct {
	Keys    []string
	BaseURL string
}{
	"anthropic":   {Keys: []string{"ANTHROPIC_API_KEY"}, BaseURL: "ANTHROPIC_BASE_URL"},
	"openai":      {Keys: []string{"OPENAI_API_KEY"}, BaseURL: "OPENAI_BASE_URL"},
	"google":      {Keys: []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}, BaseURL: "GOOGLE_BASE_URL"},
	"huggingface": {Keys: []string{"HUGGINGFACE_API_KEY", "HF_TOKEN"}, BaseURL: "HUGGINGFACE_API_URL"},
	"ollama":      {BaseURL: "OLLAMA_HOST"},
}

// ProviderSettings is the resolved configuration of one backend.
type ProviderSettings struct {
	APIKey       core.Secret
	BaseURL      string
	DefaultModel string

	// KeyEnv names the primary credential variable, empty when the
	// backend needs none.
	KeyEnv string
}

// NeedsKey reports whether the backend requires a credential.
func (s ProviderSettings) NeedsKey() bool {
	return s.KeyEnv != ""
}

// Provider resolves settings for name. It reads the environment on every
// call so each provider construction sees current credentials.
func (c *Config) Provider(name string) ProviderSettings {
	var file ProviderConfig
	if c != nil {
		file = c.Providers[name]
	}

	s := ProviderSettings{
		APIKey:       core.NewSecret(file.APIKey),
		BaseURL:      file.BaseURL,
		DefaultModel: file.DefaultModel,
	}

	env := providerEnv[name]
	if len(env.Keys) > 0 {
		s.KeyEnv = env.Keys[0]
	}
	for _, k := range env.Keys {
		if v := os.Getenv(k); v != "" {
			s.APIKey = core.NewSecret(v)
			break
		}
	}
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			s.BaseURL = v
		}
	}
	if v := os.Getenv(DefaultModelEnv(name)); v != "" {
		s.DefaultModel = v
	}
	return s
}

// DefaultModelEnv returns the variable overriding name's default model.
func DefaultModelEnv(name string) string {
	return strings.ToUpper(name) + "_DEFAULT_MODEL"
}

// ValidateProvider checks that name has what it needs to connect: a
// credential for hosted backends, a usable host for local ones. An unset
// host is allowed; the backend falls back to its default.
func (c *Config) ValidateProvider(name string) error {
	env, known := providerEnv[name]
	if !known {
		return core.NewError(core.ErrUnknownProvider, fmt.Sprintf("unknown provider %q", name), nil)
	}
	s := c.Provider(name)
	if s.NeedsKey() {
		if s.APIKey.IsEmpty() {
			return core.NewError(core.ErrConfigMissing, s.KeyEnv+" environment variable is not set", nil)
		}
		return nil
	}
	if s.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return core.NewError(core.ErrConfigInvalid,
			fmt.Sprintf("%s must be an http(s) URL, got %q", env.BaseURL, s.BaseURL), err)
	}
	return nil
}
