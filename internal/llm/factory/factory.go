// internal/llm/factory/factory.go
package factory

import (
	"net/http"

	"github.com/newthinker/nurexia/internal/config"
	"github.com/newthinker/nurexia/internal/llm"
	"github.com/newthinker/nurexia/internal/llm/anthropic"
	"github.com/newthinker/nurexia/internal/llm/google"
	"github.com/newthinker/nurexia/internal/llm/huggingface"
	"github.com/newthinker/nurexia/internal/llm/ollama"
	"github.com/newthinker/nurexia/internal/llm/openai"
	"go.uber.org/zap"
)

type backend struct {
	caps llm.Capabilities
	new  func(llm.Config) llm.Provider
}

var backends = []backend{
	{anthropic.Caps, func(c llm.Config) llm.Provider { return anthropic.New(c) }},
	{openai.Caps, func(c llm.Config) llm.Provider { return openai.New(c) }},
	{google.Caps, func(c llm.Config) llm.Provider { return google.New(c) }},
	{huggingface.Caps, func(c llm.Config) llm.Provider { return huggingface.New(c) }},
	{ollama.Caps, func(c llm.Config) llm.Provider { return ollama.New(c) }},
}

// Option customizes registry construction.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient sets the client used by every backend.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds the provider registry. Default-model overrides are applied
// here, once; credentials and hosts are resolved on every Create.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*llm.Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	entries := make([]llm.Entry, 0, len(backends))
	for _, b := range backends {
		caps := b.caps
		if model := cfg.Provider(caps.Name).DefaultModel; model != "" {
			caps.DefaultModel = model
		}
		entries = append(entries, llm.Entry{
			Capabilities: caps,
			New:          constructor(cfg, b.new, caps, logger, o),
		})
	}
	return llm.NewRegistry(logger, entries...)
}

// constructor binds caps so that a default-model override is reported by
// the provider as well as the registry.
func constructor(cfg *config.Config, build func(llm.Config) llm.Provider, caps llm.Capabilities, logger *zap.Logger, o options) llm.Constructor {
	return func(model string, opts llm.Options) (llm.Provider, error) {
		s := cfg.Provider(caps.Name)
		logger.Debug("creating provider",
			zap.String("provider", caps.Name),
			zap.String("model", model),
			zap.Bool("has_key", !s.APIKey.IsEmpty()),
		)
		return build(llm.Config{
			APIKey:       s.APIKey,
			BaseURL:      s.BaseURL,
			Model:        model,
			DefaultModel: caps.DefaultModel,
			Options:      opts,
			HTTPClient:   o.httpClient,
			Logger:       logger,
		}), nil
	}
}
