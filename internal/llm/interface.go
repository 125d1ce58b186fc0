package llm

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/newthinker/nurexia/internal/core"
	"go.uber.org/zap"
)

// ConnectionTimeout bounds the metadata request made by TestConnection.
const ConnectionTimeout = 10 * time.Second

// Provider defines the capability contract every LLM backend satisfies.
type Provider interface {
	Name() string
	Model() string
	Capabilities() Capabilities

	// NormalizeOptions returns a copy of opts with backend defaults filled in.
	NormalizeOptions(opts Options) Options

	// TestConnection validates credentials and reachability without
	// generating anything. It never returns an error; failures are
	// reported as (false, message).
	TestConnection(ctx context.Context) (bool, string)

	// Chat performs one buffered generation over the full history.
	// Call-level opts take precedence over instance options.
	Chat(ctx context.Context, messages []core.Message, opts Options) (*ChatResponse, error)

	// StreamChat returns a pull-based fragment stream. Backends without
	// streaming support return core.ErrUnsupportedCapability.
	StreamChat(ctx context.Context, messages []core.Message, opts Options) (Stream, error)
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Model        string
	Usage        Usage
	FinishReason string
}

// Metadata returns the response details recorded on the conversation state.
func (r *ChatResponse) Metadata() map[string]any {
	meta := map[string]any{}
	if r.Model != "" {
		meta[core.MetaModel] = r.Model
	}
	if r.FinishReason != "" {
		meta[core.MetaFinishReason] = r.FinishReason
	}
	if r.Usage.InputTokens > 0 || r.Usage.OutputTokens > 0 {
		meta[core.MetaUsage] = map[string]int{
			"input_tokens":  r.Usage.InputTokens,
			"output_tokens": r.Usage.OutputTokens,
		}
	}
	return meta
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Capabilities is the static descriptor of a provider type.
type Capabilities struct {
	Name         string   `json:"name" yaml:"name"`
	DefaultModel string   `json:"default_model" yaml:"default_model"`
	Models       []string `json:"models" yaml:"models"`
	Streaming    bool     `json:"streaming" yaml:"streaming"`
}

// Supports reports whether model is in the catalog.
func (c Capabilities) Supports(model string) bool {
	return slices.Contains(c.Models, model)
}

// clone returns a copy that shares no slices with c.
func (c Capabilities) clone() Capabilities {
	c.Models = slices.Clone(c.Models)
	return c
}

// Config carries what a backend needs to reach its API. It is built per
// construction from configuration and the environment.
type Config struct {
	APIKey  core.Secret
	BaseURL string
	Model   string
	// DefaultModel replaces the built-in default model when set.
	DefaultModel string
	Options    Options
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Base implements the descriptor and option handling shared by backends.
type Base struct {
	caps   Capabilities
	model  string
	opts   Options
	logger *zap.Logger
}

// NewBase resolves the model against caps and keeps a private copy of opts.
func NewBase(caps Capabilities, cfg Config) Base {
	caps = caps.clone()
	if cfg.DefaultModel != "" {
		caps.DefaultModel = cfg.DefaultModel
	}
	model := cfg.Model
	if model == "" {
		model = caps.DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Base{
		caps:   caps,
		model:  model,
		opts:   cfg.Options.Clone(),
		logger: logger.With(zap.String("provider", caps.Name), zap.String("model", model)),
	}
}

// Name returns the provider name.
func (b *Base) Name() string { return b.caps.Name }

// Model returns the resolved model ID.
func (b *Base) Model() string { return b.model }

// Capabilities returns the provider descriptor.
func (b *Base) Capabilities() Capabilities { return b.caps.clone() }

// NormalizeOptions fills unset fields with the shared defaults.
func (b *Base) NormalizeOptions(opts Options) Options {
	return opts.WithDefaults(DefaultOptions())
}

// ResolveOptions merges instance options with call overrides and normalizes.
func (b *Base) ResolveOptions(call Options) Options {
	return b.NormalizeOptions(b.opts.Merge(call))
}

// Explicit reports whether key was set by the instance or call options,
// before any default is applied.
func (b *Base) Explicit(call Options, key string) bool {
	return b.opts.Merge(call).Has(key)
}

// Logger returns the provider-scoped logger.
func (b *Base) Logger() *zap.Logger { return b.logger }
