// internal/llm/anthropic/anthropic.go
package anthropic

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"go.uber.org/zap"
)

const (
	Name   = "anthropic"
	KeyEnv = "ANTHROPIC_API_KEY"
)

// Caps describes the Anthropic backend.
var Caps = llm.Capabilities{
	Name:         Name,
	DefaultModel: "claude-3-7-sonnet-20250219",
	Models: []string{
		"claude-3-haiku-20240307",
		"claude-3-sonnet-20240229",
		"claude-3-opus-20240229",
		"claude-3-5-sonnet-20240620",
		"claude-3-7-sonnet-20250219",
	},
	Streaming: true,
}

// Provider implements the LLM interface for Anthropic.
type Provider struct {
	llm.Base
	client anthropic.Client
	hasKey bool
}

// New creates a new Anthropic provider. A missing key is reported by
// TestConnection rather than here.
func New(cfg llm.Config) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey.Expose()),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return &Provider{
		Base:   llm.NewBase(Caps, cfg),
		client: anthropic.NewClient(opts...),
		hasKey: !cfg.APIKey.IsEmpty(),
	}
}

// TestConnection lists models, which needs a valid key but no generation.
func (p *Provider) TestConnection(ctx context.Context) (bool, string) {
	if !p.hasKey {
		return false, KeyEnv + " environment variable is not set"
	}
	ctx, cancel := context.WithTimeout(ctx, llm.ConnectionTimeout)
	defer cancel()

	if _, err := p.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return false, fmt.Sprintf("Failed to connect to Anthropic API: %v", err)
	}
	return true, fmt.Sprintf("Successfully connected to Anthropic API (model: %s)", p.Model())
}

// Chat sends a chat request to the Anthropic Messages API.
func (p *Provider) Chat(ctx context.Context, messages []core.Message, opts llm.Options) (*llm.ChatResponse, error) {
	params := p.params(messages, p.ResolveOptions(opts))

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("anthropic API error: %w", err))
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &llm.ChatResponse{
		Content: content.String(),
		Model:   string(resp.Model),
		Usage: llm.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		FinishReason: string(resp.StopReason),
	}, nil
}

// StreamChat opens a server-sent event stream and yields text deltas.
func (p *Provider) StreamChat(ctx context.Context, messages []core.Message, opts llm.Options) (llm.Stream, error) {
	params := p.params(messages, p.ResolveOptions(opts))
	p.Logger().Debug("opening stream", zap.Int("messages", len(params.Messages)))

	stream := p.client.Messages.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("anthropic API error: %w", err))
	}
	return llm.NewStream(textDeltas(stream), stream.Close), nil
}

// textDeltas skips non-text events and returns io.EOF when the stream ends.
func textDeltas(stream *ssestream.Stream[anthropic.MessageStreamEventUnion]) func() (string, error) {
	return func() (string, error) {
		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
				return text.Text, nil
			}
		}
		if err := stream.Err(); err != nil {
			return "", core.WrapError(core.ErrGeneration, fmt.Errorf("anthropic stream error: %w", err))
		}
		return "", io.EOF
	}
}

// params maps the conversation to a Messages request. System messages are
// lifted into the system prompt; tool output is sent as user text.
func (p *Provider) params(messages []core.Message, opts llm.Options) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	converted := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case core.RoleAssistant:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.Model()),
		MaxTokens:   int64(opts.MaxTokens()),
		Messages:    converted,
		Temperature: anthropic.Float(opts.Temperature()),
	}
	if len(system) > 0 {
		params.System = system
	}
	return params
}
