// internal/llm/openai/openai.go
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	Name   = "openai"
	KeyEnv = "OPENAI_API_KEY"
)

// Caps describes the OpenAI backend.
var Caps = llm.Capabilities{
	Name:         Name,
	DefaultModel: "gpt-4.5-preview-2025-02-27",
	Models: []string{
		"gpt-3.5-turbo",
		"gpt-4",
		"gpt-4o",
		"gpt-4-turbo",
		"gpt-4-vision-preview",
		"gpt-4.5-preview-2025-02-27",
	},
	Streaming: true,
}

// Provider implements the LLM interface for OpenAI.
type Provider struct {
	llm.Base
	client *openai.Client
	hasKey bool
}

// New creates a new OpenAI provider.
func New(cfg llm.Config) *Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey.Expose())
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	return &Provider{
		Base:   llm.NewBase(Caps, cfg),
		client: openai.NewClientWithConfig(clientCfg),
		hasKey: !cfg.APIKey.IsEmpty(),
	}
}

// TestConnection lists models to validate the key.
func (p *Provider) TestConnection(ctx context.Context) (bool, string) {
	if !p.hasKey {
		return false, KeyEnv + " environment variable is not set"
	}
	ctx, cancel := context.WithTimeout(ctx, llm.ConnectionTimeout)
	defer cancel()

	if _, err := p.client.ListModels(ctx); err != nil {
		return false, fmt.Sprintf("Failed to connect to OpenAI API: %v", err)
	}
	return true, fmt.Sprintf("Successfully connected to OpenAI API (model: %s)", p.Model())
}

// Chat sends a chat request to the OpenAI API.
func (p *Provider) Chat(ctx context.Context, messages []core.Message, opts llm.Options) (*llm.ChatResponse, error) {
	req := p.request(messages, opts)

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("openai API error: %w", err))
	}

	content := ""
	finishReason := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = string(resp.Choices[0].FinishReason)
	}

	return &llm.ChatResponse{
		Content: content,
		Model:   resp.Model,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		FinishReason: finishReason,
	}, nil
}

// StreamChat opens a completion stream and yields content deltas.
func (p *Provider) StreamChat(ctx context.Context, messages []core.Message, opts llm.Options) (llm.Stream, error) {
	req := p.request(messages, opts)
	req.Stream = true
	p.Logger().Debug("opening stream", zap.Int("messages", len(req.Messages)))

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("openai API error: %w", err))
	}

	next := func() (string, error) {
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			if err != nil {
				return "", core.WrapError(core.ErrGeneration, fmt.Errorf("openai stream error: %w", err))
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			return chunk.Choices[0].Delta.Content, nil
		}
	}
	return llm.NewStream(next, stream.Close), nil
}

// request builds the completion request from the caller's options.
// max_tokens is sent only when the instance or the call set it.
func (p *Provider) request(messages []core.Message, call llm.Options) openai.ChatCompletionRequest {
	opts := p.ResolveOptions(call)
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Role: role(m.Role), Content: m.Content}
		if m.Role == core.RoleTool {
			if id, ok := m.Metadata["tool_call_id"].(string); ok {
				msg.ToolCallID = id
			} else {
				// without a call ID the API rejects tool messages
				msg.Role = openai.ChatMessageRoleUser
			}
		}
		converted = append(converted, msg)
	}

	temperature := float32(opts.Temperature())
	if temperature == 0 {
		// the field is omitempty; a zero would fall back to the API default of 1.0
		temperature = math.SmallestNonzeroFloat32
	}
	req := openai.ChatCompletionRequest{
		Model:       p.Model(),
		Messages:    converted,
		Temperature: temperature,
	}
	if p.Explicit(call, llm.OptMaxTokens) {
		req.MaxTokens = opts.MaxTokens()
	}
	return req
}

func role(r core.Role) string {
	switch r {
	case core.RoleSystem:
		return openai.ChatMessageRoleSystem
	case core.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case core.RoleTool:
		return openai.ChatMessageRoleTool
	default:
		return openai.ChatMessageRoleUser
	}
}
