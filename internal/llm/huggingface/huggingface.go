// Package huggingface implements the Hugging Face Inference API backend
// for text-generation models. The endpoint used returns complete
// responses only, so the provider does not stream.
package huggingface

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"github.com/tidwall/gjson"
)

const (
	Name          = "huggingface"
	KeyEnv        = "HUGGINGFACE_API_KEY"
	DefaultAPIURL = "https://api-inference.huggingface.co/models/"
)

// Caps describes the Hugging Face backend.
var Caps = llm.Capabilities{
	Name:         Name,
	DefaultModel: "HuggingFaceH4/zephyr-7b-beta",
	Models: []string{
		"HuggingFaceH4/zephyr-7b-beta",
		"mistralai/Mistral-7B-Instruct-v0.1",
		"meta-llama/Llama-2-7b-chat-hf",
		"tiiuae/falcon-7b-instruct",
		"google/flan-t5-xxl",
	},
	Streaming: false,
}

// Provider implements the LLM interface for the Inference API.
type Provider struct {
	llm.Base
	apiKey core.Secret
	apiURL string
	client *http.Client
}

// New creates a new Hugging Face provider.
func New(cfg llm.Config) *Provider {
	apiURL := cfg.BaseURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = llm.DefaultHTTPClient
	}
	return &Provider{
		Base:   llm.NewBase(Caps, cfg),
		apiKey: cfg.APIKey,
		apiURL: apiURL,
		client: client,
	}
}

type parameters struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

// TestConnection queries the model status endpoint.
func (p *Provider) TestConnection(ctx context.Context) (bool, string) {
	if p.apiKey.IsEmpty() {
		return false, KeyEnv + " environment variable is not set"
	}
	ctx, cancel := context.WithTimeout(ctx, llm.ConnectionTimeout)
	defer cancel()

	resp, err := llm.Get(ctx, p.client, p.apiURL+p.Model(), p.headers())
	if err != nil {
		return false, fmt.Sprintf("Failed to connect to Hugging Face API: %v", err)
	}
	resp.Body.Close()
	return true, fmt.Sprintf("Successfully connected to Hugging Face API (model: %s)", p.Model())
}

// Chat flattens the conversation into a prompt and generates a completion.
func (p *Provider) Chat(ctx context.Context, messages []core.Message, opts llm.Options) (*llm.ChatResponse, error) {
	resolved := p.ResolveOptions(opts)
	req := generateRequest{
		Inputs:     Prompt(messages),
		Parameters: parameters{Temperature: resolved.Temperature()},
	}
	if p.Explicit(opts, llm.OptMaxTokens) {
		req.Parameters.MaxNewTokens = resolved.MaxTokens()
	}

	resp, err := llm.PostJSON(ctx, p.client, p.apiURL+p.Model(), p.headers(), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("reading response: %w", err))
	}

	// the API answers with a list for text-generation and an object for
	// some task types
	text := gjson.GetBytes(body, "0.generated_text")
	if !text.Exists() {
		text = gjson.GetBytes(body, "generated_text")
	}
	if !text.Exists() {
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("unexpected response: %s", llm.ErrorMessage(body)))
	}

	return &llm.ChatResponse{
		Content: strings.TrimSpace(text.String()),
		Model:   p.Model(),
	}, nil
}

// StreamChat is not supported by this backend.
func (p *Provider) StreamChat(ctx context.Context, messages []core.Message, opts llm.Options) (llm.Stream, error) {
	return nil, core.NewError(core.ErrUnsupportedCapability, "huggingface does not support streaming", nil)
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey.Expose()}
}

// Prompt renders messages as a role-prefixed transcript ending with an
// open assistant turn.
func Prompt(messages []core.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			sb.WriteString("System: ")
		case core.RoleAssistant:
			sb.WriteString("Assistant: ")
		case core.RoleTool:
			sb.WriteString("Tool: ")
		default:
			sb.WriteString("User: ")
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("Assistant:")
	return sb.String()
}
