// internal/llm/ollama/ollama.go
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"go.uber.org/zap"
)

const (
	Name        = "ollama"
	HostEnv     = "OLLAMA_HOST"
	DefaultHost = "http://localhost:11434"

	// LLM inference can be slow
	requestTimeout = 5 * time.Minute
)

// Caps describes the Ollama backend.
var Caps = llm.Capabilities{
	Name:         Name,
	DefaultModel: "gemma3:12b",
	Models: []string{
		"gemma:2b",
		"gemma:7b",
		"gemma3:12b",
		"llama2:7b",
		"llama2:13b",
		"llama3:8b",
		"llama3:70b",
		"mistral:7b",
		"mixtral:8x7b",
	},
	Streaming: true,
}

// Provider implements the LLM interface for Ollama.
type Provider struct {
	llm.Base
	endpoint string
	client   *http.Client
}

// New creates a new Ollama provider. Ollama needs no credential.
func New(cfg llm.Config) *Provider {
	endpoint := strings.TrimRight(cfg.BaseURL, "/")
	if endpoint == "" {
		endpoint = DefaultHost
	}
	client := cfg.HTTPClient
	if client == nil {
		client = llm.DefaultHTTPClient
	}
	return &Provider{
		Base:     llm.NewBase(Caps, cfg),
		endpoint: endpoint,
		client:   client,
	}
}

// ollamaRequest represents the request to Ollama API.
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// ollamaResponse is one response object; streaming sends one per line.
type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// TestConnection lists local models via /api/tags.
func (p *Provider) TestConnection(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, llm.ConnectionTimeout)
	defer cancel()

	resp, err := llm.Get(ctx, p.client, p.endpoint+"/api/tags", nil)
	if err != nil {
		return false, fmt.Sprintf("Failed to connect to Ollama at %s: %v", p.endpoint, err)
	}
	resp.Body.Close()
	return true, fmt.Sprintf("Successfully connected to Ollama at %s (model: %s)", p.endpoint, p.Model())
}

// Chat sends a chat request to the Ollama API.
func (p *Provider) Chat(ctx context.Context, messages []core.Message, opts llm.Options) (*llm.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := llm.PostJSON(ctx, p.client, p.endpoint+"/api/chat", nil, p.request(messages, opts, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("decoding response: %w", err))
	}
	if ollamaResp.Error != "" {
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("ollama: %s", ollamaResp.Error))
	}

	return &llm.ChatResponse{
		Content: ollamaResp.Message.Content,
		Model:   ollamaResp.Model,
		Usage: llm.Usage{
			InputTokens:  ollamaResp.PromptEvalCount,
			OutputTokens: ollamaResp.EvalCount,
		},
		FinishReason: ollamaResp.DoneReason,
	}, nil
}

// StreamChat reads newline-delimited JSON objects until done is set.
func (p *Provider) StreamChat(ctx context.Context, messages []core.Message, opts llm.Options) (llm.Stream, error) {
	p.Logger().Debug("opening stream", zap.String("endpoint", p.endpoint))
	resp, err := llm.PostJSON(ctx, p.client, p.endpoint+"/api/chat", nil, p.request(messages, opts, true))
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bufio.NewReader(resp.Body))
	finished := false
	next := func() (string, error) {
		for !finished {
			var chunk ollamaResponse
			if err := dec.Decode(&chunk); err != nil {
				if err == io.EOF {
					return "", core.WrapError(core.ErrGeneration, fmt.Errorf("ollama stream ended before done"))
				}
				return "", core.WrapError(core.ErrGeneration, fmt.Errorf("decoding stream: %w", err))
			}
			if chunk.Error != "" {
				return "", core.WrapError(core.ErrGeneration, fmt.Errorf("ollama: %s", chunk.Error))
			}
			finished = chunk.Done
			if chunk.Message.Content != "" {
				return chunk.Message.Content, nil
			}
		}
		return "", io.EOF
	}
	return llm.NewStream(next, resp.Body.Close), nil
}

// request passes roles through unchanged; Ollama accepts all four.
// num_predict is left to the model unless max_tokens was set.
func (p *Provider) request(messages []core.Message, call llm.Options, stream bool) ollamaRequest {
	opts := p.ResolveOptions(call)
	converted := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		converted = append(converted, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	req := ollamaRequest{
		Model:    p.Model(),
		Messages: converted,
		Stream:   stream,
		Options:  ollamaOptions{Temperature: opts.Temperature()},
	}
	if p.Explicit(call, llm.OptMaxTokens) {
		req.Options.NumPredict = opts.MaxTokens()
	}
	return req
}
