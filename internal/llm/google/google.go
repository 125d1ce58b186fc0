// Package google implements the Gemini backend over the
// generativelanguage REST API.
package google

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	Name           = "google"
	KeyEnv         = "GOOGLE_API_KEY"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Caps describes the Gemini backend.
var Caps = llm.Capabilities{
	Name:         Name,
	DefaultModel: "gemini-2.0-flash-001",
	Models: []string{
		"gemini-1.0-pro",
		"gemini-1.5-pro",
		"gemini-2.0-pro-001",
		"gemini-2.0-flash-001",
	},
	Streaming: true,
}

// Provider implements the LLM interface for Gemini.
type Provider struct {
	llm.Base
	apiKey  core.Secret
	baseURL string
	client  *http.Client
}

// New creates a new Gemini provider.
func New(cfg llm.Config) *Provider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = llm.DefaultHTTPClient
	}
	return &Provider{
		Base:    llm.NewBase(Caps, cfg),
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  client,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"system_instruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// TestConnection fetches the model's metadata.
func (p *Provider) TestConnection(ctx context.Context) (bool, string) {
	if p.apiKey.IsEmpty() {
		return false, KeyEnv + " environment variable is not set"
	}
	ctx, cancel := context.WithTimeout(ctx, llm.ConnectionTimeout)
	defer cancel()

	resp, err := llm.Get(ctx, p.client, p.modelURL(""), p.headers())
	if err != nil {
		return false, fmt.Sprintf("Failed to connect to Google Gemini API: %v", err)
	}
	resp.Body.Close()
	return true, fmt.Sprintf("Successfully connected to Google Gemini API (model: %s)", p.Model())
}

// Chat calls generateContent.
func (p *Provider) Chat(ctx context.Context, messages []core.Message, opts llm.Options) (*llm.ChatResponse, error) {
	resp, err := llm.PostJSON(ctx, p.client, p.modelURL(":generateContent"), p.headers(), p.request(messages, opts))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("reading response: %w", err))
	}
	if msg, blocked := blockReason(body); blocked {
		return nil, core.WrapError(core.ErrGeneration, fmt.Errorf("prompt blocked: %s", msg))
	}

	return &llm.ChatResponse{
		Content:      candidateText(body),
		Model:        p.Model(),
		FinishReason: gjson.GetBytes(body, "candidates.0.finishReason").String(),
		Usage: llm.Usage{
			InputTokens:  int(gjson.GetBytes(body, "usageMetadata.promptTokenCount").Int()),
			OutputTokens: int(gjson.GetBytes(body, "usageMetadata.candidatesTokenCount").Int()),
		},
	}, nil
}

// StreamChat calls streamGenerateContent with SSE framing.
func (p *Provider) StreamChat(ctx context.Context, messages []core.Message, opts llm.Options) (llm.Stream, error) {
	p.Logger().Debug("opening stream", zap.Int("messages", len(messages)))
	resp, err := llm.PostJSON(ctx, p.client, p.modelURL(":streamGenerateContent")+"?alt=sse", p.headers(), p.request(messages, opts))
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	next := func() (string, error) {
		for scanner.Scan() {
			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data:")
			if !ok {
				continue
			}
			chunk := []byte(strings.TrimSpace(data))
			if gjson.GetBytes(chunk, "error").Exists() {
				return "", core.WrapError(core.ErrGeneration, fmt.Errorf("gemini stream error: %s", llm.ErrorMessage(chunk)))
			}
			if text := candidateText(chunk); text != "" {
				return text, nil
			}
		}
		if err := scanner.Err(); err != nil {
			return "", core.WrapError(core.ErrGeneration, fmt.Errorf("gemini stream error: %w", err))
		}
		return "", io.EOF
	}
	return llm.NewStream(next, resp.Body.Close), nil
}

func (p *Provider) modelURL(method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s%s", p.baseURL, url.PathEscape(p.Model()), method)
}

func (p *Provider) headers() map[string]string {
	return map[string]string{"x-goog-api-key": p.apiKey.Expose()}
}

// request maps roles: assistant becomes "model", system messages form the
// system instruction and tool output is sent as user text.
func (p *Provider) request(messages []core.Message, call llm.Options) generateRequest {
	opts := p.ResolveOptions(call)
	req := generateRequest{
		GenerationConfig: generationConfig{Temperature: opts.Temperature()},
	}
	if p.Explicit(call, llm.OptMaxTokens) {
		req.GenerationConfig.MaxOutputTokens = opts.MaxTokens()
	}
	var system []part
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			system = append(system, part{Text: m.Content})
		case core.RoleAssistant:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: system}
	}
	return req
}

// candidateText joins the text parts of the first candidate.
func candidateText(body []byte) string {
	var sb strings.Builder
	gjson.GetBytes(body, "candidates.0.content.parts.#.text").ForEach(func(_, v gjson.Result) bool {
		sb.WriteString(v.String())
		return true
	})
	return sb.String()
}

func blockReason(body []byte) (string, bool) {
	r := gjson.GetBytes(body, "promptFeedback.blockReason")
	if !r.Exists() || gjson.GetBytes(body, "candidates.#").Int() > 0 {
		return "", false
	}
	return r.String(), true
}
