// internal/llm/anthropic/anthropic_test.go
package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_DefaultModel(t *testing.T) {
	p := New(llm.Config{APIKey: core.NewSecret("test-key")})
	assert.Equal(t, "claude-3-7-sonnet-20250219", p.Model())
	assert.True(t, p.Capabilities().Streaming)
}

func TestTestConnection_MissingKey(t *testing.T) {
	p := New(llm.Config{BaseURL: "http://127.0.0.1:1"})
	ok, msg := p.TestConnection(t.Context())
	assert.False(t, ok)
	assert.Equal(t, "ANTHROPIC_API_KEY environment variable is not set", msg)
}

func TestTestConnection_ListsModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":[],"has_more":false,"first_id":null,"last_id":null}`)
	}))
	defer srv.Close()

	p := New(llm.Config{APIKey: core.NewSecret("test-key"), BaseURL: srv.URL})
	ok, msg := p.TestConnection(t.Context())
	assert.True(t, ok, msg)
	assert.Contains(t, msg, "claude-3-7-sonnet-20250219")
}

func TestChat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id":"msg_1","type":"message","role":"assistant",
			"model":"claude-3-7-sonnet-20250219",
			"content":[{"type":"text","text":"Hello there"}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":12,"output_tokens":3}
		}`)
	}))
	defer srv.Close()

	p := New(llm.Config{
		APIKey:  core.NewSecret("test-key"),
		BaseURL: srv.URL,
		Options: llm.Options{llm.OptTemperature: 0.2},
	})
	msgs := []core.Message{
		{Role: core.RoleSystem, Content: "be brief"},
		{Role: core.RoleUser, Content: "hi"},
	}
	resp, err := p.Chat(t.Context(), msgs, llm.Options{llm.OptMaxTokens: 64})
	require.NoError(t, err)

	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, 12, resp.Usage.InputTokens)

	assert.Equal(t, "claude-3-7-sonnet-20250219", body["model"])
	assert.EqualValues(t, 64, body["max_tokens"])
	assert.EqualValues(t, 0.2, body["temperature"])
	assert.Len(t, body["messages"], 1, "system message is lifted out of the history")
	system := body["system"].([]any)
	assert.Equal(t, "be brief", system[0].(map[string]any)["text"])
}

func TestChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	p := New(llm.Config{APIKey: core.NewSecret("bad"), BaseURL: srv.URL})
	_, err := p.Chat(t.Context(), []core.Message{{Role: core.RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrGeneration))
}

func TestStreamChat_YieldsDeltasInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		writeEvent(w, "message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-7-sonnet-20250219","content":[],"usage":{"input_tokens":1,"output_tokens":0}}}`)
		writeEvent(w, "content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)
		for _, f := range []string{"f1", "f2", "f3"} {
			writeEvent(w, "content_block_delta", fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, f))
			flusher.Flush()
		}
		writeEvent(w, "content_block_stop", `{"type":"content_block_stop","index":0}`)
		writeEvent(w, "message_stop", `{"type":"message_stop"}`)
	}))
	defer srv.Close()

	p := New(llm.Config{APIKey: core.NewSecret("test-key"), BaseURL: srv.URL})
	stream, err := p.StreamChat(t.Context(), []core.Message{{Role: core.RoleUser, Content: "hi"}}, nil)
	require.NoError(t, err)

	got, err := llm.Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3"}, got)
}

func writeEvent(w io.Writer, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
