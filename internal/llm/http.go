package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/tidwall/gjson"
)

// maxErrorBody limits how much of a failed response is read.
const maxErrorBody = 4096

// DefaultHTTPClient is used by REST backends when Config.HTTPClient is nil.
// It has no overall timeout because streaming responses are open-ended;
// deadlines come from the request context.
var DefaultHTTPClient = &http.Client{}

// PostJSON sends body as JSON and returns the response when the status is
// 2xx. Other statuses are converted to an ErrGeneration carrying the
// backend's error message.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return Do(client, req)
}

// Get issues a GET request with headers; non-2xx statuses become errors.
func Get(ctx context.Context, client *http.Client, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return Do(client, req)
}

// Do executes req and checks the status.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = DefaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrGeneration, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, StatusError(resp)
	}
	return resp, nil
}

// StatusError builds an error from a non-2xx response, extracting the
// message from the common JSON error shapes when present.
func StatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := ErrorMessage(body)
	return core.WrapError(core.ErrGeneration, fmt.Errorf("status %d: %s", resp.StatusCode, msg))
}

// ErrorMessage extracts a human-readable message from an error body.
func ErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message", "detail"} {
			if r := gjson.GetBytes(body, path); r.Exists() && r.Type == gjson.String {
				return r.String()
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty response body"
	}
	return text
}
