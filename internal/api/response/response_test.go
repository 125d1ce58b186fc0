package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]any{"hello": "world"}, resp.Data)
	assert.False(t, resp.Meta.Timestamp.IsZero())
}

func TestError_WithCoreError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, core.WrapError(core.ErrValidation, errors.New("bad temperature")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	assert.Equal(t, "bad temperature", resp.Error.Cause)
}

func TestError_WithStandardError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusInternalServerError, errors.New("secret internals"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, w.Body.String(), "secret internals")
}

func TestEventWriter(t *testing.T) {
	w := httptest.NewRecorder()

	ev := NewEventWriter(w)
	require.NoError(t, ev.Data(map[string]string{"delta": "Hel"}))
	require.NoError(t, ev.Event("error", map[string]string{"message": "boom"}))
	require.NoError(t, ev.Done())

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, w.Flushed)
	assert.Equal(t,
		"data: {\"delta\":\"Hel\"}\n\nevent: error\ndata: {\"message\":\"boom\"}\n\ndata: [DONE]\n\n",
		w.Body.String())
}

func TestEnvelopes_CarryRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-ID", "req-7")
	JSON(w, http.StatusOK, "pong")

	var ok SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.Equal(t, "req-7", ok.Meta.RequestID)

	w = httptest.NewRecorder()
	w.Header().Set("X-Request-ID", "req-8")
	Fail(w, http.StatusBadGateway, ErrorDetail{Code: "PROVIDER_ERROR", Message: "upstream failed"})

	var fail ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fail))
	assert.Equal(t, "req-8", fail.Error.RequestID)
	assert.Equal(t, "upstream failed", fail.Error.Message)
}
