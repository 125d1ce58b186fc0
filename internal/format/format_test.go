package format

import (
	"encoding/json"
	"testing"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput_JSONRoundTrip(t *testing.T) {
	for _, text := range []string{"", "hello", "line one\nline \"two\"", "유니코드 ✓", "<b>&</b>"} {
		out, err := Output(text, JSON)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, map[string]any{"response": text}, got)
	}
}

func TestOutput_Text(t *testing.T) {
	out, err := Output("as is\n", Text)
	require.NoError(t, err)
	assert.Equal(t, "as is\n", out)
}

func TestOutput_Markdown(t *testing.T) {
	out, err := Output("# Title", Markdown)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n", out)

	out, err = Output("done\n", Markdown)
	require.NoError(t, err)
	assert.Equal(t, "done\n", out)
}

func TestOutput_Unknown(t *testing.T) {
	_, err := Output("x", "html")
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.False(t, Valid("html"))
	assert.True(t, Valid(Markdown))
}

func TestError(t *testing.T) {
	assert.Equal(t, "Error: No input provided", Error("No input provided", false, ""))
	assert.Equal(t, "Error: boom", Error("boom", false, "stack"))
	assert.Equal(t, "Error: boom\n\nDetails:\nstatus 500", Error("boom", true, "status 500"))
	assert.Equal(t, "Error: boom", Error("boom", true, ""))
}
