package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	ok, failed int
}

func (r *countingRecorder) RecordTranscript(err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

type failingStore struct{ Storage }

func (failingStore) Write(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func terminalState() *core.State {
	s := core.NewState("anthropic", "claude-3-7-sonnet-20250219")
	s.Mode = core.ModeChat
	s.SetMeta(core.MetaRunID, "run-123")
	s.AddMessage(core.RoleUser, "hi")
	s.AddMessage(core.RoleAssistant, "hello")
	s.SetResult("hello")
	s.Stamp(core.MetaFinishedAt, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	return s
}

func TestTranscript_Path(t *testing.T) {
	tr := FromState(terminalState())
	assert.Equal(t, "transcripts/2026/03/14/run-123.json", tr.Path())
}

func TestTranscript_GeneratesRunID(t *testing.T) {
	s := core.NewState("openai", "")
	tr := FromState(s)
	assert.NotEmpty(t, tr.RunID)
}

func TestArchiver_SaveLoad(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	rec := &countingRecorder{}
	a := NewArchiver(fs, nil, rec)

	path, err := a.Save(context.Background(), terminalState())
	require.NoError(t, err)

	got, err := a.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "run-123", got.RunID)
	assert.Equal(t, "anthropic", got.Provider)
	assert.Equal(t, "hello", got.Result)
	assert.Empty(t, got.Error)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, core.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, 1, rec.ok)
}

func TestArchiver_HookSwallowsFailures(t *testing.T) {
	rec := &countingRecorder{}
	a := NewArchiver(failingStore{}, nil, rec)

	assert.NotPanics(t, func() { a.Hook(context.Background(), terminalState()) })
	assert.Equal(t, 1, rec.failed)
}

func TestArchiver_HookIgnoresCancellation(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	a := NewArchiver(fs, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Hook(ctx, terminalState())

	exists, err := fs.Exists(context.Background(), "transcripts/2026/03/14/run-123.json")
	require.NoError(t, err)
	assert.True(t, exists)
}
