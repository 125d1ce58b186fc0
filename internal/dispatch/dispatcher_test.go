package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"github.com/newthinker/nurexia/internal/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu          sync.Mutex
	generations []string
	fragments   int
}

func (r *recorder) RecordGeneration(provider, mode string, err error, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "success"
	if err != nil {
		status = "error"
	}
	r.generations = append(r.generations, provider+"/"+mode+"/"+status)
}

func (r *recorder) RecordFragment(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fragments++
}

var history = []core.Message{{Role: core.RoleUser, Content: "hi"}}

func TestDispatch_NonStreamingYieldsSingleFragment(t *testing.T) {
	p := llmtest.New(llmtest.Capabilities("beta", false), "", nil)
	p.Reply = "the whole buffered answer"
	rec := &recorder{}

	s, err := New(nil, rec).Dispatch(context.Background(), p, history, nil)
	require.NoError(t, err)

	got, err := llm.Collect(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"the whole buffered answer"}, got)
	assert.Equal(t, 1, p.ChatCalls())
	assert.Zero(t, p.StreamsOpened())
	assert.Equal(t, []string{"beta/buffered/success"}, rec.generations)
	assert.Equal(t, 1, rec.fragments)
}

func TestDispatch_StreamingPassesFragmentsThrough(t *testing.T) {
	p := llmtest.New(llmtest.Capabilities("alpha", true), "", nil)
	p.Fragments = []string{"f1", "f2", "f3"}
	rec := &recorder{}

	s, err := New(nil, rec).Dispatch(context.Background(), p, history, nil)
	require.NoError(t, err)

	got, err := llm.Collect(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3"}, got)
	assert.Zero(t, p.ChatCalls())
	assert.Equal(t, []string{"alpha/stream/success"}, rec.generations)
	assert.Equal(t, 3, rec.fragments)
	assert.Equal(t, 1, p.StreamsClosed())
}

func TestDispatch_StreamingDeliversIncrementally(t *testing.T) {
	p := llmtest.New(llmtest.Capabilities("alpha", true), "", nil)
	p.Fragments = []string{"f1", "f2"}

	s, err := New(nil, nil).Dispatch(context.Background(), p, history, nil)
	require.NoError(t, err)
	defer s.Close()

	first, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "f1", first)
	second, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "f2", second)
	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestDispatch_MidStreamFailureKeepsPrefix(t *testing.T) {
	boom := core.WrapError(core.ErrGeneration, errors.New("connection reset"))
	p := llmtest.New(llmtest.Capabilities("alpha", true), "", nil)
	p.Fragments = []string{"f1", "f2"}
	p.StreamErr = boom
	rec := &recorder{}

	s, err := New(nil, rec).Dispatch(context.Background(), p, history, nil)
	require.NoError(t, err)

	got, err := llm.Collect(s)
	assert.Equal(t, []string{"f1", "f2"}, got)
	assert.ErrorIs(t, err, core.ErrGeneration)
	assert.Equal(t, []string{"alpha/stream/error"}, rec.generations)
}

func TestDispatch_BufferedFailure(t *testing.T) {
	p := llmtest.New(llmtest.Capabilities("beta", false), "", nil)
	p.ChatErr = core.WrapError(core.ErrGeneration, errors.New("status 500"))

	s, err := New(nil, nil).Dispatch(context.Background(), p, history, nil)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, core.ErrGeneration)
}

// unsupportedStreamer advertises streaming but refuses at call time.
type unsupportedStreamer struct{ *llmtest.Provider }

func (u unsupportedStreamer) StreamChat(context.Context, []core.Message, llm.Options) (llm.Stream, error) {
	return nil, core.NewError(core.ErrUnsupportedCapability, "streaming disabled for this model", nil)
}

func TestDispatch_FallsBackOnUnsupportedCapability(t *testing.T) {
	fake := llmtest.New(llmtest.Capabilities("alpha", true), "", nil)
	fake.Reply = "fallback"

	s, err := New(nil, nil).Dispatch(context.Background(), unsupportedStreamer{fake}, history, nil)
	require.NoError(t, err)

	got, err := llm.Collect(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, got)
	assert.Equal(t, 1, fake.ChatCalls())
}

func TestDispatch_CloseReleasesProviderStream(t *testing.T) {
	p := llmtest.New(llmtest.Capabilities("alpha", true), "", nil)
	p.Fragments = []string{"f1", "f2", "f3"}

	s, err := New(nil, nil).Dispatch(context.Background(), p, history, nil)
	require.NoError(t, err)

	_, err = s.Recv()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Equal(t, 1, p.StreamsClosed())
}
