package workflow

import (
	"context"
	"io"
	"strings"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
)

// ExecuteStreaming runs the pipeline with incremental delivery. Input
// failures return an error without touching the network; s is terminal
// in that case. Otherwise the returned stream yields fragments as the
// provider produces them, and s becomes terminal when the stream ends,
// fails or is closed early.
func (w *Workflow) ExecuteStreaming(ctx context.Context, s *core.State) (llm.Stream, error) {
	r := w.begin(s)

	s.CurrentNode = string(NodeInput)
	s.Visit(string(NodeInput))
	if err := w.checkInput(s); err != nil {
		msg, detail := describe(err)
		s.SetError(msg, detail)
		r.finish(ctx)
		return nil, err
	}

	s.CurrentNode = string(NodeGeneration)
	s.Visit(string(NodeGeneration))
	p, err := w.provider(s)
	if err != nil {
		r.finish(ctx)
		return nil, err
	}

	upstream, err := w.dispatcher.Dispatch(ctx, p, s.Messages, nil)
	if err != nil {
		w.generationFailed(s, err)
		r.finish(ctx)
		return nil, err
	}

	var text strings.Builder
	next := func() (string, error) {
		fragment, err := upstream.Recv()
		switch {
		case err == io.EOF:
			w.complete(s, text.String())
			r.finish(ctx)
			if s.Failed() {
				return "", core.NewError(core.ErrGeneration, s.Error, nil)
			}
		case err != nil:
			w.generationFailed(s, err)
			r.finish(ctx)
		default:
			text.WriteString(fragment)
		}
		return fragment, err
	}
	closeFn := func() error {
		err := upstream.Close()
		if !r.done {
			s.SetError(core.ErrStreamClosed.Message, "")
			r.finish(ctx)
		}
		return err
	}
	return llm.NewStream(next, closeFn), nil
}
