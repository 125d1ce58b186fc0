// Package dispatch normalizes streaming and non-streaming providers into
// one fragment-sequence contract.
package dispatch

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
	"go.uber.org/zap"
)

// Generation modes reported to the Recorder.
const (
	ModeBuffered = "buffered"
	ModeStream   = "stream"
)

// Recorder receives generation metrics. *metrics.Registry satisfies it.
type Recorder interface {
	RecordGeneration(provider, mode string, err error, duration float64)
	RecordFragment(provider string)
}

// Dispatcher picks the buffered or streaming path for a provider.
type Dispatcher struct {
	logger  *zap.Logger
	metrics Recorder
}

// New creates a dispatcher. rec may be nil.
func New(logger *zap.Logger, rec Recorder) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger, metrics: rec}
}

// Dispatch returns a fragment stream for messages. Providers without
// streaming support get one Chat call whose full content is yielded as a
// single fragment. Streaming providers are passed through unchanged:
// fragments are neither merged nor reordered, and a backend failure ends
// the stream with that error after the fragments that preceded it.
func (d *Dispatcher) Dispatch(ctx context.Context, p llm.Provider, messages []core.Message, opts llm.Options) (llm.Stream, error) {
	if !p.Capabilities().Streaming {
		return d.buffered(ctx, p, messages, opts)
	}

	start := time.Now()
	s, err := p.StreamChat(ctx, messages, opts)
	if errors.Is(err, core.ErrUnsupportedCapability) {
		d.logger.Debug("provider declined streaming, using buffered chat",
			zap.String("provider", p.Name()))
		return d.buffered(ctx, p, messages, opts)
	}
	if err != nil {
		d.record(p.Name(), ModeStream, err, start)
		return nil, err
	}
	return d.observe(p.Name(), s, start), nil
}

func (d *Dispatcher) buffered(ctx context.Context, p llm.Provider, messages []core.Message, opts llm.Options) (llm.Stream, error) {
	start := time.Now()
	resp, err := p.Chat(ctx, messages, opts)
	d.record(p.Name(), ModeBuffered, err, start)
	if err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.RecordFragment(p.Name())
	}
	return llm.SingleFragment(resp.Content), nil
}

// observe counts fragments and records the outcome when the stream ends.
func (d *Dispatcher) observe(provider string, s llm.Stream, start time.Time) llm.Stream {
	fragments := 0
	next := func() (string, error) {
		text, err := s.Recv()
		switch {
		case err == io.EOF:
			d.record(provider, ModeStream, nil, start)
			d.logger.Debug("stream finished",
				zap.String("provider", provider),
				zap.Int("fragments", fragments),
			)
		case err != nil:
			d.record(provider, ModeStream, err, start)
		default:
			fragments++
			if d.metrics != nil {
				d.metrics.RecordFragment(provider)
			}
		}
		return text, err
	}
	return llm.NewStream(next, s.Close)
}

func (d *Dispatcher) record(provider, mode string, err error, start time.Time) {
	if d.metrics != nil {
		d.metrics.RecordGeneration(provider, mode, err, time.Since(start).Seconds())
	}
}
