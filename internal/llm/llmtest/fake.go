// Package llmtest provides an in-memory provider for tests.
package llmtest

import (
	"context"
	"io"
	"sync"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/llm"
)

// Provider is a scripted llm.Provider. Chat returns Reply (or ChatErr);
// StreamChat yields Fragments and then StreamErr (io.EOF when nil).
type Provider struct {
	llm.Base

	Reply     string
	ChatErr   error
	Fragments []string
	StreamErr error
	OpenErr   error
	ConnOK    bool
	ConnMsg   string

	mu         sync.Mutex
	chatCalls  int
	streamOpen int
	closed     int
	lastMsgs   []core.Message
	lastOpts   llm.Options
}

// New creates a fake provider described by caps.
func New(caps llm.Capabilities, model string, opts llm.Options) *Provider {
	return &Provider{
		Base:   llm.NewBase(caps, llm.Config{Model: model, Options: opts}),
		ConnOK: true,
	}
}

// Capabilities returns a descriptor for a fake backend.
func Capabilities(name string, streaming bool) llm.Capabilities {
	return llm.Capabilities{
		Name:         name,
		DefaultModel: name + "-default",
		Models:       []string{name + "-default", name + "-large"},
		Streaming:    streaming,
	}
}

func (p *Provider) TestConnection(ctx context.Context) (bool, string) {
	return p.ConnOK, p.ConnMsg
}

func (p *Provider) Chat(ctx context.Context, messages []core.Message, opts llm.Options) (*llm.ChatResponse, error) {
	p.mu.Lock()
	p.chatCalls++
	p.lastMsgs = append([]core.Message(nil), messages...)
	p.lastOpts = p.ResolveOptions(opts)
	p.mu.Unlock()

	if p.ChatErr != nil {
		return nil, p.ChatErr
	}
	return &llm.ChatResponse{
		Content:      p.Reply,
		Model:        p.Model(),
		Usage:        llm.Usage{InputTokens: 3, OutputTokens: 5},
		FinishReason: "stop",
	}, nil
}

func (p *Provider) StreamChat(ctx context.Context, messages []core.Message, opts llm.Options) (llm.Stream, error) {
	if !p.Capabilities().Streaming {
		return nil, core.NewError(core.ErrUnsupportedCapability, p.Name()+" does not support streaming", nil)
	}
	p.mu.Lock()
	p.streamOpen++
	p.lastMsgs = append([]core.Message(nil), messages...)
	p.lastOpts = p.ResolveOptions(opts)
	p.mu.Unlock()

	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	i := 0
	return llm.NewStream(func() (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if i < len(p.Fragments) {
			f := p.Fragments[i]
			i++
			return f, nil
		}
		if p.StreamErr != nil {
			return "", p.StreamErr
		}
		return "", io.EOF
	}, func() error {
		p.mu.Lock()
		p.closed++
		p.mu.Unlock()
		return nil
	}), nil
}

// ChatCalls returns how many times Chat was invoked.
func (p *Provider) ChatCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chatCalls
}

// StreamsOpened returns how many streams were opened.
func (p *Provider) StreamsOpened() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamOpen
}

// StreamsClosed returns how many streams released their connection.
func (p *Provider) StreamsClosed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// LastMessages returns the history passed to the last call.
func (p *Provider) LastMessages() []core.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastMsgs
}

// LastOptions returns the resolved options of the last call.
func (p *Provider) LastOptions() llm.Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOpts
}

// Entry registers a constructor that returns the same fake on every call,
// recording the model and options it was asked to bind.
func Entry(p *Provider) llm.Entry {
	return llm.Entry{
		Capabilities: p.Capabilities(),
		New: func(model string, opts llm.Options) (llm.Provider, error) {
			p.Base = llm.NewBase(p.Capabilities(), llm.Config{Model: model, Options: opts})
			return p, nil
		},
	}
}
