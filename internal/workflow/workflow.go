// Package workflow drives a conversation state from input to a terminal
// result or error.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/dispatch"
	"github.com/newthinker/nurexia/internal/llm"
	"go.uber.org/zap"
)

// NodeID identifies a workflow node.
type NodeID string

const (
	NodeInput      NodeID = "input"
	NodeGeneration NodeID = "generation"
	NodeTerminal   NodeID = "terminal"
)

// maxSteps bounds the executor; the graph is acyclic so a run needs three.
const maxSteps = 8

// Node processes the state and returns the ID of the next node.
type Node func(ctx context.Context, s *core.State) NodeID

// Recorder receives workflow and generation metrics.
type Recorder interface {
	dispatch.Recorder
	RecordWorkflowRun(mode, outcome string, duration float64)
}

// TerminalHook is called once per run after the state becomes terminal.
type TerminalHook func(ctx context.Context, s *core.State)

// Workflow executes the input → generation → terminal graph.
type Workflow struct {
	registry   *llm.Registry
	dispatcher *dispatch.Dispatcher
	nodes      map[NodeID]Node
	logger     *zap.Logger
	metrics    Recorder
	hooks      []TerminalHook
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r Recorder) Option {
	return func(w *Workflow) { w.metrics = r }
}

// WithTerminalHook registers a hook run after every terminal state.
func WithTerminalHook(h TerminalHook) Option {
	return func(w *Workflow) { w.hooks = append(w.hooks, h) }
}

// New creates a workflow resolving providers through registry.
func New(registry *llm.Registry, opts ...Option) *Workflow {
	w := &Workflow{
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	var rec dispatch.Recorder
	if w.metrics != nil {
		rec = w.metrics
	}
	w.dispatcher = dispatch.New(w.logger, rec)
	w.nodes = map[NodeID]Node{
		NodeInput:      w.input,
		NodeGeneration: w.generation,
	}
	return w
}

// Validate rejects an unknown provider or a temperature outside
// [0.0, 2.0]. It never touches the network.
func (w *Workflow) Validate(provider string, temperature float64) error {
	if !w.registry.Has(provider) {
		return core.NewError(core.ErrValidation,
			fmt.Sprintf("unknown provider %q (available: %v)", provider, w.registry.Names()),
			core.ErrUnknownProvider)
	}
	if temperature < 0 || temperature > 2 {
		return core.NewError(core.ErrValidation,
			fmt.Sprintf("temperature must be between 0.0 and 2.0, got %g", temperature), nil)
	}
	return nil
}

// Execute runs the buffered pipeline and returns s once terminal.
func (w *Workflow) Execute(ctx context.Context, s *core.State) *core.State {
	r := w.begin(s)
	current := NodeInput
	for step := 0; current != NodeTerminal; step++ {
		if step >= maxSteps {
			s.SetMeta(core.MetaDiagnostic, fmt.Sprintf("workflow exceeded %d steps at node %q", maxSteps, current))
			break
		}
		node, ok := w.nodes[current]
		if !ok {
			s.SetMeta(core.MetaDiagnostic, fmt.Sprintf("unknown node %q treated as terminal", current))
			w.logger.Warn("unknown workflow node", zap.String("node", string(current)))
			break
		}
		s.CurrentNode = string(current)
		s.Visit(string(current))
		current = node(ctx, s)
	}
	r.finish(ctx)
	return s
}

// run tracks one invocation from start to its terminal state.
type run struct {
	w     *Workflow
	s     *core.State
	start time.Time
	done  bool
}

func (w *Workflow) begin(s *core.State) *run {
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
	if s.Meta(core.MetaRunID) == "" {
		s.SetMeta(core.MetaRunID, uuid.NewString())
	}
	now := time.Now()
	s.Stamp(core.MetaStartedAt, now)
	return &run{w: w, s: s, start: now}
}

// finish moves the state to terminal exactly once and enforces that it
// carries either a result or an error.
func (r *run) finish(ctx context.Context) {
	if r.done {
		return
	}
	r.done = true
	s := r.s

	if s.Result == "" && s.Error == "" {
		msg := "Workflow ended without a result"
		if d := s.Meta(core.MetaDiagnostic); d != "" {
			msg += ": " + d
		}
		s.SetError(msg, "")
	}
	s.CurrentNode = string(NodeTerminal)
	s.Visit(string(NodeTerminal))
	s.Stamp(core.MetaFinishedAt, time.Now())

	outcome := "result"
	if s.Failed() {
		outcome = "error"
	}
	if r.w.metrics != nil {
		r.w.metrics.RecordWorkflowRun(string(s.Mode), outcome, time.Since(r.start).Seconds())
	}
	r.w.logger.Info("workflow finished",
		zap.String("run_id", s.Meta(core.MetaRunID)),
		zap.String("provider", s.Provider),
		zap.String("model", s.Model),
		zap.String("outcome", outcome),
		zap.Strings("visited", s.Visited()),
		zap.Duration("duration", time.Since(r.start)),
	)
	for _, h := range r.w.hooks {
		h(ctx, s)
	}
}

// describe splits err into a user-facing message and technical detail.
func describe(err error) (string, string) {
	var e *core.Error
	if errors.As(err, &e) {
		return e.Message, e.Detail()
	}
	return err.Error(), ""
}
