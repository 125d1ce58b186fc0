package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/dispatch"
	"github.com/newthinker/nurexia/internal/llm"
	"go.uber.org/zap"
)

// input checks that there is something to answer and that the request is
// valid, before any provider is constructed.
func (w *Workflow) input(ctx context.Context, s *core.State) NodeID {
	if err := w.checkInput(s); err != nil {
		msg, detail := describe(err)
		s.SetError(msg, detail)
		return NodeTerminal
	}
	return NodeGeneration
}

func (w *Workflow) checkInput(s *core.State) error {
	if !s.HasUserMessage() {
		return core.ErrNoInput
	}

	mode, err := core.ParseMode(string(s.Mode))
	if err != nil {
		return err
	}
	s.Mode = mode

	temperature, set, err := llm.Options(s.Options).FloatE(llm.OptTemperature)
	if err != nil {
		return core.NewError(core.ErrValidation, fmt.Sprintf("temperature must be a number: %v", s.Options[llm.OptTemperature]), nil)
	}
	if !set {
		temperature = llm.DefaultTemperature
	}
	if err := w.Validate(s.Provider, temperature); err != nil {
		return err
	}

	if s.WorkingDirectory == "" {
		if wd, err := os.Getwd(); err == nil {
			s.WorkingDirectory = wd
		}
	}
	return nil
}

// generation resolves the provider and performs one buffered chat over the
// full history.
func (w *Workflow) generation(ctx context.Context, s *core.State) NodeID {
	p, err := w.provider(s)
	if err != nil {
		return NodeTerminal
	}

	start := time.Now()
	resp, err := p.Chat(ctx, s.Messages, nil)
	if w.metrics != nil {
		w.metrics.RecordGeneration(p.Name(), dispatch.ModeBuffered, err, time.Since(start).Seconds())
	}
	if err != nil {
		w.generationFailed(s, err)
		return NodeTerminal
	}

	for k, v := range resp.Metadata() {
		if k == core.MetaModel {
			continue
		}
		s.SetMeta(k, v)
	}
	w.complete(s, resp.Content)
	return NodeTerminal
}

// provider creates the provider for s and records the resolved model. On
// failure the error is already set on s.
func (w *Workflow) provider(s *core.State) (llm.Provider, error) {
	p, err := w.registry.Create(s.Provider, s.Model, llm.Options(s.Options))
	if err != nil {
		msg, detail := describe(err)
		s.SetError(msg, detail)
		return nil, err
	}
	s.Model = p.Model()
	s.SetMeta(core.MetaProvider, p.Name())
	s.SetMeta(core.MetaModel, p.Model())
	w.logger.Debug("provider resolved",
		zap.String("run_id", s.Meta(core.MetaRunID)),
		zap.String("provider", p.Name()),
		zap.String("model", p.Model()),
	)
	return p, nil
}

// complete records a successful generation. An empty reply is a failure
// so that a terminal state always carries a result or an error.
func (w *Workflow) complete(s *core.State, content string) {
	if content == "" {
		s.SetError("Provider returned an empty response", "")
		return
	}
	s.AddMessage(core.RoleAssistant, content)
	s.SetResult(content)
}

func (w *Workflow) generationFailed(s *core.State, err error) {
	w.logger.Warn("generation failed",
		zap.String("run_id", s.Meta(core.MetaRunID)),
		zap.String("provider", s.Provider),
		zap.Error(err),
	)
	s.SetError(fmt.Sprintf("Generation failed (%s)", s.Provider), err.Error())
}
