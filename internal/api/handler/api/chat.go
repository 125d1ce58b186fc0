package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/newthinker/nurexia/internal/api/response"
	"github.com/newthinker/nurexia/internal/app"
	"github.com/newthinker/nurexia/internal/core"
	"github.com/newthinker/nurexia/internal/format"
	"github.com/newthinker/nurexia/internal/llm"
	"github.com/newthinker/nurexia/internal/workflow"
	"go.uber.org/zap"
)

const maxRequestBytes = 4 << 20

// ChatApp defines the interface needed from app.App.
type ChatApp interface {
	Run(ctx context.Context, req app.Request) *core.State
	Stream(ctx context.Context, req app.Request) (*core.State, llm.Stream, error)
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Provider    string         `json:"provider"`
	Model       string         `json:"model"`
	Mode        string         `json:"mode"`
	Messages    []core.Message `json:"messages"`
	Prompt      string         `json:"prompt"`
	Temperature *float64       `json:"temperature"`
	Stream      bool           `json:"stream"`
	Format      string         `json:"format"`
	Verbose     bool           `json:"verbose"`
}

// ChatResult is the data of a successful buffered chat.
type ChatResult struct {
	RunID        string `json:"run_id"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Mode         string `json:"mode"`
	Response     string `json:"response"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        any    `json:"usage,omitempty"`
}

// ChatHandler serves conversation turns.
type ChatHandler struct {
	app    ChatApp
	logger *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(app ChatApp, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{app: app, logger: logger}
}

// Chat runs one turn and replies with JSON, or with server-sent events
// when the request asks to stream.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.NewError(core.ErrValidation, "invalid JSON body", err))
		return
	}
	req, err := body.toRequest()
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	if body.Stream {
		h.stream(w, r, req)
		return
	}

	s := h.app.Run(r.Context(), req)
	if s.Failed() {
		failState(w, s, body.Verbose)
		return
	}

	text := s.Result
	if body.Format != "" {
		// validated in toRequest
		text, _ = format.Output(text, body.Format)
	}
	response.JSON(w, http.StatusOK, ChatResult{
		RunID:        s.Meta(core.MetaRunID),
		Provider:     s.Provider,
		Model:        s.Model,
		Mode:         string(s.Mode),
		Response:     text,
		FinishReason: s.Meta(core.MetaFinishReason),
		Usage:        s.Metadata[core.MetaUsage],
	})
}

func (h *ChatHandler) stream(w http.ResponseWriter, r *http.Request, req app.Request) {
	s, stream, err := h.app.Stream(r.Context(), req)
	if err != nil {
		failState(w, s, req.Verbose)
		return
	}
	defer stream.Close()

	ev := response.NewEventWriter(w)
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			ev.Done()
			return
		}
		if err != nil {
			if r.Context().Err() == nil {
				ev.Event("error", errorDetail(s, req.Verbose))
			}
			h.logger.Debug("stream ended with error",
				zap.String("run_id", s.Meta(core.MetaRunID)),
				zap.Error(err))
			return
		}
		if err := ev.Data(map[string]string{"delta": fragment}); err != nil {
			// client went away; Close releases the provider connection
			return
		}
	}
}

func (b ChatRequest) toRequest() (app.Request, error) {
	messages := b.Messages
	if b.Prompt != "" {
		messages = append(messages, core.Message{Role: core.RoleUser, Content: b.Prompt})
	}
	for i, m := range messages {
		if !m.Role.Valid() {
			return app.Request{}, core.NewError(core.ErrValidation,
				fmt.Sprintf("messages[%d]: unknown role %q", i, m.Role), nil)
		}
	}
	if b.Format != "" && !format.Valid(b.Format) {
		return app.Request{}, core.NewError(core.ErrValidation,
			fmt.Sprintf("unknown output format %q (expected text, json or markdown)", b.Format), nil)
	}
	return app.Request{
		Provider:    b.Provider,
		Model:       b.Model,
		Mode:        b.Mode,
		Messages:    messages,
		Temperature: b.Temperature,
		Verbose:     b.Verbose,
	}, nil
}

// failState reports a terminal error state. Runs rejected at the input
// node are the caller's fault; anything later is an upstream failure.
func failState(w http.ResponseWriter, s *core.State, verbose bool) {
	status := http.StatusBadGateway
	if rejectedAtInput(s) {
		status = http.StatusBadRequest
	}
	response.Fail(w, status, errorDetail(s, verbose))
}

func errorDetail(s *core.State, verbose bool) response.ErrorDetail {
	d := response.ErrorDetail{
		Code:    core.ErrGeneration.Code,
		Message: s.Error,
	}
	if rejectedAtInput(s) {
		d.Code = core.ErrValidation.Code
	}
	if verbose {
		d.Cause = s.Meta(core.MetaErrorDetail)
	}
	return d
}

func rejectedAtInput(s *core.State) bool {
	for _, node := range s.Visited() {
		if node == string(workflow.NodeGeneration) {
			return false
		}
	}
	return true
}
