package core

import (
	"slices"
	"time"
)

// Metadata keys written by the workflow.
const (
	MetaRunID        = "run_id"
	MetaProvider     = "provider"
	MetaModel        = "model"
	MetaUsage        = "usage"
	MetaFinishReason = "finish_reason"
	MetaVisited      = "visited"
	MetaDiagnostic   = "diagnostic"
	MetaErrorDetail  = "error_detail"
	MetaStartedAt    = "started_at"
	MetaFinishedAt   = "finished_at"
)

// State is the per-invocation conversation record threaded through the
// workflow. A State is owned by exactly one run and is never shared.
type State struct {
	Messages         []Message      `json:"messages"`
	CurrentNode      string         `json:"current_node"`
	Mode             Mode           `json:"mode"`
	PendingAction    *Action        `json:"pending_action,omitempty"`
	WorkingDirectory string         `json:"working_directory"`
	Provider         string         `json:"provider"`
	Model            string         `json:"model,omitempty"`
	Options          map[string]any `json:"options,omitempty"`
	Error            string         `json:"error,omitempty"`
	Result           string         `json:"result,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// NewState creates an empty chat-mode state for provider.
func NewState(provider, model string) *State {
	return &State{
		Mode:     ModeChat,
		Provider: provider,
		Model:    model,
		Options:  make(map[string]any),
		Metadata: make(map[string]any),
	}
}

// AddMessage appends a message. Earlier messages are never modified.
func (s *State) AddMessage(role Role, content string) {
	s.Messages = append(s.Messages, NewMessage(role, content, nil))
}

// HasUserMessage reports whether at least one user message is present.
func (s *State) HasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// SetResult records a successful outcome and clears any error.
func (s *State) SetResult(result string) {
	s.Result = result
	s.Error = ""
}

// SetError records a failed outcome and clears any result. detail, when
// non-empty, is kept in metadata for verbose rendering.
func (s *State) SetError(message, detail string) {
	s.Error = message
	s.Result = ""
	if detail != "" {
		s.SetMeta(MetaErrorDetail, detail)
	}
}

// Failed reports whether the run ended with an error.
func (s *State) Failed() bool {
	return s.Error != ""
}

// SetMeta sets a metadata value, allocating the map when needed.
func (s *State) SetMeta(key string, value any) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
	s.Metadata[key] = value
}

// Meta returns a metadata value as a string.
func (s *State) Meta(key string) string {
	if v, ok := s.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Visit appends node to the visited trail. The stored trail is replaced,
// never extended in place, so earlier copies stay valid.
func (s *State) Visit(node string) {
	trail, _ := s.Metadata[MetaVisited].([]string)
	s.SetMeta(MetaVisited, append(slices.Clip(trail), node))
}

// Visited returns a copy of the node trail recorded so far.
func (s *State) Visited() []string {
	trail, _ := s.Metadata[MetaVisited].([]string)
	return slices.Clone(trail)
}

// Stamp records t under key in RFC3339 form.
func (s *State) Stamp(key string, t time.Time) {
	s.SetMeta(key, t.UTC().Format(time.RFC3339Nano))
}
