package core

import "fmt"

// Role identifies the author of a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Mode is the execution mode requested by the caller
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeAgent Mode = "agent"
	ModeEdit  Mode = "edit"
)

// ParseMode converts s to a Mode. An empty string selects ModeChat.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeChat, nil
	case ModeChat, ModeAgent, ModeEdit:
		return Mode(s), nil
	}
	return "", NewError(ErrValidation, fmt.Sprintf("unknown mode %q (expected chat, agent or edit)", s), nil)
}

// Message is one entry of a conversation. Messages are never modified
// after they are appended to a State.
type Message struct {
	Role     Role           `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a message with a private copy of metadata.
func NewMessage(role Role, content string, metadata map[string]any) Message {
	m := Message{Role: role, Content: content}
	if len(metadata) > 0 {
		m.Metadata = make(map[string]any, len(metadata))
		for k, v := range metadata {
			m.Metadata[k] = v
		}
	}
	return m
}

// Action is an operation proposed by a workflow node but not yet executed.
type Action struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}
