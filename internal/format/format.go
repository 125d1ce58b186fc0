// Package format renders results and errors for the command surfaces.
package format

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newthinker/nurexia/internal/core"
)

// Output formats.
const (
	Text     = "text"
	JSON     = "json"
	Markdown = "markdown"
)

// Valid reports whether f is a known output format.
func Valid(f string) bool {
	switch f {
	case Text, JSON, Markdown:
		return true
	}
	return false
}

// Output renders text in the requested format. json produces
// {"response": text}; markdown guarantees a trailing newline.
func Output(text, format string) (string, error) {
	switch format {
	case Text, "":
		return text, nil
	case JSON:
		b, err := json.MarshalIndent(map[string]string{"response": text}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding response: %w", err)
		}
		return string(b), nil
	case Markdown:
		if strings.HasSuffix(text, "\n") {
			return text, nil
		}
		return text + "\n", nil
	}
	return "", core.NewError(core.ErrValidation,
		fmt.Sprintf("unknown output format %q (expected text, json or markdown)", format), nil)
}

// Error renders an error message. details are appended only when verbose.
func Error(message string, verbose bool, details string) string {
	out := "Error: " + message
	if verbose && details != "" {
		out += "\n\nDetails:\n" + details
	}
	return out
}
