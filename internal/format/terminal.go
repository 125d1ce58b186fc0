package format

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const defaultWidth = 80

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or 80 when unknown.
func Width(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// RenderMarkdown styles markdown for display in a terminal of the given
// width.
func RenderMarkdown(text string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

// ForTerminal renders text for f. Markdown is styled only when f is a
// terminal; every other case matches Output.
func ForTerminal(f *os.File, text, format string) (string, error) {
	if format == Markdown && IsTerminal(f) {
		if out, err := RenderMarkdown(text, Width(f)); err == nil {
			return out, nil
		}
	}
	return Output(text, format)
}
