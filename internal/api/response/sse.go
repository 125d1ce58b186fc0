package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Done is the payload of the final server-sent event.
const Done = "[DONE]"

// EventWriter writes server-sent events, flushing after each one.
type EventWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewEventWriter sends the event-stream headers and a 200 status.
func NewEventWriter(w http.ResponseWriter) *EventWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	return &EventWriter{w: w, rc: http.NewResponseController(w)}
}

// Data writes v as a JSON data event.
func (e *EventWriter) Data(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return e.write("", string(b))
}

// Event writes a named JSON event.
func (e *EventWriter) Event(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	return e.write(name, string(b))
}

// Done writes the terminating data: [DONE] event.
func (e *EventWriter) Done() error {
	return e.write("", Done)
}

func (e *EventWriter) write(name, data string) error {
	if name != "" {
		if _, err := fmt.Fprintf(e.w, "event: %s\n", name); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		return err
	}
	if err := e.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
