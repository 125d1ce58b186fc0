// Package response writes the gateway's JSON envelopes and event streams.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/nurexia/internal/core"
)

// requestIDHeader is set on the response by the logging middleware before
// handlers run.
const requestIDHeader = "X-Request-ID"

// Meta is attached to every success envelope.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// SuccessResponse wraps a handler's payload.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail is the body of an error envelope. Cause is only filled for
// core errors that carry one.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Cause     string `json:"cause,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse wraps an ErrorDetail.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes data in a success envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{
		Data: data,
		Meta: Meta{
			Timestamp: time.Now().UTC(),
			RequestID: w.Header().Get(requestIDHeader),
		},
	})
}

// Error writes err in an error envelope. Errors that are not core errors
// are reported as INTERNAL_ERROR without their text.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}

	var ce *core.Error
	if errors.As(err, &ce) {
		detail.Code, detail.Message = ce.Code, ce.Message
		if ce.Cause != nil {
			detail.Cause = ce.Cause.Error()
		}
	}
	Fail(w, status, detail)
}

// Fail writes detail as-is in an error envelope.
func Fail(w http.ResponseWriter, status int, detail ErrorDetail) {
	if detail.RequestID == "" {
		detail.RequestID = w.Header().Get(requestIDHeader)
	}
	write(w, status, ErrorResponse{Error: detail})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already out, so an encode failure has nowhere to go
	_ = json.NewEncoder(w).Encode(body)
}
