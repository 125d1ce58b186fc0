package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMiddleware_CountsByStatus(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    int
		class   string
	}{
		{
			name:    "implicit 200",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) },
			code:    http.StatusOK,
			class:   "2xx",
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			code:  http.StatusUnauthorized,
			class: "4xx",
		},
		{
			name: "upstream failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.WriteHeader(http.StatusOK) // ignored by the writer
			},
			code:  http.StatusBadGateway,
			class: "5xx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			w := httptest.NewRecorder()

			HTTPMiddleware(reg)(tt.handler).ServeHTTP(w, httptest.NewRequest("POST", "/v1/chat", nil))

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, 1.0, testutil.ToFloat64(
				reg.httpRequestsTotal.WithLabelValues("POST", "/v1/chat", tt.class)))
			assert.Equal(t, 1, testutil.CollectAndCount(reg.httpRequestDuration))
		})
	}
}

func TestHTTPMiddleware_InFlightDuringRequest(t *testing.T) {
	reg := NewRegistry()
	var during float64

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(reg.httpRequestsInFlight)
	})
	HTTPMiddleware(reg)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/health", nil))

	assert.Equal(t, 1.0, during)
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.httpRequestsInFlight))
}

func TestHTTPMiddleware_InFlightReleasedOnPanic(t *testing.T) {
	reg := NewRegistry()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler blew up")
	})

	assert.Panics(t, func() {
		HTTPMiddleware(reg)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	})
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.httpRequestsInFlight))
}
