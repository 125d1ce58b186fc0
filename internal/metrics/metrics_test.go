package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_RegistersAllCollectors(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg

	// touch every vector so it shows up in Gather
	reg.RecordRequest("GET", "/api/health", 200, 0.01)
	reg.RecordWorkflowRun("chat", "result", 0.2)
	reg.RecordGeneration("ollama", "buffered", nil, 0.1)
	reg.RecordFragment("ollama")
	reg.RecordConnectionTest("ollama", true)
	reg.RecordTranscript(nil)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"http_requests_in_flight",
		"nurexia_workflow_runs_total",
		"nurexia_workflow_duration_seconds",
		"nurexia_generations_total",
		"nurexia_generation_duration_seconds",
		"nurexia_stream_fragments_total",
		"nurexia_connection_tests_total",
		"nurexia_transcripts_archived_total",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestRegistry_RecordRequest_StatusClass(t *testing.T) {
	tests := []struct {
		status int
		class  string
	}{
		{101, "1xx"},
		{200, "2xx"},
		{204, "2xx"},
		{304, "3xx"},
		{400, "4xx"},
		{401, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{502, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("POST", "POST /v1/chat", tt.status, 0.05)

			assert.Equal(t, 1.0, testutil.ToFloat64(
				reg.httpRequestsTotal.WithLabelValues("POST", "POST /v1/chat", tt.class)))
		})
	}
}

func TestRegistry_RecordRequest_ObservesDuration(t *testing.T) {
	reg := NewRegistry()
	reg.RecordRequest("GET", "GET /v1/providers", 200, 0.02)
	reg.RecordRequest("GET", "GET /v1/providers", 200, 1.5)

	assert.Equal(t, 1, testutil.CollectAndCount(reg.httpRequestDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "http_request_duration_seconds" {
			continue
		}
		h := f.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(2), h.GetSampleCount())
		assert.InDelta(t, 1.52, h.GetSampleSum(), 1e-9)
		return
	}
	t.Fatal("http_request_duration_seconds not gathered")
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.httpRequestsInFlight))

	reg.InFlightDec()
	reg.InFlightDec()
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.httpRequestsInFlight))
}
