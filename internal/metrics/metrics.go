package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Gateway metrics
	workflowRuns       *prometheus.CounterVec
	workflowDuration   prometheus.Histogram
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	streamFragments    *prometheus.CounterVec
	connectionTests    *prometheus.CounterVec
	transcripts        *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.workflowRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nurexia_workflow_runs_total",
			Help: "Total number of workflow runs by terminal outcome",
		},
		[]string{"mode", "outcome"},
	)
	r.workflowDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nurexia_workflow_duration_seconds",
			Help:    "Workflow run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
	r.generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nurexia_generations_total",
			Help: "Total number of provider generations",
		},
		[]string{"provider", "mode", "status"},
	)
	r.generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nurexia_generation_duration_seconds",
			Help:    "Provider generation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider"},
	)
	r.streamFragments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nurexia_stream_fragments_total",
			Help: "Total number of text fragments delivered to callers",
		},
		[]string{"provider"},
	)
	r.connectionTests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nurexia_connection_tests_total",
			Help: "Total number of provider connection tests",
		},
		[]string{"provider", "ok"},
	)
	r.transcripts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nurexia_transcripts_archived_total",
			Help: "Total number of transcripts written to the archive",
		},
		[]string{"status"},
	)

	reg.MustRegister(r.workflowRuns)
	reg.MustRegister(r.workflowDuration)
	reg.MustRegister(r.generations)
	reg.MustRegister(r.generationDuration)
	reg.MustRegister(r.streamFragments)
	reg.MustRegister(r.connectionTests)
	reg.MustRegister(r.transcripts)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordWorkflowRun records a finished workflow run. outcome is
// "result" or "error".
func (r *Registry) RecordWorkflowRun(mode, outcome string, duration float64) {
	r.workflowRuns.WithLabelValues(mode, outcome).Inc()
	r.workflowDuration.Observe(duration)
}

// RecordGeneration records one provider call. mode is "buffered" or
// "stream".
func (r *Registry) RecordGeneration(provider, mode string, err error, duration float64) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.generations.WithLabelValues(provider, mode, status).Inc()
	r.generationDuration.WithLabelValues(provider).Observe(duration)
}

// RecordFragment records a fragment delivered to a caller.
func (r *Registry) RecordFragment(provider string) {
	r.streamFragments.WithLabelValues(provider).Inc()
}

// RecordConnectionTest records a connection test outcome.
func (r *Registry) RecordConnectionTest(provider string, ok bool) {
	r.connectionTests.WithLabelValues(provider, strconv.FormatBool(ok)).Inc()
}

// RecordTranscript records an archive write.
func (r *Registry) RecordTranscript(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.transcripts.WithLabelValues(status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
