// Package metrics holds the Prometheus collectors of the HTTP service. The
// parser packages never touch them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agleyzer/m3ucheck/internal/diag"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "m3ucheck_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "m3ucheck_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "m3ucheck_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Parser metrics
var (
	ParsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "m3ucheck_parses_total",
			Help: "Total number of playlist parses",
		},
		[]string{"mode", "status"}, // mode: strict, tolerant, stream
	)

	ParseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "m3ucheck_parse_duration_seconds",
			Help:    "Playlist parse duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"mode"},
	)

	SegmentsParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "m3ucheck_segments_parsed_total",
			Help: "Total number of segments produced by the parser",
		},
	)

	DiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "m3ucheck_diagnostics_total",
			Help: "Total number of parse diagnostics",
		},
		[]string{"severity", "kind"},
	)

	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "m3ucheck_validations_total",
			Help: "Total number of playlist validations",
		},
		[]string{"status"}, // "ok", "failed"
	)
)

// Status returns the status label for an operation outcome.
func Status(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// RecordParse records one finished parse.
func RecordParse(mode string, ok bool, segments int, elapsed time.Duration) {
	ParsesTotal.WithLabelValues(mode, Status(ok)).Inc()
	ParseDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	SegmentsParsed.Add(float64(segments))
}

// RecordDiagnostic counts one diagnostic. Its signature matches
// diag.Observer so it can be chained with other observers.
func RecordDiagnostic(w diag.Warning) {
	DiagnosticsTotal.WithLabelValues(w.Severity.String(), string(w.Kind)).Inc()
}

// RecordValidation records one validation outcome.
func RecordValidation(err error) {
	ValidationsTotal.WithLabelValues(Status(err == nil)).Inc()
}
