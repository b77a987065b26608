// Package metrics tracks in-process tool-call counters. Instrumented tool
// handlers record into them and Snapshot reads them back; no tool or
// prompt section reports them. spec.md has no HTTP transport, so nothing here is exposed over
// /metrics: the prometheus registry is consulted in-process only.
package metrics

import (
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters and histogram tracking tool invocations.
type Metrics struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	errors      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
}

// New builds a fresh, self-contained metrics registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hanzo_mcp_tool_invocations_total",
			Help: "Total number of tool invocations, by tool name.",
		}, []string{"tool"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hanzo_mcp_tool_errors_total",
			Help: "Total number of failed tool invocations, by tool name.",
		}, []string{"tool"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hanzo_mcp_tool_duration_seconds",
			Help:    "Tool invocation duration in seconds, by tool name.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"tool"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hanzo_mcp_tool_in_flight",
			Help: "Number of tool invocations currently executing.",
		}),
	}

	reg.MustRegister(m.invocations, m.errors, m.duration, m.inFlight)
	return m
}

// RecordInvocation records one completed tool call's duration and
// outcome.
func (m *Metrics) RecordInvocation(tool string, duration time.Duration, isError bool) {
	m.invocations.WithLabelValues(tool).Inc()
	m.duration.WithLabelValues(tool).Observe(duration.Seconds())
	if isError {
		m.errors.WithLabelValues(tool).Inc()
	}
}

// IncInFlight marks the start of a tool call.
func (m *Metrics) IncInFlight() { m.inFlight.Inc() }

// DecInFlight marks the end of a tool call.
func (m *Metrics) DecInFlight() { m.inFlight.Dec() }

// Snapshot reads the current counters for one tool, for status
// diagnostics. A tool never invoked returns all zeros.
func (m *Metrics) Snapshot(tool string) (invocations, errorCount float64) {
	return readCounter(m.invocations.WithLabelValues(tool)), readCounter(m.errors.WithLabelValues(tool))
}

// readCounter reads a prometheus.Counter's current value through the
// wire-format Metric, since client_golang exposes no direct getter.
func readCounter(counter prometheus.Counter) float64 {
	var pb dto.Metric
	if err := counter.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
